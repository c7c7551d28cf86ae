package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel markers classify pipeline failures so the orchestrator and the CLI
// can pick remediation paths without parsing messages.
var (
	// ErrNotFound marks discovery misses (feed has no matching episode).
	ErrNotFound = errors.New("not found")
	// ErrValidation marks caller-input mistakes (bad URL, out-of-range position).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration (missing prompt template, no API key).
	ErrConfiguration = errors.New("configuration error")
	// ErrLanguageRejected marks audio declined by the language gate.
	ErrLanguageRejected = errors.New("language rejected")
	// ErrTransient marks failures that exhausted their retries.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// ErrorKind identifies the failure class an LLM backend reported. The same
// set is shared by every provider so selector logic is written once.
type ErrorKind string

const (
	KindRateLimited   ErrorKind = "rate_limited"
	KindServerError   ErrorKind = "server_error"
	KindBadRequest    ErrorKind = "bad_request"
	KindUnreachable   ErrorKind = "unreachable"
	KindModelMissing  ErrorKind = "model_missing"
	KindProtocolError ErrorKind = "protocol_error"
)

// ProviderError is the single error shape every analysis provider emits.
// Kind drives retry and fallback decisions; StatusCode and Err carry the
// underlying detail for diagnostics.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	// RetryAfter carries the server-requested delay, when one was supplied.
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (http %d): %s", e.Provider, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retriable reports whether another attempt against the same provider could
// reasonably succeed. Bad requests and protocol mismatches never heal on retry.
func (e *ProviderError) Retriable() bool {
	switch e.Kind {
	case KindRateLimited, KindServerError, KindUnreachable:
		return true
	default:
		return false
	}
}

// AsProviderError unwraps err to a *ProviderError when one is present.
// Provider-class failures trigger the analyzer's fallback path; anything else
// is treated as a caller mistake and surfaces immediately.
func AsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}
