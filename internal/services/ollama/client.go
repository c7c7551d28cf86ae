// Package ollama implements the local inference backend for episode
// analysis.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"podknow/internal/logging"
	"podknow/internal/services"
)

const (
	// ProviderName identifies this backend in errors, logs, and output metadata.
	ProviderName = "ollama"

	generatePath = "/api/generate"
	tagsPath     = "/api/tags"

	// maxAttempts is lower than the hosted backend's ceiling: a local server
	// that fails twice is down, not busy.
	maxAttempts = 2

	defaultBackoffBase = time.Second
	defaultBackoffCap  = 10 * time.Second
)

// Config captures the connection settings for the local server.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to a local Ollama server.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	logger      *slog.Logger
	sleep       func(time.Duration)
	backoffBase time.Duration
	backoffCap  time.Duration
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (for testing).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithSleeper overrides the retry sleep function (for testing).
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithRetryBackoff overrides the backoff schedule (for testing).
func WithRetryBackoff(base, cap time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.backoffBase = base
		}
		if cap > 0 {
			c.backoffCap = cap
		}
	}
}

// NewClient creates an Ollama client.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	client := &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logging.NewComponentLogger(logger, "ollama"),
		sleep:       time.Sleep,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Name returns the provider identifier.
func (c *Client) Name() string { return ProviderName }

// Concurrent reports false: a local model served from one GPU or CPU pool
// degrades badly under parallel prompts, so callers serialize.
func (c *Client) Concurrent() bool { return false }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type apiError struct {
	Error string `json:"error"`
}

// Complete sends one prompt and returns the model's text reply.
func (c *Client) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", services.Wrap(services.ErrValidation, "analysis", "ollama", "prompt required", nil)
	}

	var lastErr *services.ProviderError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, perr := c.send(ctx, systemPrompt, prompt)
		if perr == nil {
			return text, nil
		}
		lastErr = perr
		if !perr.Retriable() || attempt == maxAttempts {
			break
		}
		delay := c.backoffBase << (attempt - 1)
		if delay > c.backoffCap {
			delay = c.backoffCap
		}
		logging.WithContext(ctx, c.logger).Warn("request failed, retrying",
			logging.String(logging.FieldProvider, ProviderName),
			logging.String("kind", string(perr.Kind)),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay))
		c.sleep(delay)
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) send(ctx context.Context, systemPrompt, prompt string) (string, *services.ProviderError) {
	body, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		System: systemPrompt,
		Stream: false,
	})
	if err != nil {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindProtocolError, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindProtocolError, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindUnreachable,
			Message: fmt.Sprintf("server unreachable at %s", c.cfg.BaseURL), Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindProtocolError, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, payload)
	}

	var decoded generateResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindProtocolError, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	text := strings.TrimSpace(decoded.Response)
	if text == "" {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindProtocolError, StatusCode: resp.StatusCode, Message: "response carried no text"}
	}
	return text, nil
}

func classifyStatus(status int, payload []byte) *services.ProviderError {
	var decoded apiError
	_ = json.Unmarshal(payload, &decoded)
	msg := decoded.Error
	if msg == "" {
		msg = strings.TrimSpace(string(payload))
	}

	kind := services.KindProtocolError
	switch {
	case status >= 500:
		kind = services.KindServerError
	case status == http.StatusNotFound:
		// The server answers 404 for an unknown model name.
		kind = services.KindModelMissing
	case status == http.StatusTooManyRequests:
		kind = services.KindRateLimited
	case status == http.StatusBadRequest:
		kind = services.KindBadRequest
	}
	return &services.ProviderError{Provider: ProviderName, Kind: kind, StatusCode: status, Message: msg}
}

// HealthCheck verifies the local server is up by listing installed models.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+tagsPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &services.ProviderError{Provider: ProviderName, Kind: services.KindUnreachable,
			Message: fmt.Sprintf("server unreachable at %s", c.cfg.BaseURL), Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return &services.ProviderError{Provider: ProviderName, Kind: services.KindServerError, StatusCode: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}
