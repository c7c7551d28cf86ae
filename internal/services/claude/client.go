// Package claude implements the hosted Anthropic messages backend for
// episode analysis.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"podknow/internal/logging"
	"podknow/internal/services"
)

const (
	// ProviderName identifies this backend in errors, logs, and output metadata.
	ProviderName = "claude"

	apiVersion       = "2023-06-01"
	messagesPath     = "/v1/messages"
	defaultMaxTokens = 4096

	// maxAttempts is the per-request ceiling for the hosted backend. Rate
	// limits and server errors are worth waiting out; anything else is not.
	maxAttempts = 3

	defaultBackoffBase = 2 * time.Second
	defaultBackoffCap  = 30 * time.Second
)

// Config captures the connection settings for the Anthropic API.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to the Anthropic messages API.
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

// NewClient creates an Anthropic client. The API key is validated at call
// time, not here, so a keyless configuration can still be constructed and
// health-checked.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client := &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logging.NewComponentLogger(logger, "claude"),
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

// Concurrent reports that the hosted backend tolerates parallel requests.
func (c *Client) Concurrent() bool { return true }

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one prompt and returns the model's text reply. Transient
// failures are retried up to the attempt ceiling with exponential backoff,
// honoring Retry-After when the server supplies one.
func (c *Client) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", services.Wrap(services.ErrConfiguration, "analysis", "claude", "API key not configured", nil)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", services.Wrap(services.ErrValidation, "analysis", "claude", "prompt required", nil)
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
		delay := c.retryDelay(attempt, perr.RetryAfter)
		logging.WithContext(ctx, c.logger).Warn("request failed, retrying",
			logging.String(logging.FieldProvider, ProviderName),
			logging.String("kind", string(perr.Kind)),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay))
		if err := c.wait(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) send(ctx context.Context, systemPrompt, prompt string) (string, *services.ProviderError) {
	body, err := json.Marshal(messageRequest{
		Model:     c.cfg.Model,
		MaxTokens: defaultMaxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindProtocolError, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindProtocolError, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindUnreachable, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindProtocolError, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		perr := classifyStatus(resp.StatusCode, payload)
		perr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", perr
	}

	var decoded messageResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindProtocolError, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	var builder strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", &services.ProviderError{Provider: ProviderName, Kind: services.KindProtocolError, StatusCode: resp.StatusCode, Message: "response carried no text content"}
	}
	return text, nil
}

func classifyStatus(status int, payload []byte) *services.ProviderError {
	var decoded apiError
	_ = json.Unmarshal(payload, &decoded)
	msg := decoded.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(payload))
	}

	kind := services.KindProtocolError
	switch {
	case status == http.StatusTooManyRequests:
		kind = services.KindRateLimited
	case status >= 500:
		kind = services.KindServerError
	case status == http.StatusNotFound:
		kind = services.KindModelMissing
	case status == http.StatusBadRequest:
		kind = services.KindBadRequest
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = services.KindBadRequest
	}
	return &services.ProviderError{Provider: ProviderName, Kind: kind, StatusCode: status, Message: msg}
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if delay := time.Until(at); delay > 0 {
			return delay
		}
	}
	return 0
}

func (c *Client) retryDelay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if retryAfter > c.backoffCap {
			return c.backoffCap
		}
		return retryAfter
	}
	delay := c.backoffBase << (attempt - 1)
	if delay > c.backoffCap {
		delay = c.backoffCap
	}
	return delay
}

func (c *Client) wait(ctx context.Context, delay time.Duration) error {
	if c.sleep != nil {
		c.sleep(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// HealthCheck verifies the backend is reachable and credentialed by sending a
// minimal request.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Complete(ctx, "", "Reply with the single word: ok")
	return err
}
