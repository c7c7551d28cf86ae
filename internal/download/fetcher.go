package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"podknow/internal/logging"
	"podknow/internal/services"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
	defaultTimeout    = 10 * time.Minute
)

// Config captures fetcher settings.
type Config struct {
	MaxRetries     int
	TimeoutSeconds int
}

// Request describes one download. Quiet suppresses the interactive progress
// bar; it is explicit per-request state rather than a process-wide toggle.
type Request struct {
	URL         string
	Destination string
	Quiet       bool
}

// Fetcher streams media files to local storage.
type Fetcher struct {
	client     *http.Client
	logger     *slog.Logger
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleeper    func(time.Duration)
}

// Option customizes the fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = baseDelay
		f.maxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(f *Fetcher) {
		f.sleeper = sleeper
	}
}

// NewFetcher constructs a media fetcher.
func NewFetcher(cfg Config, logger *slog.Logger, opts ...Option) *Fetcher {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	fetcher := &Fetcher{
		client:     &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "download"),
		maxRetries: retries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// Download fetches req.URL to req.Destination. Transient failures are
// retried with exponential backoff; permanent HTTP errors surface
// immediately. On failure the partial file is removed so callers never see a
// half-written download from this invocation.
func (f *Fetcher) Download(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.URL) == "" {
		return services.Wrap(services.ErrValidation, "audio_download", "download", "media URL required", nil)
	}
	if strings.TrimSpace(req.Destination) == "" {
		return services.Wrap(services.ErrValidation, "audio_download", "download", "destination path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return fmt.Errorf("ensure destination dir: %w", err)
	}

	logger := logging.WithContext(ctx, f.logger)

	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		err := f.downloadOnce(ctx, req, logger)
		if err == nil {
			f.validateSignature(req.Destination, logger)
			return nil
		}
		if !retriable(err) {
			f.removePartial(req.Destination)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return services.Wrap(services.ErrValidation, "audio_download", "download", req.URL, err)
		}
		lastErr = err
		if attempt == f.maxRetries {
			break
		}
		delay := f.backoffDelay(attempt)
		logger.Warn("download attempt failed, retrying",
			logging.String(logging.FieldEventType, "download_retry"),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "transient network failure"),
			logging.String(logging.FieldImpact, "download delayed"))
		if err := f.sleep(ctx, delay); err != nil {
			f.removePartial(req.Destination)
			return err
		}
	}

	f.removePartial(req.Destination)
	return services.Wrap(services.ErrTransient, "audio_download", "download",
		fmt.Sprintf("%s failed after %d attempts", req.URL, f.maxRetries), lastErr)
}

func (f *Fetcher) downloadOnce(ctx context.Context, req Request, logger *slog.Logger) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return &permanentError{fmt.Errorf("build request: %w", err)}
	}

	// Resume from a partial file left behind by an interrupted process.
	var resumeFrom int64
	if info, statErr := os.Stat(req.Destination); statErr == nil && info.Size() > 0 {
		resumeFrom = info.Size()
		httpReq.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPartialContent && resumeFrom > 0:
		logger.Debug("resuming download",
			logging.String("resume_offset", humanize.Bytes(uint64(resumeFrom))))
	case resp.StatusCode == http.StatusOK:
		resumeFrom = 0
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("http %d from %s", resp.StatusCode, req.URL)
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		// Stale partial; restart from scratch on the next attempt.
		f.removePartial(req.Destination)
		return fmt.Errorf("stale partial rejected by server (http 416)")
	default:
		return &permanentError{fmt.Errorf("http %d from %s", resp.StatusCode, req.URL)}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if resumeFrom > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(req.Destination, flags, 0o644)
	if err != nil {
		return &permanentError{fmt.Errorf("open destination: %w", err)}
	}
	defer file.Close()

	writer := io.Writer(file)
	if !req.Quiet && isatty.IsTerminal(os.Stderr.Fd()) {
		bar := progressbar.DefaultBytes(resumeFrom+resp.ContentLength, filepath.Base(req.Destination))
		_ = bar.Set64(resumeFrom)
		writer = io.MultiWriter(file, bar)
	}

	written, err := io.Copy(writer, resp.Body)
	if err != nil {
		return fmt.Errorf("stream body: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("flush destination: %w", err)
	}

	logger.Info("download completed",
		logging.String(logging.FieldEventType, "download_complete"),
		logging.String("destination", req.Destination),
		logging.String("bytes", humanize.Bytes(uint64(resumeFrom+written))))
	return nil
}

// validateSignature warns when the downloaded bytes match none of the known
// audio signatures. Absence of a match is advisory only.
func (f *Fetcher) validateSignature(path string, logger *slog.Logger) {
	recognized, err := sniffFile(path)
	if err != nil {
		logger.Warn("could not inspect downloaded file",
			logging.String(logging.FieldEventType, "signature_check_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "file may still be usable"),
			logging.String(logging.FieldImpact, "format validation skipped"))
		return
	}
	if !recognized {
		logger.Warn("downloaded file has no recognized audio signature",
			logging.String(logging.FieldEventType, "signature_unrecognized"),
			logging.String("destination", path),
			logging.String(logging.FieldErrorHint, "the encoding may fall outside the signature whitelist"),
			logging.String(logging.FieldImpact, "transcription proceeds anyway"))
	}
}

func (f *Fetcher) removePartial(path string) {
	_ = os.Remove(path)
}

// permanentError marks failures that retrying cannot fix (4xx other than
// throttling, local filesystem problems).
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

func retriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return true
}

func (f *Fetcher) backoffDelay(attempt int) time.Duration {
	delay := f.baseDelay
	for i := 1; i < attempt; i++ {
		if delay > f.maxDelay/2 {
			return f.maxDelay
		}
		delay *= 2
	}
	if delay > f.maxDelay {
		return f.maxDelay
	}
	return delay
}

func (f *Fetcher) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if f.sleeper != nil {
		f.sleeper(delay)
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
