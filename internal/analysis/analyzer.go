package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"podknow/internal/logging"
	"podknow/internal/services"
)

// Metadata keys recorded on every Result.
const (
	MetaProviderUsed    = "provider_used"
	MetaPrimaryProvider = "primary_provider"
	MetaFallbackUsed    = "fallback_used"
	MetaDuration        = "duration"
)

// Analyzer runs the analysis operations against the primary provider and
// falls back to the secondary when the primary fails with a provider-class
// error. Non-provider errors (bad prompt configuration, cancelled context)
// surface immediately without trying the fallback.
type Analyzer struct {
	primary        Provider
	fallback       Provider
	detectSponsors bool
	logger         *slog.Logger
	now            func() time.Time
}

// NewAnalyzer builds an analyzer. fallback may be nil when only one backend
// is configured. detectSponsors gates the sponsor-detection call.
func NewAnalyzer(primary, fallback Provider, detectSponsors bool, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		primary:        primary,
		fallback:       fallback,
		detectSponsors: detectSponsors,
		logger:         logging.NewComponentLogger(logger, "analysis"),
		now:            time.Now,
	}
}

// Analyze produces the full analysis result for one transcript.
func (a *Analyzer) Analyze(ctx context.Context, title, transcript string) (Result, error) {
	started := a.now()

	result, err := a.runProvider(ctx, a.primary, title, transcript)
	if err == nil {
		a.finish(&result, a.primary.Name(), false, started)
		return result, nil
	}
	if _, provider := services.AsProviderError(err); !provider {
		return Result{}, err
	}
	logging.WithContext(ctx, a.logger).Warn("primary provider failed, trying fallback",
		logging.String(logging.FieldProvider, a.primary.Name()),
		logging.Error(err))
	if a.fallback == nil {
		return Result{}, err
	}

	result, fallbackErr := a.runProvider(ctx, a.fallback, title, transcript)
	if fallbackErr != nil {
		return Result{}, fmt.Errorf("all providers failed: %s: %w; %s: %v",
			a.primary.Name(), err, a.fallback.Name(), fallbackErr)
	}
	a.finish(&result, a.fallback.Name(), true, started)
	return result, nil
}

// finish stamps the result with the provider bookkeeping and the elapsed
// time across every call made, fallback attempts included.
func (a *Analyzer) finish(result *Result, used string, fallbackUsed bool, started time.Time) {
	result.ProcessingDuration = a.now().Sub(started)
	result.Metadata = map[string]string{
		MetaProviderUsed:    used,
		MetaPrimaryProvider: a.primary.Name(),
		MetaFallbackUsed:    strconv.FormatBool(fallbackUsed),
		MetaDuration:        result.ProcessingDuration.Round(time.Millisecond).String(),
	}
}

// runProvider executes the analysis calls against one backend. Hosted
// backends take all calls in flight at once; a local model gets them one at
// a time.
func (a *Analyzer) runProvider(ctx context.Context, provider Provider, title, transcript string) (Result, error) {
	if provider.Concurrent() {
		return a.runConcurrent(ctx, provider, title, transcript)
	}
	return a.runSequential(ctx, provider, title, transcript)
}

func (a *Analyzer) runConcurrent(ctx context.Context, provider Provider, title, transcript string) (Result, error) {
	var result Result
	errs := make([]error, 4)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		result.Summary, errs[0] = provider.Summarize(ctx, title, transcript)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		result.Topics, errs[1] = provider.ExtractTopics(ctx, title, transcript)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		result.Keywords, errs[2] = provider.ExtractKeywords(ctx, title, transcript)
	}()
	if a.detectSponsors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.Sponsors, errs[3] = provider.DetectSponsors(ctx, title, transcript)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return Result{}, err
		}
	}
	return result, nil
}

func (a *Analyzer) runSequential(ctx context.Context, provider Provider, title, transcript string) (Result, error) {
	var result Result
	var err error
	if result.Summary, err = provider.Summarize(ctx, title, transcript); err != nil {
		return Result{}, err
	}
	if result.Topics, err = provider.ExtractTopics(ctx, title, transcript); err != nil {
		return Result{}, err
	}
	if result.Keywords, err = provider.ExtractKeywords(ctx, title, transcript); err != nil {
		return Result{}, err
	}
	if a.detectSponsors {
		if result.Sponsors, err = provider.DetectSponsors(ctx, title, transcript); err != nil {
			return Result{}, err
		}
	}
	return result, nil
}
