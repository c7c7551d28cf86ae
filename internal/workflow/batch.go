package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"podknow/internal/config"
	"podknow/internal/feed"
	"podknow/internal/logging"
	"podknow/internal/seencache"
	"podknow/internal/services"
)

// defaultDownloadWorkers bounds concurrent media downloads in batch mode.
// Transcription stays at one in-flight episode regardless: the engine is a
// single shared hardware resource.
const defaultDownloadWorkers = 3

// BatchOptions adjusts one batch run.
type BatchOptions struct {
	// MaxPerFeed caps how many unseen episodes are processed per
	// subscription in one run. Zero means one.
	MaxPerFeed int
	Workflow   Options
}

// Outcome records what happened to one episode during a batch run.
type Outcome struct {
	Subscription string
	Episode      feed.Episode
	OutputPath   string
	Err          error
	// Recoverable reports whether the episode reached at least one
	// milestone step before failing; successes are trivially recoverable.
	Recoverable bool
}

// Summary aggregates a batch run.
type Summary struct {
	Processed int
	Failed    int
	Skipped   int
	Outcomes  []Outcome
}

// Batch processes subscription feeds. Downloads run in a bounded pool;
// transcription and everything after it are strictly serialized.
type Batch struct {
	processor *Processor
	seen      *seencache.Cache
	lock      *flock.Flock
	workers   int
	logger    *slog.Logger
}

// NewBatch builds a batch runner. lockPath guards against overlapping batch
// processes sharing the media directory and seen cache.
func NewBatch(processor *Processor, seen *seencache.Cache, lockPath string, workers int, logger *slog.Logger) *Batch {
	if workers <= 0 {
		workers = defaultDownloadWorkers
	}
	_ = os.MkdirAll(filepath.Dir(lockPath), 0o755)
	return &Batch{
		processor: processor,
		seen:      seen,
		lock:      flock.New(lockPath),
		workers:   workers,
		logger:    logging.NewComponentLogger(logger, "batch"),
	}
}

type batchJob struct {
	subscription config.Subscription
	episode      feed.Episode
	audioPath    string
	err          error
}

// Run processes every subscription's unseen episodes.
func (b *Batch) Run(ctx context.Context, subscriptions []config.Subscription, opts BatchOptions) (Summary, error) {
	locked, err := b.lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("acquire batch lock: %w", err)
	}
	if !locked {
		return Summary{}, services.Wrap(services.ErrValidation, "batch", "lock", "another batch run is already active", nil)
	}
	defer func() {
		if unlockErr := b.lock.Unlock(); unlockErr != nil {
			b.logger.Warn("could not release batch lock", logging.Error(unlockErr))
		}
	}()

	jobs, skipped := b.discover(ctx, subscriptions, opts)
	summary := Summary{Skipped: skipped}
	if len(jobs) == 0 {
		b.logger.Info("no new episodes",
			logging.String(logging.FieldEventType, "batch_empty"),
			logging.Int("subscriptions", len(subscriptions)))
		return summary, nil
	}

	downloaded := b.downloadAll(ctx, jobs, opts.Workflow.Quiet)

	// Serialized lane: one transcription at a time, in arrival order.
	for job := range downloaded {
		outcome := Outcome{Subscription: job.subscription.Name, Episode: job.episode}
		switch {
		case job.err != nil:
			outcome.Err = job.err
		case ctx.Err() != nil:
			// Cancelled after download: still honor the cleanup guarantee.
			b.processor.removeAudio(job.audioPath, b.logger)
			outcome.Err = ctx.Err()
		default:
			jobCtx := services.WithRequestID(ctx, uuid.NewString())
			result, processErr := b.processor.ProcessDownloaded(jobCtx, job.episode, job.audioPath, opts.Workflow)
			outcome.Err = processErr
			if result != nil {
				outcome.Recoverable = result.State.Recoverable()
			}
			if processErr == nil {
				outcome.OutputPath = result.OutputPath
				if markErr := b.seen.MarkSeen(job.subscription.URL, job.episode.ID); markErr != nil {
					b.logger.Warn("could not update seen cache",
						logging.String(logging.FieldFeedURL, job.subscription.URL),
						logging.Error(markErr))
				}
			}
		}
		if outcome.Err != nil {
			summary.Failed++
			b.logger.Warn("episode failed",
				logging.String(logging.FieldEventType, "batch_episode_failed"),
				logging.String("subscription", job.subscription.Name),
				logging.String(logging.FieldEpisodeID, job.episode.ID),
				logging.Bool("recoverable", outcome.Recoverable),
				logging.Error(outcome.Err))
		} else {
			summary.Processed++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}
	return summary, ctx.Err()
}

// discover collects unseen episodes across subscriptions, newest first per
// feed, up to the per-feed cap.
func (b *Batch) discover(ctx context.Context, subscriptions []config.Subscription, opts BatchOptions) ([]batchJob, int) {
	maxPerFeed := opts.MaxPerFeed
	if maxPerFeed <= 0 {
		maxPerFeed = 1
	}

	var jobs []batchJob
	skipped := 0
	for _, subscription := range subscriptions {
		if ctx.Err() != nil {
			break
		}
		episodes, err := b.processor.reader.Fetch(ctx, subscription.URL)
		if err != nil {
			b.logger.Warn("could not fetch subscription feed",
				logging.String("subscription", subscription.Name),
				logging.String(logging.FieldFeedURL, subscription.URL),
				logging.Error(err))
			continue
		}
		taken := 0
		for _, episode := range episodes {
			if taken >= maxPerFeed {
				break
			}
			if b.seen.Seen(subscription.URL, episode.ID) {
				skipped++
				continue
			}
			jobs = append(jobs, batchJob{subscription: subscription, episode: episode})
			taken++
		}
	}
	return jobs, skipped
}

// downloadAll fans jobs out to the download pool and returns a channel of
// completed downloads. The channel closes when every job has been attempted.
func (b *Batch) downloadAll(ctx context.Context, jobs []batchJob, quiet bool) <-chan batchJob {
	pending := make(chan batchJob)
	done := make(chan batchJob)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range pending {
				if ctx.Err() != nil {
					job.err = ctx.Err()
					done <- job
					continue
				}
				job.audioPath, job.err = b.processor.Download(ctx, job.episode, quiet)
				done <- job
			}
		}()
	}

	go func() {
		for _, job := range jobs {
			pending <- job
		}
		close(pending)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}
