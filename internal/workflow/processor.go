package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"podknow/internal/analysis"
	"podknow/internal/config"
	"podknow/internal/download"
	"podknow/internal/feed"
	"podknow/internal/logging"
	"podknow/internal/render"
	"podknow/internal/services"
	"podknow/internal/sponsor"
	"podknow/internal/transcription"
)

// Options adjusts a single workflow invocation.
type Options struct {
	// SkipAnalysis renders a transcription-only document without calling any
	// provider.
	SkipAnalysis bool
	// SkipLanguageDetection bypasses the detection pass and the language gate.
	SkipLanguageDetection bool
	// Quiet suppresses the interactive download progress bar.
	Quiet bool
}

// Result is the outcome of one processed episode.
type Result struct {
	Episode      feed.Episode
	OutputPath   string
	Transcript   transcription.Transcript
	SponsorCount int
	AnalysisMeta map[string]string
	State        *State
}

// Processor wires the pipeline stages together for one episode at a time.
type Processor struct {
	cfg         *config.Config
	reader      *feed.Reader
	fetcher     *download.Fetcher
	transcriber *transcription.Service
	analyzer    *analysis.Analyzer
	aligner     *sponsor.Aligner
	logger      *slog.Logger
	now         func() time.Time
}

// NewProcessor builds a processor. analyzer may be nil when analysis is
// disabled outright.
func NewProcessor(
	cfg *config.Config,
	reader *feed.Reader,
	fetcher *download.Fetcher,
	transcriber *transcription.Service,
	analyzer *analysis.Analyzer,
	aligner *sponsor.Aligner,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		cfg:         cfg,
		reader:      reader,
		fetcher:     fetcher,
		transcriber: transcriber,
		analyzer:    analyzer,
		aligner:     aligner,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		now:         time.Now,
	}
}

// Discover fetches the feed and selects an episode. An empty identifier
// selects the newest episode.
func (p *Processor) Discover(ctx context.Context, feedURL, identifier string) (feed.Episode, error) {
	episodes, err := p.reader.Fetch(ctx, feedURL)
	if err != nil {
		return feed.Episode{}, err
	}
	if identifier == "" {
		if len(episodes) == 0 {
			return feed.Episode{}, services.Wrap(services.ErrNotFound, string(StepDiscovery), "select", "feed has no episodes", nil)
		}
		return episodes[0], nil
	}
	return feed.Select(episodes, identifier)
}

// ProcessFeed runs the full pipeline against one feed: discovery through
// output generation.
func (p *Processor) ProcessFeed(ctx context.Context, feedURL, identifier string, opts Options) (*Result, error) {
	state := NewState()
	state.Begin(StepDiscovery)

	episode, err := p.Discover(ctx, feedURL, identifier)
	if err != nil {
		state.Fail(StepDiscovery, err)
		return &Result{State: state}, err
	}
	state.Complete(StepDiscovery)

	return p.processEpisode(ctx, episode, state, opts)
}

// ProcessEpisode runs the pipeline for an already-discovered episode.
func (p *Processor) ProcessEpisode(ctx context.Context, episode feed.Episode, opts Options) (*Result, error) {
	state := NewState()
	state.Complete(StepDiscovery)
	return p.processEpisode(ctx, episode, state, opts)
}

func (p *Processor) processEpisode(ctx context.Context, episode feed.Episode, state *State, opts Options) (*Result, error) {
	ctx = services.WithEpisodeID(ctx, episode.ID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("processing episode",
		logging.String(logging.FieldEventType, "episode_start"),
		logging.String("title", episode.Title),
		logging.String(logging.FieldFeedURL, episode.FeedURL))

	state.Begin(StepDownload)
	audioPath, err := p.Download(ctx, episode, opts.Quiet)
	if err != nil {
		state.Fail(StepDownload, err)
		return &Result{Episode: episode, State: state}, err
	}
	state.Complete(StepDownload)

	return p.processDownloaded(ctx, episode, audioPath, state, opts)
}

// Download fetches the episode media into the configured media directory and
// returns the local path. The caller owns cleanup of the returned file;
// ProcessDownloaded takes that ownership over.
func (p *Processor) Download(ctx context.Context, episode feed.Episode, quiet bool) (string, error) {
	dest := p.audioDestination(episode)
	err := p.fetcher.Download(services.WithStep(ctx, string(StepDownload)), download.Request{
		URL:         episode.MediaURL,
		Destination: dest,
		Quiet:       quiet,
	})
	if err != nil {
		return "", err
	}
	return dest, nil
}

// ProcessDownloaded runs the pipeline from language detection onward for an
// episode whose media is already on disk. Ownership of the audio file
// transfers here: it is removed exactly once, whichever way this call exits.
func (p *Processor) ProcessDownloaded(ctx context.Context, episode feed.Episode, audioPath string, opts Options) (*Result, error) {
	state := NewState()
	state.Complete(StepDiscovery)
	state.Complete(StepDownload)
	return p.processDownloaded(ctx, episode, audioPath, state, opts)
}

func (p *Processor) processDownloaded(ctx context.Context, episode feed.Episode, audioPath string, state *State, opts Options) (result *Result, err error) {
	ctx = services.WithEpisodeID(ctx, episode.ID)
	logger := logging.WithContext(ctx, p.logger)
	result = &Result{Episode: episode, State: state}

	// Single point of cleanup for the downloaded media and the engine's JSON
	// sidecar, covering every exit path below.
	defer p.removeAudio(audioPath, logger)

	// Failures carry the recoverability verdict: whether enough milestones
	// completed that the detailed state is worth surfacing to the caller.
	defer func() {
		if err != nil {
			logger.Error("episode processing failed",
				logging.String(logging.FieldEventType, "episode_failed"),
				logging.String(logging.FieldStage, string(state.Current)),
				logging.Bool("recoverable", state.Recoverable()),
				logging.Error(err))
		}
	}()

	detectedLanguage := ""
	if !opts.SkipLanguageDetection && !p.cfg.Transcription.SkipDetection {
		state.Begin(StepLanguageDetection)
		stepCtx := services.WithStep(ctx, string(StepLanguageDetection))
		code, detectErr := p.transcriber.DetectLanguage(stepCtx, audioPath)
		switch {
		case detectErr != nil:
			// Detection mechanics failing is not a language rejection; the
			// transcription pass still pins the language itself.
			state.Warn(StepLanguageDetection, detectErr.Error())
			logger.Warn("language detection failed, continuing",
				logging.Error(detectErr),
				logging.String(logging.FieldImpact, "language gate skipped"))
		default:
			if gateErr := p.transcriber.Gate(code); gateErr != nil {
				state.Fail(StepLanguageDetection, gateErr)
				return result, gateErr
			}
			if !p.transcriber.Accepts(code) {
				state.Warn(StepLanguageDetection, fmt.Sprintf("detected language %q outside accepted set", code))
			}
			detectedLanguage = code
			state.Complete(StepLanguageDetection)
		}
	}

	state.Begin(StepTranscription)
	transcript, err := p.transcriber.Transcribe(services.WithStep(ctx, string(StepTranscription)), audioPath)
	if err != nil {
		state.Fail(StepTranscription, err)
		return result, err
	}
	state.Complete(StepTranscription)
	if transcript.Language == "" {
		transcript.Language = detectedLanguage
	}
	result.Transcript = transcript

	transcriptText := transcript.Text()
	doc := render.Document{
		Episode:       episode,
		TranscribedAt: p.now().UTC(),
		Language:      transcript.Language,
		Transcript:    transcriptText,
	}

	if !opts.SkipAnalysis && !p.cfg.Analysis.Skip && p.analyzer != nil {
		state.Begin(StepAnalysis)
		analysisResult, analysisErr := p.analyzer.Analyze(services.WithStep(ctx, string(StepAnalysis)), episode.Title, transcriptText)
		if analysisErr != nil {
			// The one deliberately non-fatal step: fall back to a
			// transcription-only document.
			state.Warn(StepAnalysis, analysisErr.Error())
			logger.Warn("analysis failed, producing transcription-only output",
				logging.Error(analysisErr),
				logging.String(logging.FieldImpact, "summary, topics, and keywords omitted"))
		} else {
			state.Complete(StepAnalysis)
			result.AnalysisMeta = analysisResult.Metadata
			doc.Summary = analysisResult.Summary
			doc.Topics = analysisResult.Topics
			doc.Keywords = analysisResult.Keywords
			if p.cfg.Analysis.SponsorMarkers && len(analysisResult.Sponsors) > 0 {
				annotated, count := p.aligner.Annotate(transcriptText, analysisResult.Sponsors)
				doc.Transcript = annotated
				doc.SponsorCount = count
				result.SponsorCount = count
			}
		}
	}

	state.Begin(StepOutput)
	outputPath, err := render.Write(p.cfg.Paths.OutputDir, doc)
	if err != nil {
		state.Fail(StepOutput, err)
		return result, err
	}
	state.Complete(StepOutput)
	result.OutputPath = outputPath

	logger.Info("episode processed",
		logging.String(logging.FieldEventType, "episode_complete"),
		logging.String("output_path", outputPath),
		logging.Duration("elapsed", state.Elapsed()))
	return result, nil
}

// audioDestination places media files under the media directory, named by
// the stable episode identifier so interrupted downloads resume.
func (p *Processor) audioDestination(episode feed.Episode) string {
	ext := ".mp3"
	if parsed, err := url.Parse(episode.MediaURL); err == nil {
		if got := path.Ext(parsed.Path); got != "" && len(got) <= 5 {
			ext = got
		}
	}
	return filepath.Join(p.cfg.Paths.MediaDir, episode.ID+ext)
}

func (p *Processor) removeAudio(audioPath string, logger *slog.Logger) {
	sidecar := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".json"
	for _, stale := range []string{audioPath, sidecar} {
		if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("could not remove temporary file",
				logging.String("path", stale),
				logging.Error(err))
		}
	}
}
