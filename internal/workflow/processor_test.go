package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podknow/internal/analysis"
	"podknow/internal/config"
	"podknow/internal/feed"
	"podknow/internal/services"
	"podknow/internal/sponsor"
	"podknow/internal/testsupport"
	"podknow/internal/transcription"
)

// enginePayload mirrors the transcription engine's JSON sidecar for fakes.
type enginePayload struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func fakeEngineRunner(t *testing.T, language string, texts ...string) func(ctx context.Context, name string, args ...string) error {
	t.Helper()
	payload := enginePayload{Language: language}
	for i, text := range texts {
		payload.Segments = append(payload.Segments, struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		}{Start: float64(i), End: float64(i + 1), Text: text})
	}
	return func(_ context.Context, _ string, args ...string) error {
		audioPath := args[0]
		base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(filepath.Dir(audioPath), base+".json"), data, 0o644)
	}
}

// scriptedCompleter answers analysis prompts, optionally failing every call.
type scriptedCompleter struct {
	name string
	err  error
}

func (s *scriptedCompleter) Name() string     { return s.name }
func (s *scriptedCompleter) Concurrent() bool { return true }

func (s *scriptedCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	switch {
	case strings.Contains(prompt, "summary of"):
		return "A short summary.", nil
	case strings.Contains(prompt, "topics"):
		return "1. **Testing**: Coverage talk.", nil
	case strings.Contains(prompt, "keywords"):
		return "testing, go", nil
	default:
		return "[]", nil
	}
}

func testPrompts() analysis.PromptSet {
	return analysis.PromptSet{
		Summary:          "Write a summary of {{title}}: {{transcript}}",
		Topics:           "List topics: {{transcript}}",
		Keywords:         "List keywords: {{transcript}}",
		SponsorDetection: "Find sponsors: {{transcript}}",
	}
}

func testTime() time.Time {
	return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func testEpisode() feed.Episode {
	return feed.NewEpisode(
		"Episode One", "About testing.",
		"https://cdn.example.com/one.mp3",
		testTime(), "30:00", "1",
		"Test Show", "https://example.com/feed.xml",
	)
}

func newTestProcessor(t *testing.T, cfg *config.Config, completer analysis.Completer, engineRunner func(ctx context.Context, name string, args ...string) error) *Processor {
	t.Helper()
	transcriber := transcription.NewService(transcription.Config{
		Model:             cfg.Transcription.Model,
		AcceptedLanguages: cfg.Transcription.AcceptedLanguages,
		EnforceLanguage:   cfg.Transcription.EnforceLanguage,
	}, nil)
	transcriber.WithCommandRunner(engineRunner)

	var analyzer *analysis.Analyzer
	if completer != nil {
		analyzer = analysis.NewAnalyzer(analysis.NewProvider(completer, testPrompts()), nil, cfg.Analysis.SponsorMarkers, nil)
	}
	return NewProcessor(cfg, feed.NewReader(nil), nil, transcriber, analyzer, sponsor.NewAligner(nil), nil)
}

func stageAudio(t *testing.T, cfg *config.Config, episode feed.Episode) string {
	t.Helper()
	audioPath := filepath.Join(cfg.Paths.MediaDir, episode.ID+".mp3")
	if err := os.MkdirAll(cfg.Paths.MediaDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(audioPath, []byte("ID3 fake audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return audioPath
}

func TestProcessDownloadedHappyPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Analysis.SponsorMarkers = true
	episode := testEpisode()
	processor := newTestProcessor(t, cfg, &scriptedCompleter{name: "claude"},
		fakeEngineRunner(t, "en", "Welcome to the show.", "Today we talk testing."))
	audioPath := stageAudio(t, cfg, episode)

	result, err := processor.ProcessDownloaded(context.Background(), episode, audioPath, Options{})
	if err != nil {
		t.Fatalf("ProcessDownloaded returned error: %v", err)
	}

	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	output := string(data)
	for _, want := range []string{"# Episode One", "## Episode Summary", "## Topics Covered", "## Transcription", "A short summary."} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if result.AnalysisMeta[analysis.MetaProviderUsed] != "claude" {
		t.Fatalf("analysis metadata = %v", result.AnalysisMeta)
	}

	if _, statErr := os.Stat(audioPath); !os.IsNotExist(statErr) {
		t.Fatal("audio file must be removed after success")
	}
	sidecar := strings.TrimSuffix(audioPath, ".mp3") + ".json"
	if _, statErr := os.Stat(sidecar); !os.IsNotExist(statErr) {
		t.Fatal("engine sidecar must be removed after success")
	}
	if !result.State.CompletedStep(StepOutput) {
		t.Fatal("output step not recorded as completed")
	}
}

func TestProcessDownloadedAnalysisFailureDegrades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	episode := testEpisode()
	failing := &scriptedCompleter{name: "claude",
		err: &services.ProviderError{Provider: "claude", Kind: services.KindServerError, StatusCode: 500}}
	processor := newTestProcessor(t, cfg, failing,
		fakeEngineRunner(t, "en", "Some spoken words here."))
	audioPath := stageAudio(t, cfg, episode)

	result, err := processor.ProcessDownloaded(context.Background(), episode, audioPath, Options{})
	if err != nil {
		t.Fatalf("analysis failure must not fail the workflow: %v", err)
	}

	data, _ := os.ReadFile(result.OutputPath)
	output := string(data)
	if strings.Contains(output, "## Episode Summary") {
		t.Fatal("degraded document must not contain a summary section")
	}
	if !strings.Contains(output, "## Transcription") {
		t.Fatal("degraded document must still contain the transcription")
	}

	warned := false
	for _, warning := range result.State.Warnings {
		if warning.Step == StepAnalysis {
			warned = true
		}
	}
	if !warned {
		t.Fatal("analysis failure must be recorded as a warning")
	}
	if result.State.CompletedStep(StepAnalysis) {
		t.Fatal("failed analysis must not be marked completed")
	}
}

func TestProcessDownloadedLanguageRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.EnforceLanguage = true
	cfg.Transcription.AcceptedLanguages = []string{"en"}
	episode := testEpisode()
	processor := newTestProcessor(t, cfg, &scriptedCompleter{name: "claude"},
		fakeEngineRunner(t, "es", "Hola a todos."))
	audioPath := stageAudio(t, cfg, episode)

	_, err := processor.ProcessDownloaded(context.Background(), episode, audioPath, Options{})
	if !errors.Is(err, services.ErrLanguageRejected) {
		t.Fatalf("expected language-rejected marker, got %v", err)
	}
	if _, statErr := os.Stat(audioPath); !os.IsNotExist(statErr) {
		t.Fatal("audio file must be removed when the gate rejects")
	}
	entries, _ := os.ReadDir(cfg.Paths.OutputDir)
	if len(entries) != 0 {
		t.Fatal("no output file may be written for rejected audio")
	}
}

func TestProcessDownloadedTranscriptionFailureCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.SkipDetection = true
	episode := testEpisode()
	processor := newTestProcessor(t, cfg, &scriptedCompleter{name: "claude"},
		func(context.Context, string, ...string) error {
			return fmt.Errorf("engine crashed")
		})
	audioPath := stageAudio(t, cfg, episode)

	_, err := processor.ProcessDownloaded(context.Background(), episode, audioPath, Options{})
	if err == nil {
		t.Fatal("expected transcription failure")
	}
	if _, statErr := os.Stat(audioPath); !os.IsNotExist(statErr) {
		t.Fatal("audio file must be removed on transcription failure")
	}
}

func TestProcessDownloadedOutputFailureCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.SkipDetection = true
	// A regular file where the output directory should be makes the final
	// write fail after transcription has already produced its sidecar.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Paths.OutputDir = filepath.Join(blocker, "output")

	episode := testEpisode()
	processor := newTestProcessor(t, cfg, &scriptedCompleter{name: "claude"},
		fakeEngineRunner(t, "en", "Spoken words before the write fails."))
	audioPath := stageAudio(t, cfg, episode)

	result, err := processor.ProcessDownloaded(context.Background(), episode, audioPath, Options{})
	if err == nil {
		t.Fatal("expected output write failure")
	}
	if result.State.CompletedStep(StepOutput) {
		t.Fatal("failed output step must not be marked completed")
	}
	if _, statErr := os.Stat(audioPath); !os.IsNotExist(statErr) {
		t.Fatal("audio file must be removed on output failure")
	}
	sidecar := strings.TrimSuffix(audioPath, ".mp3") + ".json"
	if _, statErr := os.Stat(sidecar); !os.IsNotExist(statErr) {
		t.Fatal("engine sidecar must be removed on output failure")
	}
}

func TestProcessDownloadedFailureLogsRecoverability(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.SkipDetection = true
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Paths.OutputDir = filepath.Join(blocker, "output")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	episode := testEpisode()
	transcriber := transcription.NewService(transcription.Config{
		Model:             cfg.Transcription.Model,
		AcceptedLanguages: cfg.Transcription.AcceptedLanguages,
	}, nil)
	transcriber.WithCommandRunner(fakeEngineRunner(t, "en", "Words before the write fails."))
	processor := NewProcessor(cfg, feed.NewReader(nil), nil, transcriber, nil, sponsor.NewAligner(nil), logger)
	audioPath := stageAudio(t, cfg, episode)

	result, err := processor.ProcessDownloaded(context.Background(), episode, audioPath, Options{})
	if err == nil {
		t.Fatal("expected output write failure")
	}
	if !result.State.Recoverable() {
		t.Fatal("a post-transcription failure must be recoverable")
	}
	logged := buf.String()
	if !strings.Contains(logged, "episode processing failed") {
		t.Fatalf("failure must be logged:\n%s", logged)
	}
	if !strings.Contains(logged, "recoverable=true") {
		t.Fatalf("failure log must carry the recoverability verdict:\n%s", logged)
	}
}

func TestProcessDownloadedInterruptCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcription.SkipDetection = true
	episode := testEpisode()
	// The engine reports the cancellation the way a killed subprocess would.
	processor := newTestProcessor(t, cfg, &scriptedCompleter{name: "claude"},
		func(ctx context.Context, _ string, _ ...string) error {
			return ctx.Err()
		})
	audioPath := stageAudio(t, cfg, episode)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := processor.ProcessDownloaded(ctx, episode, audioPath, Options{})
	if err == nil {
		t.Fatal("expected failure for a cancelled context")
	}
	if _, statErr := os.Stat(audioPath); !os.IsNotExist(statErr) {
		t.Fatal("audio file must be removed after an interrupt")
	}
	entries, _ := os.ReadDir(cfg.Paths.OutputDir)
	if len(entries) != 0 {
		t.Fatal("no output file may be written after an interrupt")
	}
}

func TestProcessDownloadedSkipAnalysisOption(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	episode := testEpisode()
	completer := &scriptedCompleter{name: "claude"}
	processor := newTestProcessor(t, cfg, completer,
		fakeEngineRunner(t, "en", "Plain transcription run."))
	audioPath := stageAudio(t, cfg, episode)

	result, err := processor.ProcessDownloaded(context.Background(), episode, audioPath, Options{SkipAnalysis: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.AnalysisMeta != nil {
		t.Fatal("analysis must not run when skipped")
	}
	data, _ := os.ReadFile(result.OutputPath)
	if strings.Contains(string(data), "## Episode Summary") {
		t.Fatal("skipped analysis must yield a transcription-only document")
	}
}

func TestStateRecoverable(t *testing.T) {
	state := NewState()
	if state.Recoverable() {
		t.Fatal("empty state must not be recoverable")
	}
	state.Complete(StepLanguageDetection)
	if state.Recoverable() {
		t.Fatal("non-milestone completion must not flip recoverability")
	}
	state.Complete(StepDownload)
	if !state.Recoverable() {
		t.Fatal("milestone completion must make the state recoverable")
	}
}
