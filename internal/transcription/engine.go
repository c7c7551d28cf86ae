package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	langpkg "podknow/internal/language"
	"podknow/internal/logging"
	"podknow/internal/services"
)

// Config captures runtime settings for the speech-to-text engine.
type Config struct {
	// Binary is the engine executable (e.g. "whisper").
	Binary string
	// Model is the engine model name (e.g. "base", "large-v3").
	Model string
	// AcceptedLanguages is the set the language gate admits.
	AcceptedLanguages []string
	// EnforceLanguage rejects audio outside the accepted set when true;
	// otherwise a mismatch is the caller's warning to log.
	EnforceLanguage bool
}

const (
	defaultBinary = "whisper"
	defaultModel  = "base"
	outputFormat  = "json"
)

// Service drives the external transcription engine.
type Service struct {
	cfg           Config
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a transcription service with the given configuration.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if len(cfg.AcceptedLanguages) == 0 {
		cfg.AcceptedLanguages = []string{"en"}
	}
	return &Service{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "transcription"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

func (s *Service) run(ctx context.Context, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.cfg.Binary, args...)
	}
	cmd := exec.CommandContext(ctx, s.cfg.Binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", s.cfg.Binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// enginePayload is the JSON structure the engine writes alongside the audio.
type enginePayload struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// DetectLanguage runs the engine's detection pass and returns the ISO 639-1
// code it reports.
func (s *Service) DetectLanguage(ctx context.Context, audioPath string) (string, error) {
	if strings.TrimSpace(audioPath) == "" {
		return "", services.Wrap(services.ErrValidation, "language_detection", "detect", "audio path required", nil)
	}
	outputDir := filepath.Dir(audioPath)
	args := []string{
		audioPath,
		"--model", s.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", outputFormat,
		"--detect-language-only",
	}
	if err := s.run(ctx, args...); err != nil {
		return "", fmt.Errorf("language detection: %w", err)
	}
	payload, err := s.loadPayload(audioPath, outputDir)
	if err != nil {
		return "", fmt.Errorf("language detection: %w", err)
	}
	code := langpkg.ToISO2(payload.Language)
	if code == "" {
		return "", fmt.Errorf("language detection: engine reported unrecognized language %q", payload.Language)
	}
	return code, nil
}

// Gate enforces the configured language policy against a detected code. It
// returns a distinct language-rejected condition so the orchestrator can
// report it separately from transcription failures. Lenient configurations
// always pass; the mismatch is the caller's warning to record.
func (s *Service) Gate(detected string) error {
	if !s.cfg.EnforceLanguage {
		return nil
	}
	if langpkg.InSet(detected, s.cfg.AcceptedLanguages) {
		return nil
	}
	return services.Wrap(services.ErrLanguageRejected, "language_detection", "gate",
		fmt.Sprintf("detected %s, accepted %s",
			langpkg.DisplayName(detected), strings.Join(s.cfg.AcceptedLanguages, ", ")), nil)
}

// Accepts reports whether the detected language is inside the accepted set,
// regardless of enforcement mode.
func (s *Service) Accepts(detected string) bool {
	return langpkg.InSet(detected, s.cfg.AcceptedLanguages)
}

// Transcribe runs the engine over the audio file and returns the enriched
// transcript: raw segments scored, empty segments dropped, paragraph starts
// derived.
func (s *Service) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	var empty Transcript
	if strings.TrimSpace(audioPath) == "" {
		return empty, services.Wrap(services.ErrValidation, "transcription", "transcribe", "audio path required", nil)
	}

	started := time.Now()
	outputDir := filepath.Dir(audioPath)
	args := []string{
		audioPath,
		"--model", s.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", outputFormat,
	}
	if len(s.cfg.AcceptedLanguages) == 1 {
		if code := langpkg.ToISO2(s.cfg.AcceptedLanguages[0]); code != "" {
			args = append(args, "--language", code)
		}
	}

	if err := s.run(ctx, args...); err != nil {
		return empty, fmt.Errorf("transcription: %w", err)
	}
	payload, err := s.loadPayload(audioPath, outputDir)
	if err != nil {
		return empty, fmt.Errorf("transcription: %w", err)
	}
	if len(payload.Segments) == 0 {
		return empty, fmt.Errorf("transcription: engine produced no segments for %s", audioPath)
	}

	confidence := AggregateConfidence(payload.Segments)

	segments := make([]Segment, 0, len(payload.Segments))
	for _, segment := range payload.Segments {
		if strings.TrimSpace(segment.Text) == "" {
			continue
		}
		segment.Text = strings.TrimSpace(segment.Text)
		segments = append(segments, segment)
	}
	MarkParagraphs(segments)

	transcript := Transcript{
		Segments:           segments,
		Language:           langpkg.ToISO2(payload.Language),
		Confidence:         confidence,
		ProcessingDuration: time.Since(started),
	}

	logging.WithContext(ctx, s.logger).Info("transcription completed",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.String("language", transcript.Language),
		logging.Int("segment_count", len(segments)),
		logging.Float64("confidence", transcript.Confidence),
		logging.Duration("processing_duration", transcript.ProcessingDuration))
	return transcript, nil
}

// loadPayload reads the engine's JSON output for the given audio file.
func (s *Service) loadPayload(audioPath, outputDir string) (enginePayload, error) {
	var payload enginePayload
	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return payload, fmt.Errorf("read engine output: %w", err)
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse engine output %s: %w", jsonPath, err)
	}
	return payload, nil
}
