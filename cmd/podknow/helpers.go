package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"podknow/internal/analysis"
	"podknow/internal/config"
	"podknow/internal/download"
	"podknow/internal/feed"
	"podknow/internal/logging"
	"podknow/internal/services/claude"
	"podknow/internal/services/ollama"
	"podknow/internal/sponsor"
	"podknow/internal/transcription"
	"podknow/internal/workflow"
)

func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	outputs := []string{"stderr"}
	if cfg.Paths.LogDir != "" {
		outputs = append(outputs, filepath.Join(cfg.Paths.LogDir, "podknow.log"))
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

// buildProviders constructs the primary and fallback analysis providers from
// configuration. The fallback is whichever other provider exists.
func buildProviders(cfg *config.Config, logger *slog.Logger) (analysis.Provider, analysis.Provider) {
	prompts := analysis.PromptSet{
		Summary:          cfg.Prompts.Summary,
		Topics:           cfg.Prompts.Topics,
		Keywords:         cfg.Prompts.Keywords,
		SponsorDetection: cfg.Prompts.SponsorDetection,
	}

	claudeProvider := analysis.NewProvider(claude.NewClient(claude.Config{
		APIKey:  cfg.Claude.APIKey,
		BaseURL: cfg.Claude.BaseURL,
		Model:   cfg.Claude.Model,
		Timeout: time.Duration(cfg.Claude.TimeoutSeconds) * time.Second,
	}, logger), prompts)
	ollamaProvider := analysis.NewProvider(ollama.NewClient(ollama.Config{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   cfg.Ollama.Model,
		Timeout: time.Duration(cfg.Ollama.TimeoutSeconds) * time.Second,
	}, logger), prompts)

	if cfg.Analysis.PrimaryProvider == ollama.ProviderName {
		return ollamaProvider, claudeProvider
	}
	return claudeProvider, ollamaProvider
}

func buildProcessor(cfg *config.Config, logger *slog.Logger) *workflow.Processor {
	fetcher := download.NewFetcher(download.Config{
		MaxRetries:     cfg.Download.MaxRetries,
		TimeoutSeconds: cfg.Download.TimeoutSeconds,
	}, logger)

	transcriber := transcription.NewService(transcription.Config{
		Binary:            cfg.Transcription.Binary,
		Model:             cfg.Transcription.Model,
		AcceptedLanguages: cfg.Transcription.AcceptedLanguages,
		EnforceLanguage:   cfg.Transcription.EnforceLanguage,
	}, logger)

	var analyzer *analysis.Analyzer
	if !cfg.Analysis.Skip {
		primary, fallback := buildProviders(cfg, logger)
		analyzer = analysis.NewAnalyzer(primary, fallback, cfg.Analysis.SponsorMarkers, logger)
	}

	return workflow.NewProcessor(cfg, feed.NewReader(logger), fetcher, transcriber,
		analyzer, sponsor.NewAligner(logger), logger)
}

func stderrIsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}
