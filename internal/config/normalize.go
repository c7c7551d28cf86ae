package config

import (
	"fmt"
	"os"
	"strings"
)

// normalize applies environment overrides and expands home-relative paths.
// Environment variables take precedence over file values, but only for
// credentials and the output directory.
func (c *Config) normalize() error {
	if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Claude.APIKey = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("OLLAMA_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Ollama.BaseURL = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("PODKNOW_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}

	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProviders()
	c.normalizeTranscription()
	c.normalizeDownload()
	c.normalizeLogging()
	c.normalizeSubscriptions()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = ExpandPath(orDefault(c.Paths.OutputDir, defaultOutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.MediaDir, err = ExpandPath(orDefault(c.Paths.MediaDir, defaultMediaDir)); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if c.Paths.CacheDir, err = ExpandPath(orDefault(c.Paths.CacheDir, defaultCacheDir)); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(orDefault(c.Paths.LogDir, defaultLogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProviders() {
	c.Claude.APIKey = strings.TrimSpace(c.Claude.APIKey)
	c.Claude.BaseURL = orDefault(c.Claude.BaseURL, defaultClaudeBaseURL)
	c.Claude.Model = orDefault(c.Claude.Model, defaultClaudeModel)
	if c.Claude.TimeoutSeconds <= 0 {
		c.Claude.TimeoutSeconds = defaultClaudeTimeoutSeconds
	}

	c.Ollama.BaseURL = orDefault(c.Ollama.BaseURL, defaultOllamaBaseURL)
	c.Ollama.Model = orDefault(c.Ollama.Model, defaultOllamaModel)
	if c.Ollama.TimeoutSeconds <= 0 {
		c.Ollama.TimeoutSeconds = defaultOllamaTimeoutSeconds
	}

	c.Analysis.PrimaryProvider = strings.ToLower(orDefault(c.Analysis.PrimaryProvider, defaultPrimaryProvider))
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Binary = orDefault(c.Transcription.Binary, defaultTranscriptionBinary)
	c.Transcription.Model = orDefault(c.Transcription.Model, defaultTranscriptionModel)
	if len(c.Transcription.AcceptedLanguages) == 0 {
		c.Transcription.AcceptedLanguages = []string{"en"}
		return
	}
	langs := make([]string, 0, len(c.Transcription.AcceptedLanguages))
	seen := make(map[string]struct{}, len(c.Transcription.AcceptedLanguages))
	for _, lang := range c.Transcription.AcceptedLanguages {
		normalized := strings.ToLower(strings.TrimSpace(lang))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		langs = append(langs, normalized)
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	c.Transcription.AcceptedLanguages = langs
}

func (c *Config) normalizeDownload() {
	if c.Download.MaxRetries <= 0 {
		c.Download.MaxRetries = defaultDownloadMaxRetries
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeoutSeconds
	}
	if c.Download.Concurrency <= 0 {
		c.Download.Concurrency = defaultDownloadConcurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(orDefault(c.Logging.Level, defaultLogLevel))
	c.Logging.Format = strings.ToLower(orDefault(c.Logging.Format, defaultLogFormat))
}

func (c *Config) normalizeSubscriptions() {
	subs := c.Subscriptions[:0]
	for _, sub := range c.Subscriptions {
		sub.Name = strings.TrimSpace(sub.Name)
		sub.URL = strings.TrimSpace(sub.URL)
		if sub.URL == "" {
			continue
		}
		subs = append(subs, sub)
	}
	c.Subscriptions = subs
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
