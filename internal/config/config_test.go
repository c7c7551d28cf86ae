package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalPrompts = `
prompts:
  summary: "summarize {{transcript}}"
  topics: "topics {{transcript}}"
  keywords: "keywords {{transcript}}"
  sponsor_detection: "sponsors {{transcript}}"
`

func TestLoadExplicitFile(t *testing.T) {
	path := writeConfig(t, `
claude:
  api_key: file-key
analysis:
  primary_provider: ollama
`+minimalPrompts)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Analysis.PrimaryProvider != "ollama" {
		t.Fatalf("primary provider = %q", cfg.Analysis.PrimaryProvider)
	}
	if cfg.Claude.Model == "" || cfg.Ollama.BaseURL == "" {
		t.Fatal("expected defaults merged under file values")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadMissingPromptKeyFails(t *testing.T) {
	path := writeConfig(t, `
prompts:
  summary: "s"
  topics: "t"
  keywords: "k"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for missing sponsor_detection prompt")
	}
	if !strings.Contains(err.Error(), "sponsor_detection") {
		t.Fatalf("error should name the missing key, got: %v", err)
	}
}

func TestEnvOverridesTakePrecedence(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	outDir := t.TempDir()
	t.Setenv("PODKNOW_OUTPUT_DIR", outDir)

	path := writeConfig(t, `
claude:
  api_key: file-key
paths:
  output_dir: /tmp/file-output
`+minimalPrompts)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Claude.APIKey != "env-key" {
		t.Fatalf("expected env override, got %q", cfg.Claude.APIKey)
	}
	if cfg.Paths.OutputDir != outDir {
		t.Fatalf("expected env output dir, got %q", cfg.Paths.OutputDir)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
mystery_section:
  value: 1
`+minimalPrompts)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown config key")
	}
}

func TestValidateProvider(t *testing.T) {
	cfg := Default()
	cfg.Analysis.PrimaryProvider = "gpt"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error when file exists")
	}

	// The sample must itself be loadable.
	if _, err := Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/.podknow/output")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, ".podknow", "output") {
		t.Fatalf("ExpandPath = %q", got)
	}
}
