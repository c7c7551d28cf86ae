package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.yaml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `yaml:"output_dir"`
	MediaDir  string `yaml:"media_dir"`
	CacheDir  string `yaml:"cache_dir"`
	LogDir    string `yaml:"log_dir"`
}

// Claude contains configuration for the Anthropic cloud provider.
type Claude struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Ollama contains configuration for the local inference server.
type Ollama struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Analysis controls provider selection and optional enrichment.
type Analysis struct {
	PrimaryProvider string `yaml:"primary_provider"`
	Skip            bool   `yaml:"skip"`
	SponsorMarkers  bool   `yaml:"sponsor_markers"`
}

// Transcription configures the external speech-to-text engine and the
// language gate.
type Transcription struct {
	Binary            string   `yaml:"binary"`
	Model             string   `yaml:"model"`
	AcceptedLanguages []string `yaml:"accepted_languages"`
	EnforceLanguage   bool     `yaml:"enforce_language"`
	SkipDetection     bool     `yaml:"skip_language_detection"`
}

// Download configures the media fetcher.
type Download struct {
	MaxRetries     int `yaml:"max_retries"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
	Concurrency    int `yaml:"concurrency"`
}

// Prompts holds the four analysis prompt templates. Templates may reference
// {{transcript}} and {{title}} placeholders.
type Prompts struct {
	Summary          string `yaml:"summary"`
	Topics           string `yaml:"topics"`
	Keywords         string `yaml:"keywords"`
	SponsorDetection string `yaml:"sponsor_detection"`
}

// Subscription names a feed processed by batch mode.
type Subscription struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root configuration document.
type Config struct {
	Paths         Paths          `yaml:"paths"`
	Claude        Claude         `yaml:"claude"`
	Ollama        Ollama         `yaml:"ollama"`
	Analysis      Analysis       `yaml:"analysis"`
	Transcription Transcription  `yaml:"transcription"`
	Download      Download       `yaml:"download"`
	Prompts       Prompts        `yaml:"prompts"`
	Subscriptions []Subscription `yaml:"subscriptions"`
	Logging       Logging        `yaml:"logging"`
}

// DefaultConfigPath returns the expected location of the config file.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "podknow", "config.yaml"), nil
}

// Load reads configuration from path (or the default location when path is
// empty), applies environment overrides, and validates the result. A missing
// file at the default location is not an error: built-in defaults apply,
// including the built-in prompt templates.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// A config file supplies all four prompt templates itself; the
		// built-in templates only back a fully absent file.
		cfg.Prompts = Prompts{}
		decoder := yaml.NewDecoder(strings.NewReader(string(data)))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := cfg.normalize(); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	case errors.Is(err, fs.ErrNotExist):
		if explicit {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		// No config file at all: built-in defaults, env overrides still apply.
		if err := cfg.normalize(); err != nil {
			return nil, err
		}
		return &cfg, nil
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
}

// EnsureDirectories creates every configured directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.MediaDir, c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	if strings.TrimSpace(path) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// ExpandPath expands a leading ~ to the current user's home directory.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:]), nil
	}
	return "", fmt.Errorf("unsupported home-relative path %q", path)
}
