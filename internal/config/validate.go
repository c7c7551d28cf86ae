package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. It runs after a config file
// has been parsed; the built-in defaults bypass it deliberately so a missing
// config file still yields a working setup.
func (c *Config) Validate() error {
	if err := c.validatePrompts(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePrompts() error {
	missing := make([]string, 0, 4)
	if strings.TrimSpace(c.Prompts.Summary) == "" {
		missing = append(missing, "summary")
	}
	if strings.TrimSpace(c.Prompts.Topics) == "" {
		missing = append(missing, "topics")
	}
	if strings.TrimSpace(c.Prompts.Keywords) == "" {
		missing = append(missing, "keywords")
	}
	if strings.TrimSpace(c.Prompts.SponsorDetection) == "" {
		missing = append(missing, "sponsor_detection")
	}
	if len(missing) > 0 {
		return fmt.Errorf("prompts.%s required (run 'podknow config init' for a template)", strings.Join(missing, ", prompts."))
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	switch c.Analysis.PrimaryProvider {
	case "claude", "ollama":
		return nil
	default:
		return fmt.Errorf("analysis.primary_provider must be \"claude\" or \"ollama\", got %q", c.Analysis.PrimaryProvider)
	}
}

func (c *Config) validateDownload() error {
	if c.Download.Concurrency > 16 {
		return errors.New("download.concurrency must be 16 or lower")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
