// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"podknow/internal/config"
)

// NewConfig returns a fully defaulted configuration whose directories all
// live under the test's temporary directory.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths = config.Paths{
		OutputDir: filepath.Join(base, "output"),
		MediaDir:  filepath.Join(base, "media"),
		CacheDir:  filepath.Join(base, "cache"),
		LogDir:    filepath.Join(base, "logs"),
	}
	return &cfg
}
