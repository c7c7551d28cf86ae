// Package preflight verifies the runtime environment before a workflow run:
// directory access, external binaries, and analysis provider reachability.
package preflight

import (
	"context"

	"podknow/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Provider checks only run when analysis is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir))
	results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))

	if !cfg.Analysis.Skip {
		results = append(results, CheckClaude(ctx, cfg))
		results = append(results, CheckOllama(ctx, cfg))
	}

	return results
}
