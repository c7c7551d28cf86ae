// Package preflight provides readiness checks for the external services
// and filesystem paths the pipeline depends on: output, media, and cache
// directories, the transcription binary, and the analysis providers.
//
// The "podknow status" command renders RunAll and CheckSystemDeps as
// tables so a broken setup is visible before any episode is processed.
// Provider checks are skipped when analysis is disabled in config.
package preflight
