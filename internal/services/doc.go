// Package services defines shared utilities consumed by the workflow steps
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp episode IDs, step names, and correlation
//     identifiers for logging and diagnostics.
//   - Structured error markers plus the Wrap helper that classify pipeline
//     failures (fatal vs degrade-gracefully) without string matching.
//   - The shared ProviderError variant type used by every LLM backend so the
//     analyzer's fallback logic is written once against error kinds rather
//     than per-provider exception shapes.
//
// Use these helpers when wiring new step logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
