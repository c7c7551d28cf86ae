// Package logging wires log/slog for the whole application.
//
// It provides:
//   - New: handler construction (console or JSON) from Options
//   - Attr aliases plus typed constructors so call sites avoid importing slog
//   - standardized field keys (component, stage, episode_id, correlation_id)
//   - WithContext, which stamps workflow context values onto a logger
//   - NewNop and NewComponentLogger helpers for constructors and tests
//
// Every package logs through a component logger so structured output stays
// uniform across the pipeline.
package logging
