// Package transcription wraps an external Whisper-class speech-to-text
// engine and enriches its raw timed segments.
//
// On top of the engine invocation it provides:
//   - language detection plus a configurable language gate that rejects
//     audio outside the accepted set with a distinct error marker
//   - a deterministic paragraph-boundary heuristic over segment timing,
//     punctuation, and discourse cues
//   - duration-weighted confidence aggregation across segments
//
// The engine is driven as an external command with an injectable runner so
// tests never need the real binary.
package transcription
