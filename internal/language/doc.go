// Package language provides unified language code normalization and mapping.
//
// Language-related conversions (ISO 639-1, ISO 639-2, display names, full
// word forms) are consolidated here so the transcription adapter, the
// language gate, and the renderer agree on what a detected language means.
package language
