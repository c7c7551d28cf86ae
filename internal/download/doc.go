// Package download implements the media fetcher: streaming HTTP downloads
// with range-request resume, transient-error retry, byte-level progress
// reporting, and magic-byte validation of the result.
//
// Validation is advisory. Many legitimate audio encodings fall outside the
// recognized signature set (ID3, raw MPEG sync, ftyp, RIFF/WAVE, OggS), so an
// unrecognized file logs a warning instead of failing the download.
package download
