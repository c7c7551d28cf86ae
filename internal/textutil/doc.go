// Package textutil provides text processing utilities shared across the
// pipeline: filename sanitization for rendered output documents and
// whitespace normalization used when matching LLM-quoted excerpts against
// transcript text.
package textutil
