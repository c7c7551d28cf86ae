// Package sponsor aligns LLM-reported sponsor segments against the real
// transcript text and splices visibility markers around them.
//
// The model anchors each segment by the text it starts and ends with, but
// models paraphrase and normalize whitespace, so anchors are located with an
// exact substring search first and a whitespace-normalized search as the
// recovery path. Candidates whose anchors cannot be located are dropped:
// a marker in the wrong place is worse than no marker.
package sponsor

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"podknow/internal/analysis"
	"podknow/internal/logging"
	"podknow/internal/textutil"
)

// Span is a located sponsor segment as byte offsets into the transcript.
type Span struct {
	Start      int
	End        int
	Confidence float64
}

// Aligner locates and annotates sponsor segments.
type Aligner struct {
	logger *slog.Logger
}

// NewAligner creates an aligner.
func NewAligner(logger *slog.Logger) *Aligner {
	return &Aligner{logger: logging.NewComponentLogger(logger, "sponsor")}
}

// Locate resolves candidates to byte spans in the transcript. The end anchor
// is searched only from the resolved start onward, so a sponsor read that
// reuses a common phrase cannot close before it opens.
func (a *Aligner) Locate(transcript string, candidates []analysis.SponsorCandidate) []Span {
	var spans []Span
	for _, candidate := range candidates {
		start, ok := locate(transcript, candidate.StartText, 0)
		if !ok {
			a.logger.Debug("dropping sponsor candidate, start anchor not found",
				logging.String("start_text", truncate(candidate.StartText, 60)))
			continue
		}
		endStart, endLen, ok := locateWithLength(transcript, candidate.EndText, start)
		if !ok {
			a.logger.Debug("dropping sponsor candidate, end anchor not found",
				logging.String("end_text", truncate(candidate.EndText, 60)))
			continue
		}
		spans = append(spans, Span{Start: start, End: endStart + endLen, Confidence: candidate.Confidence})
	}
	return spans
}

// Annotate splices sponsor markers into the transcript. Spans are applied in
// descending start order so earlier offsets stay valid while splicing. With
// no located spans the transcript is returned unchanged, byte for byte.
func (a *Aligner) Annotate(transcript string, candidates []analysis.SponsorCandidate) (string, int) {
	spans := a.Locate(transcript, candidates)
	if len(spans) == 0 {
		return transcript, 0
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start > spans[j].Start })

	annotated := transcript
	for _, span := range spans {
		percent := int(math.Round(span.Confidence * 100))
		startMarker := fmt.Sprintf("**[SPONSOR START - %d%%]**", percent)
		// Markers sit flush against the anchors at the resolved offsets;
		// the surrounding text keeps its original spacing.
		annotated = annotated[:span.Start] +
			startMarker + annotated[span.Start:span.End] + "**[SPONSOR END]**" +
			annotated[span.End:]
	}
	return annotated, len(spans)
}

// locate returns the byte offset of anchor in text at or after from.
func locate(text, anchor string, from int) (int, bool) {
	offset, _, ok := locateWithLength(text, anchor, from)
	return offset, ok
}

// locateWithLength additionally reports the matched length in the original
// text, which differs from len(anchor) when the match was recovered through
// whitespace normalization.
func locateWithLength(text, anchor string, from int) (int, int, bool) {
	anchor = strings.TrimSpace(anchor)
	if anchor == "" || from >= len(text) {
		return 0, 0, false
	}
	segment := text[from:]

	if idx := strings.Index(segment, anchor); idx >= 0 {
		return from + idx, len(anchor), true
	}

	// Recovery: compare with collapsed whitespace, then map the match back
	// to original offsets by counting words.
	normSegment := textutil.NormalizeWhitespace(segment)
	normAnchor := textutil.NormalizeWhitespace(anchor)
	if normAnchor == "" {
		return 0, 0, false
	}
	idx := strings.Index(normSegment, normAnchor)
	if idx < 0 {
		return 0, 0, false
	}
	wordsBefore := len(strings.Fields(normSegment[:idx]))
	anchorWords := len(strings.Fields(normAnchor))

	start, ok := wordStartOffset(segment, wordsBefore)
	if !ok {
		return 0, 0, false
	}
	end, ok := wordEndOffset(segment, wordsBefore+anchorWords-1)
	if !ok || end <= start {
		return 0, 0, false
	}
	return from + start, end - start, true
}

// wordStartOffset returns the byte offset where the nth (0-based) word of s
// begins.
func wordStartOffset(s string, n int) (int, bool) {
	count := 0
	inWord := false
	for i, r := range s {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			if count == n {
				return i, true
			}
			count++
			inWord = true
		}
	}
	return 0, false
}

// wordEndOffset returns the byte offset just past the nth (0-based) word of s.
func wordEndOffset(s string, n int) (int, bool) {
	count := -1
	inWord := false
	end := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
		if count == n {
			end = i + len(string(r))
		}
		if count > n {
			break
		}
	}
	if end < 0 {
		return 0, false
	}
	return end, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
