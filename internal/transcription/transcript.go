package transcription

import (
	"strings"
	"time"
)

// Segment is one timed span of transcribed speech. Confidence is optional;
// engines that do not score segments leave it nil. ParagraphStart is derived
// by the paragraph heuristic, never taken from the engine.
type Segment struct {
	Start          float64  `json:"start"`
	End            float64  `json:"end"`
	Text           string   `json:"text"`
	Confidence     *float64 `json:"confidence,omitempty"`
	ParagraphStart bool     `json:"-"`
}

// Transcript is the immutable result of transcribing one episode.
type Transcript struct {
	Segments           []Segment
	Language           string
	Confidence         float64
	ProcessingDuration time.Duration
}

// Paragraphs assembles segment texts into paragraphs using the derived
// ParagraphStart flags.
func (t Transcript) Paragraphs() []string {
	var paragraphs []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = current[:0]
		}
	}
	for _, segment := range t.Segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		if segment.ParagraphStart {
			flush()
		}
		current = append(current, text)
	}
	flush()
	return paragraphs
}

// Text renders the transcript as paragraphs separated by blank lines.
func (t Transcript) Text() string {
	return strings.Join(t.Paragraphs(), "\n\n")
}

// AggregateConfidence computes the transcript-level confidence: the
// duration-weighted average of segment confidences. When no segment carries
// a score, it falls back to the ratio of non-empty segments.
func AggregateConfidence(segments []Segment) float64 {
	if len(segments) == 0 {
		return 0
	}

	var weighted, totalDuration, sum float64
	scored := 0
	for _, segment := range segments {
		if segment.Confidence == nil {
			continue
		}
		scored++
		sum += *segment.Confidence
		duration := segment.End - segment.Start
		if duration > 0 {
			weighted += *segment.Confidence * duration
			totalDuration += duration
		}
	}
	if scored > 0 {
		if totalDuration > 0 {
			return weighted / totalDuration
		}
		return sum / float64(scored)
	}

	nonEmpty := 0
	for _, segment := range segments {
		if strings.TrimSpace(segment.Text) != "" {
			nonEmpty++
		}
	}
	return float64(nonEmpty) / float64(len(segments))
}
