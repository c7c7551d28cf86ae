package transcription

import (
	"strings"
	"unicode"
)

// paragraphGapSeconds is the silence between segments that forces a new
// paragraph.
const paragraphGapSeconds = 2.0

// discourseMarkers are words that open a new paragraph after sentence-final
// punctuation.
var discourseMarkers = map[string]struct{}{
	"so":      {},
	"now":     {},
	"but":     {},
	"and":     {},
	"well":    {},
	"okay":    {},
	"alright": {},
	"um":      {},
}

// topicShiftPhrases force a paragraph break wherever they appear in a
// segment.
var topicShiftPhrases = []string{
	"moving on",
	"next up",
	"speaking of",
	"by the way",
	"anyway",
	"let me tell you",
	"here's the thing",
	"you know what",
}

// MarkParagraphs stamps ParagraphStart on each segment in order. The rules
// are heuristic by design; they trade precision for stable, deterministic
// output, and must not be tuned without updating the tests that pin them.
func MarkParagraphs(segments []Segment) {
	for i := range segments {
		if i == 0 {
			segments[i].ParagraphStart = true
			continue
		}
		segments[i].ParagraphStart = isParagraphStart(segments[i-1], segments[i])
	}
}

func isParagraphStart(prev, current Segment) bool {
	if current.Start-prev.End > paragraphGapSeconds {
		return true
	}
	if endsSentence(prev.Text) && opensParagraph(current.Text) {
		return true
	}
	return containsTopicShift(current.Text)
}

func endsSentence(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}

func opensParagraph(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	first := []rune(trimmed)[0]
	if unicode.IsUpper(first) {
		return true
	}
	words := strings.FieldsFunc(trimmed, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return false
	}
	_, ok := discourseMarkers[strings.ToLower(words[0])]
	return ok
}

func containsTopicShift(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range topicShiftPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
