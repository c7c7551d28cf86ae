package sponsor

import (
	"regexp"
	"strings"
	"testing"

	"podknow/internal/analysis"
)

var markerPattern = regexp.MustCompile(`\*\*\[SPONSOR START - \d+%\]\*\*|\*\*\[SPONSOR END\]\*\*`)

func TestAnnotateExactAnchors(t *testing.T) {
	transcript := "Welcome back. This episode is brought to you by Acme, use code PODCAST at checkout. Now back to the show."
	candidates := []analysis.SponsorCandidate{{
		StartText:  "This episode is brought to you by",
		EndText:    "use code PODCAST at checkout.",
		Confidence: 0.92,
	}}

	annotated, count := NewAligner(nil).Annotate(transcript, candidates)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if !strings.Contains(annotated, "**[SPONSOR START - 92%]**This episode is brought to you by") {
		t.Fatalf("start marker misplaced:\n%s", annotated)
	}
	if !strings.Contains(annotated, "use code PODCAST at checkout.**[SPONSOR END]**") {
		t.Fatalf("end marker misplaced:\n%s", annotated)
	}
}

func TestAnnotateMarkersFlushAgainstAnchors(t *testing.T) {
	// Markers must sit immediately against the anchor text with nothing
	// inserted between them, and the surrounding text must survive intact.
	transcript := "Intro words. This episode is sponsored by Acme. Back to the show everyone."
	candidates := []analysis.SponsorCandidate{{
		StartText:  "This episode is sponsored by",
		EndText:    "Back to the show",
		Confidence: 0.9,
	}}

	annotated, count := NewAligner(nil).Annotate(transcript, candidates)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	want := "Intro words. **[SPONSOR START - 90%]**This episode is sponsored by Acme. Back to the show**[SPONSOR END]** everyone."
	if annotated != want {
		t.Fatalf("annotated mismatch:\n got %q\nwant %q", annotated, want)
	}
}

func TestAnnotateRoundTrip(t *testing.T) {
	// Stripping the markers must recover the original transcript exactly.
	transcript := "Intro talk. Our sponsor today is Widgets Inc and they are great. More content after."
	candidates := []analysis.SponsorCandidate{{
		StartText:  "Our sponsor today is",
		EndText:    "they are great.",
		Confidence: 0.75,
	}}

	annotated, count := NewAligner(nil).Annotate(transcript, candidates)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	recovered := markerPattern.ReplaceAllString(annotated, "")
	if recovered != transcript {
		t.Fatalf("round trip mismatch:\n got %q\nwant %q", recovered, transcript)
	}
}

func TestAnnotateWhitespaceNormalizedRecovery(t *testing.T) {
	// The model collapsed the transcript's line break into a space.
	transcript := "First part. Big thanks to\nour friends at Acme for sponsoring. Back to it."
	candidates := []analysis.SponsorCandidate{{
		StartText:  "Big thanks to our friends",
		EndText:    "Acme for sponsoring.",
		Confidence: 0.8,
	}}

	annotated, count := NewAligner(nil).Annotate(transcript, candidates)
	if count != 1 {
		t.Fatalf("normalized recovery failed, count = %d\n%s", count, annotated)
	}
	if !strings.Contains(annotated, "**[SPONSOR START - 80%]**Big thanks to") {
		t.Fatalf("start marker misplaced:\n%s", annotated)
	}
	if !strings.Contains(annotated, "for sponsoring.**[SPONSOR END]**") {
		t.Fatalf("end marker misplaced:\n%s", annotated)
	}
}

func TestAnnotateDropsUnlocatable(t *testing.T) {
	transcript := "Nothing sponsored here at all."
	candidates := []analysis.SponsorCandidate{{
		StartText:  "brought to you by",
		EndText:    "promo code",
		Confidence: 0.9,
	}}

	annotated, count := NewAligner(nil).Annotate(transcript, candidates)
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
	if annotated != transcript {
		t.Fatal("transcript must pass through byte-identical when nothing is located")
	}
}

func TestAnnotateEndSearchedAfterStart(t *testing.T) {
	// "the show" appears before the sponsor read; the end anchor must not
	// resolve to that earlier occurrence.
	transcript := "Welcome to the show. Our sponsor is Acme, back to the show everyone."
	candidates := []analysis.SponsorCandidate{{
		StartText:  "Our sponsor is",
		EndText:    "the show",
		Confidence: 1.0,
	}}

	annotated, count := NewAligner(nil).Annotate(transcript, candidates)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if !strings.Contains(annotated, "back to the show**[SPONSOR END]**") {
		t.Fatalf("end anchor resolved before start:\n%s", annotated)
	}
}

func TestAnnotateMultipleSegmentsDescendingSplice(t *testing.T) {
	transcript := "Part one. Sponsor A pays us well. Middle talk. Sponsor B also pays. The end."
	candidates := []analysis.SponsorCandidate{
		{StartText: "Sponsor A", EndText: "pays us well.", Confidence: 0.6},
		{StartText: "Sponsor B", EndText: "also pays.", Confidence: 0.7},
	}

	annotated, count := NewAligner(nil).Annotate(transcript, candidates)
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	recovered := markerPattern.ReplaceAllString(annotated, "")
	if recovered != transcript {
		t.Fatalf("splicing corrupted surrounding text:\n got %q\nwant %q", recovered, transcript)
	}
	if !strings.Contains(annotated, "**[SPONSOR START - 60%]**Sponsor A") {
		t.Fatalf("first segment marker missing:\n%s", annotated)
	}
	if !strings.Contains(annotated, "**[SPONSOR START - 70%]**Sponsor B") {
		t.Fatalf("second segment marker missing:\n%s", annotated)
	}
}

func TestAnnotateConfidenceRounding(t *testing.T) {
	transcript := "The ad starts here and ends there for sure."
	candidates := []analysis.SponsorCandidate{{
		StartText:  "The ad starts here",
		EndText:    "ends there",
		Confidence: 0.857,
	}}
	annotated, _ := NewAligner(nil).Annotate(transcript, candidates)
	if !strings.Contains(annotated, "86%") {
		t.Fatalf("confidence must round to nearest percent:\n%s", annotated)
	}
}
