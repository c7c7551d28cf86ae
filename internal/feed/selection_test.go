package feed

import (
	"errors"
	"testing"
	"time"

	"podknow/internal/services"
)

func testTime(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
}

func sampleEpisodes() []Episode {
	return []Episode{
		{ID: "aaaaaaaaaaaa", Title: "Deep Dive on Go", EpisodeNumber: "10"},
		{ID: "bbbbbbbbbbbb", Title: "Interview: Databases", EpisodeNumber: "9"},
		{ID: "cccccccccccc", Title: "Deep Dive on Rust", EpisodeNumber: "8"},
	}
}

func TestSelectByEpisodeNumber(t *testing.T) {
	episode, err := Select(sampleEpisodes(), "9")
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if episode.Title != "Interview: Databases" {
		t.Fatalf("selected %q", episode.Title)
	}
}

func TestSelectByPositionWhenNumberMisses(t *testing.T) {
	// "2" matches no episode-number field, so it resolves positionally.
	episode, err := Select(sampleEpisodes(), "2")
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if episode.Title != "Interview: Databases" {
		t.Fatalf("selected %q", episode.Title)
	}
}

func TestSelectPositionOutOfRangeIsHardError(t *testing.T) {
	_, err := Select(sampleEpisodes(), "4")
	if err == nil {
		t.Fatal("expected out-of-range error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestSelectNonNumericFallsThroughToTitle(t *testing.T) {
	episode, err := Select(sampleEpisodes(), "databases")
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if episode.Title != "Interview: Databases" {
		t.Fatalf("selected %q", episode.Title)
	}
}

func TestSelectAmbiguousTitleResolvesToFirst(t *testing.T) {
	episode, err := Select(sampleEpisodes(), "deep dive")
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if episode.Title != "Deep Dive on Go" {
		t.Fatalf("selected %q", episode.Title)
	}
}

func TestSelectNoMatch(t *testing.T) {
	_, err := Select(sampleEpisodes(), "crochet")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
}

func TestSelectEmptyFeed(t *testing.T) {
	_, err := Select(nil, "1")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
}
