package feed

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Episode is an immutable record extracted from one feed entry.
type Episode struct {
	ID            string
	Title         string
	Description   string
	MediaURL      string
	Published     time.Time
	Duration      string
	EpisodeNumber string
	PodcastTitle  string
	FeedURL       string
}

// episodeID derives the stable episode identifier: the first 12 hex
// characters of an MD5 digest over title, media URL, and feed URL. The
// truncation favors readable filenames over cryptographic uniqueness;
// collisions are an accepted limitation.
func episodeID(title, mediaURL, feedURL string) string {
	sum := md5.Sum([]byte(title + mediaURL + feedURL))
	return hex.EncodeToString(sum[:])[:12]
}

// NewEpisode constructs an Episode and stamps its identifier.
func NewEpisode(title, description, mediaURL string, published time.Time, duration, episodeNumber, podcastTitle, feedURL string) Episode {
	return Episode{
		ID:            episodeID(title, mediaURL, feedURL),
		Title:         title,
		Description:   description,
		MediaURL:      mediaURL,
		Published:     published,
		Duration:      duration,
		EpisodeNumber: episodeNumber,
		PodcastTitle:  podcastTitle,
		FeedURL:       feedURL,
	}
}
