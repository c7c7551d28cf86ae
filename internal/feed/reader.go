package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podknow/internal/logging"
	"podknow/internal/services"
)

// Reader fetches and parses podcast feeds.
type Reader struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewReader constructs a feed reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{
		parser: gofeed.NewParser(),
		logger: logging.NewComponentLogger(logger, "feed"),
	}
}

// Fetch retrieves the feed at url and returns its episodes ordered newest
// first. Entries that cannot be turned into a usable episode record are
// skipped with a warning rather than failing the whole fetch.
func (r *Reader) Fetch(ctx context.Context, url string) ([]Episode, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, services.Wrap(services.ErrValidation, "episode_discovery", "fetch feed", "feed URL required", nil)
	}

	parsed, err := r.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "episode_discovery", "fetch feed", fmt.Sprintf("parse %s", url), err)
	}
	if parsed == nil {
		return nil, services.Wrap(services.ErrTransient, "episode_discovery", "fetch feed", "empty feed document", nil)
	}

	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldFeedURL, url))
	podcastTitle := strings.TrimSpace(parsed.Title)

	episodes := make([]Episode, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		episode, ok := r.episodeFromItem(item, podcastTitle, url)
		if !ok {
			logger.Warn("skipping unusable feed entry",
				logging.String(logging.FieldEventType, "feed_entry_skipped"),
				logging.String("entry_title", safeItemTitle(item)),
				logging.String(logging.FieldErrorHint, "entry lacks a title or media enclosure"),
				logging.String(logging.FieldImpact, "episode omitted from listing"))
			continue
		}
		episodes = append(episodes, episode)
	}

	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].Published.After(episodes[j].Published)
	})

	logger.Debug("feed fetched",
		logging.String("podcast_title", podcastTitle),
		logging.Int("episode_count", len(episodes)))
	return episodes, nil
}

func (r *Reader) episodeFromItem(item *gofeed.Item, podcastTitle, feedURL string) (Episode, bool) {
	if item == nil {
		return Episode{}, false
	}
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return Episode{}, false
	}
	mediaURL := enclosureURL(item)
	if mediaURL == "" {
		return Episode{}, false
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.UTC()
	}

	var duration, episodeNumber string
	if item.ITunesExt != nil {
		duration = strings.TrimSpace(item.ITunesExt.Duration)
		episodeNumber = strings.TrimSpace(item.ITunesExt.Episode)
	}

	return NewEpisode(title, strings.TrimSpace(item.Description), mediaURL, published, duration, episodeNumber, podcastTitle, feedURL), true
}

// enclosureURL resolves the downloadable media URL for an entry. Audio
// enclosures are preferred; any enclosure with a URL is accepted as fallback
// since many feeds omit or mislabel MIME types.
func enclosureURL(item *gofeed.Item) string {
	var fallback string
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		url := strings.TrimSpace(enc.URL)
		if url == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(enc.Type)), "audio/") {
			return url
		}
		if fallback == "" {
			fallback = url
		}
	}
	return fallback
}

func safeItemTitle(item *gofeed.Item) string {
	if item == nil {
		return ""
	}
	return strings.TrimSpace(item.Title)
}
