// Package seencache tracks which episodes batch mode has already processed,
// keyed by feed URL. The cache is a flat JSON file written atomically via a
// temp file and rename, so an interrupted batch run never leaves a
// half-written cache behind.
package seencache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"podknow/internal/logging"
)

const cacheVersion = 1

type cacheFile struct {
	Version int                 `json:"version"`
	Feeds   map[string][]string `json:"feeds"`
}

// Cache is a concurrency-safe seen-episode store backed by one JSON file.
type Cache struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	feeds map[string]map[string]struct{}
}

// Open loads the cache at path, creating an empty one when the file does not
// exist. A corrupt cache file is discarded with a warning rather than
// blocking the batch run; the cost is re-processing, not data loss.
func Open(path string, logger *slog.Logger) (*Cache, error) {
	cache := &Cache{
		path:   path,
		logger: logging.NewComponentLogger(logger, "seencache"),
		feeds:  make(map[string]map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seen cache: %w", err)
	}

	var decoded cacheFile
	if err := json.Unmarshal(data, &decoded); err != nil {
		cache.logger.Warn("discarding corrupt seen cache",
			logging.String("path", path),
			logging.Error(err))
		return cache, nil
	}
	for feedURL, ids := range decoded.Feeds {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		cache.feeds[feedURL] = set
	}
	return cache, nil
}

// Seen reports whether the episode has been processed for this feed.
func (c *Cache) Seen(feedURL, episodeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.feeds[feedURL][episodeID]
	return ok
}

// MarkSeen records the episode and persists the cache atomically.
func (c *Cache) MarkSeen(feedURL, episodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.feeds[feedURL]
	if !ok {
		set = make(map[string]struct{})
		c.feeds[feedURL] = set
	}
	if _, dup := set[episodeID]; dup {
		return nil
	}
	set[episodeID] = struct{}{}
	return c.persistLocked()
}

// Count returns the number of seen episodes for a feed.
func (c *Cache) Count(feedURL string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.feeds[feedURL])
}

func (c *Cache) persistLocked() error {
	out := cacheFile{Version: cacheVersion, Feeds: make(map[string][]string, len(c.feeds))}
	for feedURL, set := range c.feeds {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out.Feeds[feedURL] = ids
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode seen cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".seencache-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace seen cache: %w", err)
	}
	return nil
}
