package feed

import (
	"fmt"
	"strconv"
	"strings"

	"podknow/internal/services"
)

// Select resolves an episode identifier against a feed's episode list.
//
// Strategies, in order:
//
//  1. exact match on the iTunes episode-number field; wins only when it
//     yields exactly one hit
//  2. 1-based position in the list; an integer outside [1, N] is a hard
//     validation error and never falls through to title search
//  3. case-insensitive substring match against titles; an ambiguous match
//     resolves to the first hit in feed order
func Select(episodes []Episode, identifier string) (Episode, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Episode{}, services.Wrap(services.ErrValidation, "episode_discovery", "select episode", "episode identifier required", nil)
	}
	if len(episodes) == 0 {
		return Episode{}, services.Wrap(services.ErrNotFound, "episode_discovery", "select episode", "feed has no episodes", nil)
	}

	if episode, ok := selectByNumber(episodes, identifier); ok {
		return episode, nil
	}

	if position, err := strconv.Atoi(identifier); err == nil {
		if position < 1 || position > len(episodes) {
			return Episode{}, services.Wrap(services.ErrValidation, "episode_discovery", "select episode",
				fmt.Sprintf("position %d out of range [1, %d]", position, len(episodes)), nil)
		}
		return episodes[position-1], nil
	}

	if episode, ok := selectByTitle(episodes, identifier); ok {
		return episode, nil
	}

	return Episode{}, services.Wrap(services.ErrNotFound, "episode_discovery", "select episode",
		fmt.Sprintf("no episode matches %q", identifier), nil)
}

func selectByNumber(episodes []Episode, identifier string) (Episode, bool) {
	var hit Episode
	count := 0
	for _, episode := range episodes {
		if episode.EpisodeNumber != "" && episode.EpisodeNumber == identifier {
			if count == 0 {
				hit = episode
			}
			count++
		}
	}
	if count == 1 {
		return hit, true
	}
	return Episode{}, false
}

func selectByTitle(episodes []Episode, identifier string) (Episode, bool) {
	needle := strings.ToLower(identifier)
	for _, episode := range episodes {
		if strings.Contains(strings.ToLower(episode.Title), needle) {
			// First match in feed order wins, even when ambiguous.
			return episode, true
		}
	}
	return Episode{}, false
}
