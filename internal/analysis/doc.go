// Package analysis turns a finished transcript into structured episode
// insights: a summary, named topics, keywords, and sponsor-segment
// candidates.
//
// Providers are interchangeable LLM backends behind a single interface. The
// analyzer runs the four extraction calls against the configured primary
// provider and falls back to the secondary when the primary fails with a
// provider-class error (rate limit, outage, unreachable server). Model
// output is parsed leniently: LLMs wrap JSON in prose and code fences, so
// the parsers salvage what they can and degrade to empty results rather
// than failing the episode.
package analysis
