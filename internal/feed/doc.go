// Package feed fetches podcast RSS/Atom feeds and extracts episode records.
//
// Parsing is tolerant: a feed-level warning does not fail the fetch, and
// entries without a title or a resolvable media enclosure are skipped with a
// logged warning. Episodes are returned newest first.
//
// Episode selection supports three strategies tried in order: exact match on
// the iTunes episode-number field, 1-based position in the feed, and title
// substring. A syntactically valid position outside [1, N] is a hard error
// and deliberately does not fall through to title search, while a non-numeric
// identifier does. That asymmetry matches long-standing observed behaviour
// and is kept for compatibility.
package feed
