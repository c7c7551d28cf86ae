package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Topic list formats the models actually emit, in preference order: numbered
// or bulleted lines with a bolded name, then a plain "1. Name: Description"
// shape as a fallback.
var (
	boldNumberedTopic = regexp.MustCompile(`^\s*\d+\.\s+\*\*(.+?)\*\*\s*:?\s*(.*)$`)
	boldBulletedTopic = regexp.MustCompile(`^\s*[-*]\s+\*\*(.+?)\*\*\s*:?\s*(.*)$`)
	plainTopic        = regexp.MustCompile(`^\s*\d+\.\s+([^:]+?)\s*:\s+(.*)$`)
)

// ParseTopics extracts named topics from free-form model output. Lines that
// match none of the known shapes are ignored; an unparseable reply yields an
// empty list, never an error.
func ParseTopics(text string) []Topic {
	lines := strings.Split(stripCodeFences(text), "\n")

	topics := matchTopics(lines, boldNumberedTopic, boldBulletedTopic)
	if len(topics) == 0 {
		// The model skipped the bold markers entirely.
		topics = matchTopics(lines, plainTopic)
	}
	return topics
}

func matchTopics(lines []string, patterns ...*regexp.Regexp) []Topic {
	var topics []Topic
	for _, line := range lines {
		for _, pattern := range patterns {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := strings.TrimSpace(m[1])
			if name == "" {
				break
			}
			topics = append(topics, Topic{Name: name, Description: strings.TrimSpace(m[2])})
			break
		}
	}
	return topics
}

// ParseKeywords extracts a keyword list from model output. Candidate lines
// are non-empty, non-heading lines that contain a comma and do not end in a
// colon (those are lead-ins like "Here are the keywords:"). Each candidate
// line is split on commas; single-character fragments are dropped and
// duplicates are removed case-insensitively, preserving first-seen casing.
func ParseKeywords(text string) []string {
	var candidates []string
	for _, line := range strings.Split(stripCodeFences(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, ",") || strings.HasSuffix(line, ":") {
			continue
		}
		candidates = append(candidates, strings.Split(line, ",")...)
	}

	seen := make(map[string]struct{}, len(candidates))
	keywords := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		keyword := strings.TrimSpace(candidate)
		keyword = strings.Trim(keyword, `"'`)
		if len(keyword) <= 1 {
			continue
		}
		lowered := strings.ToLower(keyword)
		if _, dup := seen[lowered]; dup {
			continue
		}
		seen[lowered] = struct{}{}
		keywords = append(keywords, keyword)
	}
	return keywords
}

// ParseSponsors decodes the sponsor-detection reply. The model is asked for a
// JSON array, but replies arrive wrapped in prose or code fences, so the
// array is dug out of the surrounding text. Anything undecodable degrades to
// an empty list: sponsor detection is advisory and must never fail an
// episode.
func ParseSponsors(text string) []SponsorCandidate {
	raw := extractJSONArray(text)
	if raw == "" {
		return nil
	}
	var candidates []SponsorCandidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil
	}
	kept := candidates[:0]
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate.StartText) == "" || strings.TrimSpace(candidate.EndText) == "" {
			continue
		}
		kept = append(kept, candidate)
	}
	return kept
}

// stripCodeFences removes Markdown code fences while keeping their contents.
func stripCodeFences(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	var builder strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString("\n")
	}
	return builder.String()
}

// extractJSONArray returns the outermost JSON array embedded in text.
func extractJSONArray(text string) string {
	cleaned := stripCodeFences(text)
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return cleaned[start : end+1]
}
