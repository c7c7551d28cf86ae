// Package render serializes a processed episode to a Markdown document with
// YAML frontmatter. Documents are write-once and never read back.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"podknow/internal/analysis"
	"podknow/internal/feed"
	"podknow/internal/textutil"
)

// Document is the rendering input for one episode. Summary and Topics are
// empty when analysis was skipped or failed; the transcription section is
// always present.
type Document struct {
	Episode       feed.Episode
	TranscribedAt time.Time
	Language      string
	Keywords      []string
	SponsorCount  int
	Summary       string
	Topics        []analysis.Topic
	Transcript    string
}

// FileName derives the output file name from the episode title and its
// stable identifier. The identifier keeps re-recorded or duplicate titles
// from clobbering each other.
func FileName(episode feed.Episode) string {
	title := textutil.SanitizeFileName(episode.Title)
	if title == "" {
		title = "episode"
	}
	return fmt.Sprintf("%s-%s.md", title, episode.ID)
}

// Markdown renders the document. Frontmatter keys and body section order are
// fixed; downstream tooling greps them.
func Markdown(doc Document) string {
	var b strings.Builder

	b.WriteString("---\n")
	writeField(&b, "podcast_title", doc.Episode.PodcastTitle)
	writeField(&b, "episode_title", doc.Episode.Title)
	publication := ""
	if !doc.Episode.Published.IsZero() {
		publication = doc.Episode.Published.Format("2006-01-02")
	}
	writeField(&b, "publication_date", publication)
	writeField(&b, "duration", doc.Episode.Duration)
	writeField(&b, "transcribed_at", doc.TranscribedAt.UTC().Format(time.RFC3339))
	writeField(&b, "audio_url", doc.Episode.MediaURL)
	if doc.Language != "" {
		writeField(&b, "language", doc.Language)
	}
	fmt.Fprintf(&b, "keywords: %s\n", keywordArray(doc.Keywords))
	fmt.Fprintf(&b, "sponsor_segments_detected: %d\n", doc.SponsorCount)
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# %s\n\n", doc.Episode.Title)

	if doc.Summary != "" {
		b.WriteString("## Episode Summary\n\n")
		b.WriteString(strings.TrimSpace(doc.Summary))
		b.WriteString("\n\n")
	}

	if len(doc.Topics) > 0 {
		b.WriteString("## Topics Covered\n\n")
		for _, topic := range doc.Topics {
			if topic.Description != "" {
				fmt.Fprintf(&b, "- **%s**: %s\n", topic.Name, topic.Description)
			} else {
				fmt.Fprintf(&b, "- **%s**\n", topic.Name)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Transcription\n\n")
	b.WriteString(strings.TrimSpace(doc.Transcript))
	b.WriteString("\n")

	return b.String()
}

// Write renders the document into outputDir and returns the file path.
func Write(outputDir string, doc Document) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(outputDir, FileName(doc.Episode))
	if err := os.WriteFile(path, []byte(Markdown(doc)), 0o644); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	return path, nil
}

// writeField emits one scalar frontmatter field, quoting the value so titles
// with colons or quotes stay valid YAML.
func writeField(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "%s: %s\n", key, quote(value))
}

// keywordArray renders keywords as a JSON-style array literal.
func keywordArray(keywords []string) string {
	if len(keywords) == 0 {
		return "[]"
	}
	quoted := make([]string, len(keywords))
	for i, keyword := range keywords {
		quoted[i] = quote(keyword)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
