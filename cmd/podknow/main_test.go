package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const cliFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
<channel>
<title>CLI Test Podcast</title>
<item>
  <title>Older Episode</title>
  <pubDate>Mon, 02 Jan 2023 00:00:00 GMT</pubDate>
  <itunes:episode>1</itunes:episode>
  <itunes:duration>30:00</itunes:duration>
  <enclosure url="https://cdn.example.com/ep1.mp3" type="audio/mpeg" length="1000"/>
</item>
<item>
  <title>Newer Episode</title>
  <pubDate>Wed, 04 Jan 2023 00:00:00 GMT</pubDate>
  <itunes:episode>2</itunes:episode>
  <enclosure url="https://cdn.example.com/ep2.mp3" type="audio/mpeg" length="2000"/>
</item>
</channel>
</rss>`

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeCLIConfig writes a complete config file with every path under a temp
// directory so tests never touch the real home directory.
func writeCLIConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := fmt.Sprintf(`paths:
  output_dir: %q
  media_dir: %q
  cache_dir: %q
  log_dir: %q
claude:
  api_key: test-key
analysis:
  skip: true
transcription:
  skip_language_detection: true
prompts:
  summary: "Summarize {{title}}: {{transcript}}"
  topics: "Topics for {{title}}: {{transcript}}"
  keywords: "Keywords: {{transcript}}"
  sponsor_detection: "Sponsors: {{transcript}}"
`,
		filepath.Join(base, "output"),
		filepath.Join(base, "media"),
		filepath.Join(base, "cache"),
		filepath.Join(base, "logs"))
	path := filepath.Join(base, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.yaml")

	out, _, err := runCLI(t, "--config", target, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init must refuse to overwrite.
	if _, _, err := runCLI(t, "--config", target, "config", "init"); err == nil {
		t.Fatal("expected error on overwrite, got nil")
	}
}

func TestConfigShowMasksAPIKey(t *testing.T) {
	configPath := writeCLIConfig(t)

	out, _, err := runCLI(t, "--config", configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "test-key") {
		t.Fatalf("API key leaked into output: %q", out)
	}
	if !strings.Contains(out, "(set)") {
		t.Fatalf("expected masked key marker, got %q", out)
	}
	if !strings.Contains(out, "primary_provider: claude") {
		t.Fatalf("expected resolved defaults in output, got %q", out)
	}
}

func TestEpisodesCommandListsNewestFirst(t *testing.T) {
	configPath := writeCLIConfig(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(cliFeedXML))
	}))
	defer server.Close()

	out, _, err := runCLI(t, "--config", configPath, "episodes", server.URL)
	if err != nil {
		t.Fatalf("episodes: %v", err)
	}
	newer := strings.Index(out, "Newer Episode")
	older := strings.Index(out, "Older Episode")
	if newer < 0 || older < 0 {
		t.Fatalf("missing episodes in output: %q", out)
	}
	if newer > older {
		t.Fatalf("expected newest first, got %q", out)
	}
}

func TestProcessRejectsMissingFeedArgument(t *testing.T) {
	if _, _, err := runCLI(t, "--config", writeCLIConfig(t), "process"); err == nil {
		t.Fatal("expected usage error, got nil")
	}
}

func TestExplicitMissingConfigFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, _, err := runCLI(t, "--config", missing, "episodes", "https://example.com/feed"); err == nil {
		t.Fatal("expected error for missing explicit config, got nil")
	}
}
