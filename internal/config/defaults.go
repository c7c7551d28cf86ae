package config

const (
	defaultOutputDir = "~/.podknow/output"
	defaultMediaDir  = "~/.podknow/media"
	defaultCacheDir  = "~/.podknow/cache"
	defaultLogDir    = "~/.podknow/logs"

	defaultClaudeBaseURL        = "https://api.anthropic.com"
	defaultClaudeModel          = "claude-sonnet-4-20250514"
	defaultClaudeTimeoutSeconds = 120

	defaultOllamaBaseURL        = "http://localhost:11434"
	defaultOllamaModel          = "llama3.1"
	defaultOllamaTimeoutSeconds = 300

	defaultPrimaryProvider = "claude"

	defaultTranscriptionBinary = "whisper"
	defaultTranscriptionModel  = "base"

	defaultDownloadMaxRetries     = 3
	defaultDownloadTimeoutSeconds = 600
	defaultDownloadConcurrency    = 3

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Built-in prompt templates, used when no config file exists at all.
const (
	defaultSummaryPrompt = `Summarize this podcast episode transcript in 2-3 paragraphs. ` +
		`Focus on the main discussion points and conclusions. Respond with the summary text only.

Episode: {{title}}

Transcript:
{{transcript}}`

	defaultTopicsPrompt = `List the main topics covered in this podcast episode transcript. ` +
		`Format each topic as a numbered line: "N. **Topic Name**: one-sentence description".

Episode: {{title}}

Transcript:
{{transcript}}`

	defaultKeywordsPrompt = `Extract 10-15 keywords and key phrases from this podcast episode transcript. ` +
		`Respond with a single comma-separated line of keywords.

Episode: {{title}}

Transcript:
{{transcript}}`

	defaultSponsorPrompt = `Identify sponsored or promotional segments in this podcast transcript. ` +
		`Respond with a JSON array only. Each element must be an object with "start_text" ` +
		`(short literal excerpt where the segment begins), "end_text" (short literal excerpt ` +
		`where it ends), and "confidence" (0 to 1). Respond with [] if there are none.

Transcript:
{{transcript}}`
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			MediaDir:  defaultMediaDir,
			CacheDir:  defaultCacheDir,
			LogDir:    defaultLogDir,
		},
		Claude: Claude{
			BaseURL:        defaultClaudeBaseURL,
			Model:          defaultClaudeModel,
			TimeoutSeconds: defaultClaudeTimeoutSeconds,
		},
		Ollama: Ollama{
			BaseURL:        defaultOllamaBaseURL,
			Model:          defaultOllamaModel,
			TimeoutSeconds: defaultOllamaTimeoutSeconds,
		},
		Analysis: Analysis{
			PrimaryProvider: defaultPrimaryProvider,
			SponsorMarkers:  true,
		},
		Transcription: Transcription{
			Binary:            defaultTranscriptionBinary,
			Model:             defaultTranscriptionModel,
			AcceptedLanguages: []string{"en"},
			EnforceLanguage:   true,
		},
		Download: Download{
			MaxRetries:     defaultDownloadMaxRetries,
			TimeoutSeconds: defaultDownloadTimeoutSeconds,
			Concurrency:    defaultDownloadConcurrency,
		},
		Prompts: Prompts{
			Summary:          defaultSummaryPrompt,
			Topics:           defaultTopicsPrompt,
			Keywords:         defaultKeywordsPrompt,
			SponsorDetection: defaultSponsorPrompt,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
