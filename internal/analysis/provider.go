package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Topic is one subject the episode covered.
type Topic struct {
	Name        string
	Description string
}

// SponsorCandidate is an LLM-reported sponsor read, anchored by the text it
// starts and ends with. Alignment against the real transcript happens later;
// candidates whose anchors cannot be located are dropped there.
type SponsorCandidate struct {
	StartText  string  `json:"start_text"`
	EndText    string  `json:"end_text"`
	Confidence float64 `json:"confidence"`
}

// Result is the combined outcome of all analysis calls for one episode.
type Result struct {
	Summary  string
	Topics   []Topic
	Keywords []string
	Sponsors []SponsorCandidate
	// ProcessingDuration covers every provider call made for this result,
	// fallback attempts included.
	ProcessingDuration time.Duration
	// Metadata records which provider produced the result, whether the
	// fallback was used, and the timing. Keys: provider_used,
	// primary_provider, fallback_used, duration.
	Metadata map[string]string
}

// Provider is one LLM backend capable of the four analysis operations.
type Provider interface {
	Name() string
	// Concurrent reports whether the backend tolerates the four analysis
	// calls in flight at once. Hosted APIs do; a local model does not.
	Concurrent() bool
	Summarize(ctx context.Context, title, transcript string) (string, error)
	ExtractTopics(ctx context.Context, title, transcript string) ([]Topic, error)
	ExtractKeywords(ctx context.Context, title, transcript string) ([]string, error)
	DetectSponsors(ctx context.Context, title, transcript string) ([]SponsorCandidate, error)
}

// Completer is the transport-level contract the LLM clients satisfy.
type Completer interface {
	Name() string
	Concurrent() bool
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// PromptSet holds the four prompt templates. Templates reference
// {{transcript}} and {{title}} placeholders.
type PromptSet struct {
	Summary          string
	Topics           string
	Keywords         string
	SponsorDetection string
}

const systemPrompt = "You are an assistant that analyzes podcast transcripts. Follow the requested output format exactly."

// llmProvider adapts a Completer into a Provider using the configured
// prompt templates. Both backends share this implementation; they differ
// only in transport and concurrency tolerance.
type llmProvider struct {
	completer Completer
	prompts   PromptSet
}

// NewProvider wraps an LLM client with the prompt templates.
func NewProvider(completer Completer, prompts PromptSet) Provider {
	return &llmProvider{completer: completer, prompts: prompts}
}

func (p *llmProvider) Name() string     { return p.completer.Name() }
func (p *llmProvider) Concurrent() bool { return p.completer.Concurrent() }

func (p *llmProvider) complete(ctx context.Context, template, title, transcript string) (string, error) {
	prompt := RenderPrompt(template, title, transcript)
	return p.completer.Complete(ctx, systemPrompt, prompt)
}

func (p *llmProvider) Summarize(ctx context.Context, title, transcript string) (string, error) {
	text, err := p.complete(ctx, p.prompts.Summary, title, transcript)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(stripCodeFences(text)), nil
}

func (p *llmProvider) ExtractTopics(ctx context.Context, title, transcript string) ([]Topic, error) {
	text, err := p.complete(ctx, p.prompts.Topics, title, transcript)
	if err != nil {
		return nil, fmt.Errorf("extract topics: %w", err)
	}
	return ParseTopics(text), nil
}

func (p *llmProvider) ExtractKeywords(ctx context.Context, title, transcript string) ([]string, error) {
	text, err := p.complete(ctx, p.prompts.Keywords, title, transcript)
	if err != nil {
		return nil, fmt.Errorf("extract keywords: %w", err)
	}
	return ParseKeywords(text), nil
}

func (p *llmProvider) DetectSponsors(ctx context.Context, title, transcript string) ([]SponsorCandidate, error) {
	text, err := p.complete(ctx, p.prompts.SponsorDetection, title, transcript)
	if err != nil {
		return nil, fmt.Errorf("detect sponsors: %w", err)
	}
	return ParseSponsors(text), nil
}

// RenderPrompt substitutes the {{transcript}} and {{title}} placeholders.
func RenderPrompt(template, title, transcript string) string {
	rendered := strings.ReplaceAll(template, "{{title}}", title)
	return strings.ReplaceAll(rendered, "{{transcript}}", transcript)
}
