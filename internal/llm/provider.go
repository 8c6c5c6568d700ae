package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/lingoscope/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Feedback generates short writing feedback for an analysed text
	Feedback(ctx context.Context, req FeedbackRequest) (*FeedbackResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// FeedbackRequest contains the input for feedback generation
type FeedbackRequest struct {
	// Report is the analysis the feedback is based on
	Report model.Report

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// FeedbackResponse contains the generated feedback
type FeedbackResponse struct {
	// Feedback is Markdown text addressed to the writer
	Feedback string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", "gemini", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Gemini
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 600,
	}
}

const systemPrompt = "You are an experienced teacher of English as a foreign language. " +
	"You give brief, encouraging, concrete feedback on a learner's writing."

// maxPromptErrors bounds how many error records are listed in the prompt
const maxPromptErrors = 15

// BuildPrompt constructs the default feedback prompt from a report
func BuildPrompt(report model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, `A learner submitted the text below. An automatic checker found the listed issues and estimated a level.

RULES:
1. Only discuss issues from the list below or patterns they share. Do not invent new errors.
2. Do not assign a different level. The estimate is "%s" and is final.
3. Give 3-5 short bullet points, then one sentence of encouragement.
4. Do not rewrite the whole text.

Text:
"""
%s
"""

Statistics:
- Words: %d
- Sentences: %d (average %.1f words per sentence)
- Connector words: %d
- Issues found: %d

Issues by type:
`, report.Level, report.Text, report.Stats.Words, report.Stats.Sentences,
		report.Stats.AvgSentenceLen, report.Stats.Connectors, len(report.Errors))

	if len(report.TypeCounts) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, tc := range report.TypeCounts {
		fmt.Fprintf(&b, "- %s: %d\n", tc.Type, tc.Count)
	}

	b.WriteString("\nIssues:\n")
	for i, rec := range report.Errors {
		if i >= maxPromptErrors {
			fmt.Fprintf(&b, "... and %d more\n", len(report.Errors)-maxPromptErrors)
			break
		}
		fmt.Fprintf(&b, "- %q -> %q (%s): %s\n", rec.Error, rec.Suggestion, rec.Type, rec.Explanation)
	}

	return b.String()
}

var levelMention = regexp.MustCompile(`\b([ABC][12])\b`)

// mentionedLevels returns CEFR levels named in text, deduplicated in order
func mentionedLevels(text string) []string {
	seen := make(map[string]bool)
	var levels []string
	for _, m := range levelMention.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			levels = append(levels, m[1])
		}
	}
	return levels
}

// levelAllows reports whether a named level such as "B1" is part of label
func levelAllows(label model.Level, named string) bool {
	switch label {
	case model.LevelA1A2:
		return named == "A1" || named == "A2"
	case model.LevelC1C2:
		return named == "C1" || named == "C2"
	default:
		return string(label) == named
	}
}

// callSettings are the per-call values after request and config fallbacks
type callSettings struct {
	prompt    string
	model     string
	maxTokens int
	timeout   time.Duration
}

func resolveCall(req FeedbackRequest, cfg Config, defaultModel string) callSettings {
	s := callSettings{
		prompt:    req.Prompt,
		model:     strings.TrimSpace(req.Model),
		maxTokens: req.MaxTokens,
		timeout:   time.Duration(cfg.Timeout) * time.Second,
	}
	if s.prompt == "" {
		s.prompt = BuildPrompt(req.Report)
	}
	if s.model == "" {
		s.model = cfg.Model
	}
	if s.model == "" {
		s.model = defaultModel
	}
	if s.maxTokens == 0 {
		s.maxTokens = cfg.MaxTokens
	}
	if s.maxTokens == 0 {
		s.maxTokens = 600
	}
	if s.timeout == 0 {
		s.timeout = 30 * time.Second
	}
	return s
}
