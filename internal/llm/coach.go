package llm

import (
	"context"
	"fmt"

	"github.com/ppiankov/lingoscope/internal/model"
)

// Coach turns a report into optional LLM feedback
type Coach struct {
	provider Provider
	config   Config
}

// NewCoach creates a coach; an empty provider yields a disabled coach
func NewCoach(config Config) (*Coach, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}

	return &Coach{
		provider: provider,
		config:   config,
	}, nil
}

// IsEnabled reports whether a provider is configured
func (c *Coach) IsEnabled() bool {
	return c != nil && c.provider != nil
}

// ProviderName returns the configured provider's name, or ""
func (c *Coach) ProviderName() string {
	if !c.IsEnabled() {
		return ""
	}
	return c.provider.Name()
}

// Review generates feedback for report. It returns nil when disabled.
// The report's level is never changed; feedback that names another level is flagged.
func (c *Coach) Review(ctx context.Context, report model.Report) (*model.LLMFeedback, error) {
	if !c.IsEnabled() {
		return nil, nil
	}

	if !c.provider.IsAvailable(ctx) {
		return &model.LLMFeedback{
			Enabled:  false,
			Provider: c.provider.Name(),
			Warnings: []string{fmt.Sprintf("LLM provider %s is not available", c.provider.Name())},
		}, nil
	}

	resp, err := c.provider.Feedback(ctx, FeedbackRequest{
		Report:    report,
		Model:     c.config.Model,
		MaxTokens: c.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate feedback: %w", err)
	}

	feedback := &model.LLMFeedback{
		Enabled:    true,
		Provider:   c.provider.Name(),
		Model:      resp.Model,
		FeedbackMD: resp.Feedback,
		TokensUsed: resp.TokensUsed,
	}

	if resp.TokensUsed > 0 {
		feedback.Warnings = append(feedback.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}

	for _, named := range mentionedLevels(resp.Feedback) {
		if !levelAllows(report.Level, named) {
			feedback.Warnings = append(feedback.Warnings,
				fmt.Sprintf("Feedback mentions level %s; the heuristic estimate is %s", named, report.Level))
		}
	}

	return feedback, nil
}
