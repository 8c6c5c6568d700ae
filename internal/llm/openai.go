package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/lingoscope/internal/util"
)

// OpenAIProvider talks to any OpenAI-compatible chat API (OpenAI itself or Ollama)
type OpenAIProvider struct {
	client *openai.Client
	config Config
	name   string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	cc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cc.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	cc.HTTPClient = &http.Client{
		Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cc),
		config: config,
		name:   "openai",
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable lists models as a cheap reachability and credentials probe
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Feedback asks the chat completions endpoint for feedback on the report
func (p *OpenAIProvider) Feedback(ctx context.Context, req FeedbackRequest) (*FeedbackResponse, error) {
	call := resolveCall(req, p.config, openai.GPT4oMini)

	ctx, cancel := context.WithTimeout(ctx, call.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: call.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: call.prompt},
		},
		MaxTokens:   call.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	return &FeedbackResponse{
		Feedback:   strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:      call.model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
