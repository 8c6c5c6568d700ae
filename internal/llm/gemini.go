package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider implements the Provider interface for Google Gemini models
type GeminiProvider struct {
	config Config
	opts   []option.ClientOption
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	apiKey := strings.TrimSpace(config.APIKey)
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	return &GeminiProvider{config: config, opts: opts}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable reports whether a client can be created with the configured key
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	cl, err := genai.NewClient(ctx, p.opts...)
	if err != nil {
		return false
	}
	_ = cl.Close()
	return true
}

// Feedback generates feedback with GenerateContent
func (p *GeminiProvider) Feedback(ctx context.Context, req FeedbackRequest) (*FeedbackResponse, error) {
	call := resolveCall(req, p.config, defaultGeminiModel)
	ctx, cancel := context.WithTimeout(ctx, call.timeout)
	defer cancel()

	cl, err := genai.NewClient(ctx, p.opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	defer func() { _ = cl.Close() }()

	m := cl.GenerativeModel(call.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     ptrFloat32(0.3),
		MaxOutputTokens: ptrInt32(int32(call.maxTokens)),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := m.GenerateContent(ctx, genai.Text(call.prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return nil, errors.New("no response from gemini")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &FeedbackResponse{
		Feedback:   strings.TrimSpace(text),
		Model:      call.model,
		TokensUsed: tokens,
	}, nil
}

// firstText returns the first text part of the first candidate that has one
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

func ptrInt32(v int32) *int32 { return &v }
