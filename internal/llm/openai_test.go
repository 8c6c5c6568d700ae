package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/lingoscope/internal/model"
)

func chatServer(t *testing.T, content string, check func(r *http.Request, req openai.ChatCompletionRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(r, req)
		}

		resp := openai.ChatCompletionResponse{
			ID:      "chatcmpl-123",
			Object:  "chat.completion",
			Created: 1677652288,
			Model:   req.Model,
			Choices: []openai.ChatCompletionChoice{
				{
					Index: 0,
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: content,
					},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{TotalTokens: 120},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func sampleReport() model.Report {
	return model.Report{
		Text:  "I has one error in this text.",
		Level: model.LevelA1A2,
		Stats: model.TextStats{Words: 7, Sentences: 1, AvgSentenceLen: 7},
		Errors: []model.ErrorRecord{
			{Error: "has", Suggestion: "have", Explanation: "Agreement error", Type: "grammar"},
		},
		TypeCounts: []model.TypeCount{{Type: "grammar", Count: 1}},
	}
}

func TestOpenAIProvider_Feedback_Success(t *testing.T) {
	server := chatServer(t, "  - Use \"have\" after \"I\".  ", func(r *http.Request, req openai.ChatCompletionRequest) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("Expected model gpt-4o-mini, got %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
			t.Fatalf("Expected system and user messages, got %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, `"has" -> "have"`) {
			t.Errorf("Prompt should list the error record: %s", req.Messages[1].Content)
		}
	})
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
		Timeout: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Feedback(context.Background(), FeedbackRequest{Report: sampleReport()})
	if err != nil {
		t.Fatalf("Feedback failed: %v", err)
	}

	if resp.Feedback != "- Use \"have\" after \"I\"." {
		t.Errorf("Unexpected feedback: %q", resp.Feedback)
	}
	if resp.TokensUsed != 120 {
		t.Errorf("Expected 120 tokens, got %d", resp.TokensUsed)
	}
	if resp.Model != "gpt-4o-mini" {
		t.Errorf("Expected model gpt-4o-mini, got %s", resp.Model)
	}
}

func TestOpenAIProvider_Feedback_APIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error": {"message": "Internal Server Error", "type": "server_error"}}`},
		{"rate limit", http.StatusTooManyRequests, `{"error": {"message": "Rate limit exceeded", "type": "rate_limit_error"}}`},
		{"malformed", http.StatusOK, `{malformed json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
			if err != nil {
				t.Fatalf("Failed to create provider: %v", err)
			}

			if _, err := provider.Feedback(context.Background(), FeedbackRequest{Report: sampleReport()}); err == nil {
				t.Fatal("Expected error, got nil")
			}
		})
	}
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Fatal("Expected error for missing API key")
	}
}

func TestNewProvider_Ollama(t *testing.T) {
	server := chatServer(t, "Good work.", func(r *http.Request, req openai.ChatCompletionRequest) {
		if req.Model != "llama3.1" {
			t.Errorf("Expected default model llama3.1, got %s", req.Model)
		}
	})
	defer server.Close()

	provider, err := NewProvider(Config{Provider: "ollama", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if provider.Name() != "ollama" {
		t.Errorf("Expected ollama provider, got %s", provider.Name())
	}

	resp, err := provider.Feedback(context.Background(), FeedbackRequest{Report: sampleReport()})
	if err != nil {
		t.Fatalf("Feedback failed: %v", err)
	}
	if resp.Feedback != "Good work." {
		t.Errorf("Unexpected feedback: %q", resp.Feedback)
	}
}
