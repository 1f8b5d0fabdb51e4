package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/insights"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient(Config{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: srv.URL + "/v1",
	}, nil)
	require.NoError(t, err)
	return c
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got openai.ChatCompletionRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Model:  "test-model",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Revenue grew 12%."},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30},
		})
	})

	out, err := c.Complete(context.Background(), []insights.ChatMessage{
		{Role: models.MessageRoleUser, Content: "How is revenue?"},
		{Role: models.MessageRoleAssistant, Content: "Up."},
		{Role: models.MessageRoleUser, Content: "By how much?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew 12%.", out.Content)
	assert.Equal(t, 30, out.TokensUsed)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, got.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, got.Messages[2].Role)
	assert.Equal(t, "By how much?", got.Messages[3].Content)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Complete(context.Background(), []insights.ChatMessage{{Role: models.MessageRoleUser, Content: "hi"}})
			assert.Error(t, err)
		})
	}
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(Config{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
