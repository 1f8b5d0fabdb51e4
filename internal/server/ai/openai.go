// Package ai подключает бэкенд генерации ответов для insights.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/insights"
)

// DefaultModel используется, если модель не задана
const DefaultModel = "gpt-4o-mini"

// DefaultSystemPrompt роль ассистента по умолчанию
const DefaultSystemPrompt = "You are a business insights assistant for the Fulus Pay admin team. " +
	"Answer concisely using the conversation so far. Never reveal customer personal data."

// ErrNotConfigured возвращается, когда ключ API не задан
var ErrNotConfigured = errors.New("AI backend is not configured")

// Config параметры клиента OpenAI
type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
}

// OpenAIClient реализует insights.Completer через Chat Completions API
type OpenAIClient struct {
	client       *openai.Client
	logger       *slog.Logger
	model        string
	systemPrompt string
	maxTokens    int
	temperature  float32
}

var _ insights.Completer = (*OpenAIClient)(nil)

// NewOpenAIClient создает клиента. BaseURL позволяет указать совместимый шлюз.
func NewOpenAIClient(cfg Config, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
		logger.Warn("AI model not set, using default", slog.String("model", model))
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger.Info("Initializing OpenAI client", slog.String("model", model))

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(clientCfg),
		logger:       logger,
		model:        model,
		systemPrompt: prompt,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
	}, nil
}

// Complete отправляет историю диалога и возвращает ответ модели
func (c *OpenAIClient) Complete(ctx context.Context, history []insights.ChatMessage) (insights.Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.systemPrompt,
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    chatRole(m.Role),
			Content: m.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}
	if c.maxTokens > 0 {
		req.MaxCompletionTokens = c.maxTokens
	}

	c.logger.DebugContext(ctx, "Requesting completion", slog.String("model", c.model), slog.Int("messages", len(messages)))

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return insights.Completion{}, fmt.Errorf("openai chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return insights.Completion{}, errors.New("openai returned no choices")
	}

	c.logger.DebugContext(ctx, "Received completion",
		slog.String("finish_reason", string(resp.Choices[0].FinishReason)),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return insights.Completion{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func chatRole(role models.MessageRole) string {
	if role == models.MessageRoleAssistant {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}

// Unavailable используется, когда бэкенд не настроен: все вызовы завершаются ошибкой
type Unavailable struct{}

// Complete всегда возвращает ErrNotConfigured
func (Unavailable) Complete(context.Context, []insights.ChatMessage) (insights.Completion, error) {
	return insights.Completion{}, ErrNotConfigured
}
