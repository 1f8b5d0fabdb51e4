// Package insights реализует диалоги администратора с ассистентом бизнес-аналитики.
// Все методы вызываются через audit.Wrap, поэтому сами не пишут журнал аудита.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/ids"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/apperror"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/obs"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/reqctx"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/validation"
)

const (
	// DefaultHistoryLimit сколько последних сообщений отправляется модели
	DefaultHistoryLimit = 20
	// TitleLen длина заголовка диалога
	TitleLen = 60
	// ReasonEmpty причина отклонения пустого сообщения
	ReasonEmpty = "EMPTY"
)

//go:generate moq -out completer_mock.go . Completer

// ChatMessage сообщение, передаваемое модели
type ChatMessage struct {
	Role    models.MessageRole
	Content string
}

// Completion ответ модели
type Completion struct {
	Content    string
	TokensUsed int
}

// Completer бэкенд генерации ответов
type Completer interface {
	Complete(ctx context.Context, history []ChatMessage) (Completion, error)
}

// Config параметры сервиса
type Config struct {
	Now          func() time.Time
	HistoryLimit int
}

// Service сервис диалогов
type Service struct {
	store        storage.ConversationStorage
	completer    Completer
	validator    *validation.SafetyValidator
	logger       *slog.Logger
	metrics      *obs.Metrics
	now          func() time.Time
	historyLimit int
}

// ChatResult результат отправки сообщения
type ChatResult struct {
	Conversation *models.Conversation
	Reply        *models.Message
}

// History диалог вместе с сообщениями
type History struct {
	Conversation *models.Conversation
	Messages     []*models.Message
}

// NewService создает сервис диалогов
func NewService(
	cfg Config,
	store storage.ConversationStorage,
	completer Completer,
	validator *validation.SafetyValidator,
	logger *slog.Logger,
	metrics *obs.Metrics,
) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validation.NewSafetyValidator(logger)
	}

	return &Service{
		store:        store,
		completer:    completer,
		validator:    validator,
		logger:       logger,
		metrics:      metrics,
		now:          now,
		historyLimit: limit,
	}
}

// SendMessage проверяет сообщение, сохраняет его и ответ модели.
// Пустой conversationID начинает новый диалог.
func (s *Service) SendMessage(ctx context.Context, adminID, conversationID, message string) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperror.Validation(ReasonEmpty, "message is required", nil)
	}

	if err := s.validator.Validate(ctx, message); err != nil {
		var rejection *validation.RejectionError
		if errors.As(err, &rejection) {
			s.metrics.InputRejected(string(rejection.Reason))
			return nil, apperror.Validation(string(rejection.Reason), rejection.Reason.Message(), err)
		}
		return nil, err
	}

	conv, err := s.openConversation(ctx, adminID, conversationID, message)
	if err != nil {
		return nil, err
	}

	userMsg := &models.Message{
		ID:             ids.NewAt(s.now()),
		ConversationID: conv.ID,
		Role:           models.MessageRoleUser,
		Content:        message,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	conv.MessageCount++

	history, err := s.store.ListMessages(ctx, conv.ID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	completion, err := s.completer.Complete(ctx, toChat(history))
	if err != nil {
		s.logger.ErrorContext(ctx, "AI completion failed",
			slog.String("conversation_id", conv.ID),
			slog.String("error", err.Error()),
		)
		// Сообщение пользователя уже сохранено, счетчики должны это отражать
		if touchErr := s.touch(context.WithoutCancel(ctx), conv); touchErr != nil {
			s.logger.ErrorContext(ctx, "Failed to update conversation", slog.String("error", touchErr.Error()))
		}
		return nil, apperror.Upstream("AI service unavailable", err)
	}

	reply := &models.Message{
		ID:             ids.NewAt(s.now()),
		ConversationID: conv.ID,
		Role:           models.MessageRoleAssistant,
		Content:        completion.Content,
		TokensUsed:     completion.TokensUsed,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, reply); err != nil {
		return nil, fmt.Errorf("failed to save reply: %w", err)
	}

	conv.MessageCount++
	conv.TotalTokens += completion.TokensUsed
	if err := s.touch(ctx, conv); err != nil {
		return nil, err
	}
	s.metrics.AITokens(completion.TokensUsed)

	s.logger.InfoContext(ctx, "Insight generated",
		slog.String("conversation_id", conv.ID),
		slog.Int("tokens", completion.TokensUsed),
	)

	return &ChatResult{Conversation: conv, Reply: reply}, nil
}

// GetConversation возвращает диалог с сообщениями. Чужой диалог не виден.
func (s *Service) GetConversation(ctx context.Context, adminID, conversationID string) (*History, error) {
	conv, err := s.store.GetConversation(ctx, adminID, conversationID)
	if err != nil {
		return nil, notFound(err)
	}

	messages, err := s.store.ListMessages(ctx, conv.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	return &History{Conversation: conv, Messages: messages}, nil
}

// ListConversations возвращает диалоги администратора, свежие первыми
func (s *Service) ListConversations(ctx context.Context, adminID string, limit int) ([]*models.Conversation, error) {
	convs, err := s.store.ListConversations(ctx, adminID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// DeleteConversation мягко удаляет диалог администратора
func (s *Service) DeleteConversation(ctx context.Context, adminID, conversationID string) error {
	if err := s.store.DeleteConversation(ctx, adminID, conversationID); err != nil {
		return notFound(err)
	}
	return nil
}

func (s *Service) openConversation(ctx context.Context, adminID, conversationID, message string) (*models.Conversation, error) {
	if conversationID != "" {
		conv, err := s.store.GetConversation(ctx, adminID, conversationID)
		if err != nil {
			return nil, notFound(err)
		}
		return conv, nil
	}

	now := s.now().UTC()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		AdminID:   adminID,
		Title:     reqctx.Truncate(message, TitleLen),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

func (s *Service) touch(ctx context.Context, conv *models.Conversation) error {
	conv.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateConversation(ctx, conv); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrConversationNotFound) {
		return apperror.NotFound("conversation not found", err)
	}
	return err
}

func toChat(messages []*models.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
