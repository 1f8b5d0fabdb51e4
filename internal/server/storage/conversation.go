package storage

import (
	"context"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
)

// ConversationStorage defines interface for insights conversations persistence
type ConversationStorage interface {
	// CreateConversation stores a new conversation
	CreateConversation(ctx context.Context, conv *models.Conversation) error

	// GetConversation retrieves a non-deleted conversation owned by adminID
	// Returns ErrConversationNotFound if it doesn't exist, is deleted or belongs to another admin
	GetConversation(ctx context.Context, adminID, conversationID string) (*models.Conversation, error)

	// ListConversations returns non-deleted conversations of the admin, most recently updated first
	ListConversations(ctx context.Context, adminID string, limit int) ([]*models.Conversation, error)

	// UpdateConversation updates counters, title and updated_at
	// Returns ErrConversationNotFound if conversation doesn't exist
	UpdateConversation(ctx context.Context, conv *models.Conversation) error

	// DeleteConversation soft-deletes a conversation owned by adminID
	// Returns ErrConversationNotFound if it doesn't exist or is already deleted
	DeleteConversation(ctx context.Context, adminID, conversationID string) error

	// AppendMessage stores a message of a conversation
	AppendMessage(ctx context.Context, msg *models.Message) error

	// ListMessages returns messages of a conversation in creation order.
	// limit <= 0 returns all messages, otherwise the last limit messages.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*models.Message, error)
}
