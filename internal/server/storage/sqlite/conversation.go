package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
)

const conversationColumns = `id, admin_id, title, message_count, total_tokens, deleted, created_at, updated_at`

// CreateConversation stores a new conversation
func (s *Storage) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (` + conversationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		conv.ID,
		conv.AdminID,
		conv.Title,
		conv.MessageCount,
		conv.TotalTokens,
		conv.Deleted,
		conv.CreatedAt.UTC(),
		conv.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}

	return nil
}

// GetConversation retrieves a non-deleted conversation owned by adminID
func (s *Storage) GetConversation(ctx context.Context, adminID, conversationID string) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE id = ? AND admin_id = ? AND deleted = 0
	`

	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, conversationID, adminID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// ListConversations returns non-deleted conversations of the admin, most recently updated first
func (s *Storage) ListConversations(ctx context.Context, adminID string, limit int) ([]*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE admin_id = ? AND deleted = 0
		ORDER BY updated_at DESC, id
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, adminID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]*models.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return conversations, nil
}

// UpdateConversation updates counters, title and updated_at
func (s *Storage) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	query := `
		UPDATE conversations
		SET title = ?, message_count = ?, total_tokens = ?, updated_at = ?
		WHERE id = ? AND deleted = 0
	`

	result, err := s.db.ExecContext(ctx, query,
		conv.Title,
		conv.MessageCount,
		conv.TotalTokens,
		conv.UpdatedAt.UTC(),
		conv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	return expectOneRow(result, storage.ErrConversationNotFound)
}

// DeleteConversation soft-deletes a conversation owned by adminID
func (s *Storage) DeleteConversation(ctx context.Context, adminID, conversationID string) error {
	query := `UPDATE conversations SET deleted = 1 WHERE id = ? AND admin_id = ? AND deleted = 0`

	result, err := s.db.ExecContext(ctx, query, conversationID, adminID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	return expectOneRow(result, storage.ErrConversationNotFound)
}

// AppendMessage stores a message of a conversation
func (s *Storage) AppendMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, role, content, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		string(msg.Role),
		msg.Content,
		msg.TokensUsed,
		msg.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// ListMessages returns messages of a conversation in creation order
func (s *Storage) ListMessages(ctx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	// id - ULID, поэтому порядок по id совпадает с порядком создания
	query := `
		SELECT id, conversation_id, role, content, tokens_used, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	if limit <= 0 {
		limit = -1 // в SQLite отрицательный LIMIT означает "без ограничения"
	}

	rows, err := s.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		msg := &models.Message{}
		var role string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &msg.TokensUsed, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = models.MessageRole(role)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	// выборка шла от новых к старым, возвращаем в хронологическом порядке
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := row.Scan(
		&conv.ID,
		&conv.AdminID,
		&conv.Title,
		&conv.MessageCount,
		&conv.TotalTokens,
		&conv.Deleted,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notFound
	}

	return nil
}

func normalizeLimit(limit int) int {
	const (
		defaultLimit = 50
		maxLimit     = 500
	)
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}
