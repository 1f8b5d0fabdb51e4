package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/ids"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
)

func createTestConversation(t *testing.T, ctx context.Context, s *Storage, adminID string, updatedAt time.Time) *models.Conversation {
	t.Helper()
	conv := &models.Conversation{
		ID:        uuid.New().String(),
		AdminID:   adminID,
		Title:     "Q3 revenue",
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
	require.NoError(t, s.CreateConversation(ctx, conv))
	return conv
}

func TestConversationStorage_GetOwnership(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	conv := createTestConversation(t, ctx, s, "admin-1", time.Now())

	got, err := s.GetConversation(ctx, "admin-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.Title, got.Title)
	assert.False(t, got.Deleted)

	_, err = s.GetConversation(ctx, "admin-2", conv.ID)
	assert.ErrorIs(t, err, storage.ErrConversationNotFound)

	_, err = s.GetConversation(ctx, "admin-1", "missing")
	assert.ErrorIs(t, err, storage.ErrConversationNotFound)
}

func TestConversationStorage_ListOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	oldest := createTestConversation(t, ctx, s, "admin-1", base)
	middle := createTestConversation(t, ctx, s, "admin-1", base.Add(time.Minute))
	newest := createTestConversation(t, ctx, s, "admin-1", base.Add(2*time.Minute))
	createTestConversation(t, ctx, s, "admin-2", base.Add(3*time.Minute))

	list, err := s.ListConversations(ctx, "admin-1", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{newest.ID, middle.ID, oldest.ID}, []string{list[0].ID, list[1].ID, list[2].ID})

	list, err = s.ListConversations(ctx, "admin-1", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.ListConversations(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConversationStorage_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	conv := createTestConversation(t, ctx, s, "admin-1", time.Now())

	conv.MessageCount = 2
	conv.TotalTokens = 120
	conv.UpdatedAt = time.Now().Add(time.Minute)
	require.NoError(t, s.UpdateConversation(ctx, conv))

	got, err := s.GetConversation(ctx, "admin-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
	assert.Equal(t, 120, got.TotalTokens)

	assert.ErrorIs(t, s.DeleteConversation(ctx, "admin-2", conv.ID), storage.ErrConversationNotFound)
	require.NoError(t, s.DeleteConversation(ctx, "admin-1", conv.ID))
	assert.ErrorIs(t, s.DeleteConversation(ctx, "admin-1", conv.ID), storage.ErrConversationNotFound)

	_, err = s.GetConversation(ctx, "admin-1", conv.ID)
	assert.ErrorIs(t, err, storage.ErrConversationNotFound)

	assert.ErrorIs(t, s.UpdateConversation(ctx, conv), storage.ErrConversationNotFound)

	list, err := s.ListConversations(ctx, "admin-1", 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConversationStorage_Messages(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	conv := createTestConversation(t, ctx, s, "admin-1", time.Now())

	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	contents := []string{"first", "second", "third", "fourth"}
	for i, content := range contents {
		role := models.MessageRoleUser
		if i%2 == 1 {
			role = models.MessageRoleAssistant
		}
		at := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.AppendMessage(ctx, &models.Message{
			ID:             ids.NewAt(at),
			ConversationID: conv.ID,
			Role:           role,
			Content:        content,
			TokensUsed:     10 * i,
			CreatedAt:      at,
		}))
	}

	all, err := s.ListMessages(ctx, conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, msg := range all {
		assert.Equal(t, contents[i], msg.Content)
	}
	assert.Equal(t, models.MessageRoleAssistant, all[1].Role)
	assert.Equal(t, 30, all[3].TokensUsed)

	last, err := s.ListMessages(ctx, conv.ID, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "third", last[0].Content)
	assert.Equal(t, "fourth", last[1].Content)
}
