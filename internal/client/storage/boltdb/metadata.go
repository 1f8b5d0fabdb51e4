package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

const (
	keyCurrentConversation = "current_conversation"
)

// SaveCurrentConversation remembers the conversation that `chat` continues
func (s *Storage) SaveCurrentConversation(ctx context.Context, conversationID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if err := bucket.Put([]byte(keyCurrentConversation), []byte(conversationID)); err != nil {
			return fmt.Errorf("failed to save current conversation: %w", err)
		}

		return nil
	})
}

// GetCurrentConversation returns the remembered conversation
// Returns empty string if none is remembered
func (s *Storage) GetCurrentConversation(ctx context.Context) (string, error) {
	var conversationID string

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Get возвращает срез, валидный только внутри транзакции
		conversationID = string(bucket.Get([]byte(keyCurrentConversation)))
		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to get current conversation: %w", err)
	}

	return conversationID, nil
}

// ClearCurrentConversation forgets the remembered conversation
func (s *Storage) ClearCurrentConversation(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if err := bucket.Delete([]byte(keyCurrentConversation)); err != nil {
			return fmt.Errorf("failed to clear current conversation: %w", err)
		}

		return nil
	})
}
