package storage

import "context"

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client state between invocations
type MetadataStorage interface {
	// SaveCurrentConversation remembers the conversation that `chat` continues
	SaveCurrentConversation(ctx context.Context, conversationID string) error

	// GetCurrentConversation returns the remembered conversation
	// Returns empty string if none is remembered
	GetCurrentConversation(ctx context.Context) (string, error)

	// ClearCurrentConversation forgets the remembered conversation
	ClearCurrentConversation(ctx context.Context) error
}
