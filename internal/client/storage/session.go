package storage

import (
	"context"
	"time"
)

//go:generate moq -out session_mock.go . SessionStorage

// SessionStorage defines interface for storing the admin session on client
type SessionStorage interface {
	// SaveSession stores session data, replacing the previous one
	SaveSession(ctx context.Context, session *Session) error

	// GetSession retrieves stored session data
	// Returns ErrSessionNotFound if no session exists
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession removes stored session data (logout)
	// Returns ErrSessionNotFound if no session exists
	DeleteSession(ctx context.Context) error
}

// Session represents the admin session kept between CLI invocations.
// Tokens are stored as issued by the server; the file is created with 0600 permissions.
type Session struct {
	AccessExpiresAt time.Time `json:"access_expires_at"`
	AdminID         string    `json:"admin_id"`
	Name            string    `json:"name"`
	PhoneNumber     string    `json:"phone_number"`
	Role            string    `json:"role"`
	ServerURL       string    `json:"server_url"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
}

// AccessExpired reports whether the access token is expired at now, allowing skew for clock drift
func (s *Session) AccessExpired(now time.Time, skew time.Duration) bool {
	return !now.Add(skew).Before(s.AccessExpiresAt)
}
