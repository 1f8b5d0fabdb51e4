package storage

import "errors"

// Common client storage errors
var (
	// ErrSessionNotFound indicates that no saved session exists (not logged in)
	ErrSessionNotFound = errors.New("session not found")
)
