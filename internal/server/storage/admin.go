package storage

import (
	"context"
	"time"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
)

// AdminStorage defines interface for admin account persistence
type AdminStorage interface {
	// CreateAdmin creates a new admin account
	// Returns ErrAdminAlreadyExists if phone number is taken
	CreateAdmin(ctx context.Context, admin *models.Admin) error

	// GetAdminByPhone retrieves admin by phone number
	// Returns ErrAdminNotFound if admin doesn't exist
	GetAdminByPhone(ctx context.Context, phone string) (*models.Admin, error)

	// GetAdminByID retrieves admin by ID
	// Returns ErrAdminNotFound if admin doesn't exist
	GetAdminByID(ctx context.Context, adminID string) (*models.Admin, error)

	// UpdateLastLogin updates the last login timestamp
	UpdateLastLogin(ctx context.Context, adminID string, lastLogin time.Time) error
}
