package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
)

const adminColumns = `id, name, phone_number, password_hash, role, active, locked, created_at, updated_at, last_login`

// CreateAdmin creates a new admin account
func (s *Storage) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	query := `
		INSERT INTO admins (` + adminColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		admin.ID,
		admin.Name,
		admin.PhoneNumber,
		admin.PasswordHash,
		string(admin.Role),
		admin.Active,
		admin.Locked,
		admin.CreatedAt.UTC(),
		admin.UpdatedAt.UTC(),
		nullTime(admin.LastLogin),
	)

	if err != nil {
		// Проверяем на duplicate phone_number
		if isUniqueViolation(err) {
			return storage.ErrAdminAlreadyExists
		}
		return fmt.Errorf("failed to insert admin: %w", err)
	}

	return nil
}

// GetAdminByPhone retrieves admin by phone number
func (s *Storage) GetAdminByPhone(ctx context.Context, phone string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE phone_number = ?`
	return s.getAdmin(ctx, query, phone)
}

// GetAdminByID retrieves admin by ID
func (s *Storage) GetAdminByID(ctx context.Context, adminID string) (*models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = ?`
	return s.getAdmin(ctx, query, adminID)
}

// UpdateLastLogin updates the last login timestamp
func (s *Storage) UpdateLastLogin(ctx context.Context, adminID string, lastLogin time.Time) error {
	query := `UPDATE admins SET last_login = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, lastLogin.UTC(), lastLogin.UTC(), adminID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return storage.ErrAdminNotFound
	}

	return nil
}

func (s *Storage) getAdmin(ctx context.Context, query string, arg any) (*models.Admin, error) {
	admin := &models.Admin{}
	var role string
	var lastLogin sql.NullTime

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&admin.ID,
		&admin.Name,
		&admin.PhoneNumber,
		&admin.PasswordHash,
		&role,
		&admin.Active,
		&admin.Locked,
		&admin.CreatedAt,
		&admin.UpdatedAt,
		&lastLogin,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	admin.Role = models.Role(role)
	if lastLogin.Valid {
		admin.LastLogin = &lastLogin.Time
	}

	return admin, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
