package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/crypto"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/config"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
)

// bootstrapAdmin создает учетную запись SUPER_ADMIN из конфигурации, если ее еще нет.
// Существующая запись не изменяется.
func bootstrapAdmin(ctx context.Context, admins storage.AdminStorage, cfg config.Bootstrap, logger *slog.Logger) error {
	if !cfg.Enabled() {
		return nil
	}

	_, err := admins.GetAdminByPhone(ctx, cfg.Phone)
	if err == nil {
		logger.DebugContext(ctx, "bootstrap admin already exists")
		return nil
	}
	if !errors.Is(err, storage.ErrAdminNotFound) {
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	hash, err := crypto.HashPassword(cfg.Password, crypto.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	now := time.Now().UTC()
	admin := &models.Admin{
		ID:           uuid.NewString(),
		Name:         cfg.Name,
		PhoneNumber:  cfg.Phone,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := admins.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, storage.ErrAdminAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	logger.InfoContext(ctx, "bootstrap super admin created", slog.String("admin_id", admin.ID))
	return nil
}
