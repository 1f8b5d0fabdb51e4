package storage

import (
	"context"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
)

// AuditStorage defines interface for the append-only audit journal
type AuditStorage interface {
	// AppendAudit stores an audit entry. Entries are never updated or deleted.
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error

	// ListAudit returns entries matching the filter, newest first
	ListAudit(ctx context.Context, filter models.AuditFilter) ([]*models.AuditEntry, error)
}
