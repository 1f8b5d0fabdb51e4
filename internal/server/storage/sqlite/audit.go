package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
)

// AppendAudit stores an audit entry
func (s *Storage) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO admin_audit_log (
			id, admin_id, action, resource_id, details, ip_address, user_agent,
			outcome, processing_time_ms, correlation_id, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var processingTime sql.NullInt64
	if entry.ProcessingTimeMs != nil {
		processingTime = sql.NullInt64{Int64: *entry.ProcessingTimeMs, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.AdminID,
		string(entry.Action),
		entry.ResourceID,
		entry.Details,
		entry.IPAddress,
		entry.UserAgent,
		string(entry.Outcome),
		processingTime,
		entry.CorrelationID,
		entry.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// ListAudit returns entries matching the filter, newest first
func (s *Storage) ListAudit(ctx context.Context, filter models.AuditFilter) ([]*models.AuditEntry, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.AdminID != "" {
		conditions = append(conditions, "admin_id = ?")
		args = append(args, filter.AdminID)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, string(filter.Action))
	}

	query := `
		SELECT id, admin_id, action, resource_id, details, ip_address, user_agent,
			outcome, processing_time_ms, correlation_id, timestamp
		FROM admin_audit_log`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, normalizeLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditEntry, 0)
	for rows.Next() {
		entry := &models.AuditEntry{}
		var action, outcome string
		var processingTime sql.NullInt64

		err := rows.Scan(
			&entry.ID,
			&entry.AdminID,
			&action,
			&entry.ResourceID,
			&entry.Details,
			&entry.IPAddress,
			&entry.UserAgent,
			&outcome,
			&processingTime,
			&entry.CorrelationID,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		entry.Action = models.AuditAction(action)
		entry.Outcome = models.AuditOutcome(outcome)
		if processingTime.Valid {
			ms := processingTime.Int64
			entry.ProcessingTimeMs = &ms
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, nil
}
