// Package postgres stores the audit journal in a shared PostgreSQL database,
// so that several insights instances write one trail.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/models"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	defaultLimit = 100
	maxLimit     = 1000
)

var _ storage.AuditStorage = (*AuditStore)(nil)

// AuditStore implements storage.AuditStorage on PostgreSQL
type AuditStore struct {
	db *sqlx.DB
}

// auditRow mirrors admin_audit_log columns
type auditRow struct {
	Timestamp        time.Time     `db:"timestamp"`
	ProcessingTimeMs sql.NullInt64 `db:"processing_time_ms"`
	ID               string        `db:"id"`
	AdminID          string        `db:"admin_id"`
	Action           string        `db:"action"`
	ResourceID       string        `db:"resource_id"`
	Details          string        `db:"details"`
	IPAddress        string        `db:"ip_address"`
	UserAgent        string        `db:"user_agent"`
	Outcome          string        `db:"outcome"`
	CorrelationID    string        `db:"correlation_id"`
}

// New opens a connection pool and applies migrations
func New(ctx context.Context, dsn string) (*AuditStore, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := migrate(ctx, db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &AuditStore{db: db}, nil
}

// NewWithDB wraps an existing connection without running migrations
func NewWithDB(db *sqlx.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Close closes the connection pool
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// Ping verifies that the database is reachable
func (s *AuditStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func migrate(ctx context.Context, db *sql.DB) error {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// AppendAudit stores an audit entry
func (s *AuditStore) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	var processingTime sql.NullInt64
	if entry.ProcessingTimeMs != nil {
		processingTime = sql.NullInt64{Int64: *entry.ProcessingTimeMs, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`insert into admin_audit_log(id, admin_id, action, resource_id, details, ip_address, user_agent,
			outcome, processing_time_ms, correlation_id, timestamp)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
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
func (s *AuditStore) ListAudit(ctx context.Context, filter models.AuditFilter) ([]*models.AuditEntry, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.AdminID != "" {
		args = append(args, filter.AdminID)
		conditions = append(conditions, fmt.Sprintf("admin_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	args = append(args, min(limit, maxLimit))

	query := `select id, admin_id, action, resource_id, details, ip_address, user_agent,
		outcome, processing_time_ms, correlation_id, timestamp
		from admin_audit_log`
	if len(conditions) > 0 {
		query += " where " + strings.Join(conditions, " and ")
	}
	query += fmt.Sprintf(" order by timestamp desc, id desc limit $%d", len(args))

	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	entries := make([]*models.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry := &models.AuditEntry{
			ID:            row.ID,
			AdminID:       row.AdminID,
			Action:        models.AuditAction(row.Action),
			ResourceID:    row.ResourceID,
			Details:       row.Details,
			IPAddress:     row.IPAddress,
			UserAgent:     row.UserAgent,
			Outcome:       models.AuditOutcome(row.Outcome),
			CorrelationID: row.CorrelationID,
			Timestamp:     row.Timestamp,
		}
		if row.ProcessingTimeMs.Valid {
			ms := row.ProcessingTimeMs.Int64
			entry.ProcessingTimeMs = &ms
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
