// Package logging builds the process slog logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/reqctx"
)

// Config настройки логгера
type Config struct {
	Output io.Writer
	Level  string // debug, info, warn, error
	Format string // json, text
}

// New создает логгер. Каждая запись дополняется correlation_id и admin_id из контекста вызова.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(out, opts)
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return slog.New(NewContextHandler(handler)), nil
}

// ParseLevel разбирает уровень логирования
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// ContextHandler добавляет к записи атрибуты области запроса
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler оборачивает handler
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

// Handle дополняет запись correlation_id и admin_id, если они есть в контексте
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if scope, ok := reqctx.ScopeFrom(ctx); ok {
		if scope.CorrelationID != "" {
			r.AddAttrs(slog.String("correlation_id", scope.CorrelationID))
		}
		if scope.AdminID != "" {
			r.AddAttrs(slog.String("admin_id", scope.AdminID))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}
