package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/pkg/api"
)

// healthCheckTimeout ограничивает время одной проверки
const healthCheckTimeout = 2 * time.Second

// HealthCheck проверка зависимости (например, ping базы данных)
type HealthCheck func(ctx context.Context) error

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	checks  map[string]HealthCheck
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, version string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		version: version,
		checks:  checks,
	}
}

// Health обрабатывает GET /api/v1/health
// Health check endpoint для мониторинга
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:  "ok",
		Version: h.version,
	}
	status := http.StatusOK

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check(ctx)
		cancel()

		if err != nil {
			h.logger.WarnContext(r.Context(), "health check failed", slog.String("check", name), slog.Any("error", err))
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	sendJSON(h.logger, w, resp, status)
}
