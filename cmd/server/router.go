package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/handlers"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/jwt"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/middleware"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/obs"
)

const (
	healthPath  = "/api/v1/health"
	metricsPath = "/metrics"
)

// routerDeps зависимости HTTP слоя
type routerDeps struct {
	logger        *slog.Logger
	tokens        *jwt.Service
	metrics       *obs.Metrics
	loginLimiter  *middleware.RateLimiter
	authHandler   *handlers.AuthHandler
	insights      *handlers.InsightsHandler
	admin         *handlers.AdminHandler
	healthHandler *handlers.HealthHandler
}

// newRouter собирает маршруты API.
// Роли, IP-политика и лимиты админских маршрутов проверяются перехватчиком аудита внутри handlers.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	// Порядок важен: метрики видят и восстановленные паники
	r.Use(d.metrics.Instrument)
	r.Use(middleware.RecoveryMiddleware(d.logger))
	r.Use(middleware.LoggingWithSkip(d.logger, []string{healthPath, metricsPath}))

	r.Get(healthPath, d.healthHandler.Health)
	r.Handle(metricsPath, d.metrics.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(d.loginLimiter))
		r.Post("/login", d.authHandler.Login)
		r.Post("/refresh", d.authHandler.Refresh)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		// Токен только проверяется; отказ формирует перехватчик, чтобы он попал в журнал
		r.Use(middleware.OptionalAuth(d.logger, d.tokens, d.metrics))

		r.Route("/insights", func(r chi.Router) {
			r.Post("/chat", d.insights.Chat)
			r.Get("/conversations", d.insights.ListConversations)
			r.Get("/conversations/{id}", d.insights.GetConversation)
			r.Delete("/conversations/{id}", d.insights.DeleteConversation)
		})

		r.Get("/audit", d.admin.ListAudit)
		r.Get("/ip-rules", d.admin.ListRules)
		r.Post("/ip-rules", d.admin.AddRule)
		r.Delete("/ip-rules", d.admin.RemoveRule)
	})

	return r
}
