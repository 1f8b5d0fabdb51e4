package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/logging"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/ai"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/audit"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/config"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/handlers"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/insights"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/ippolicy"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/jwt"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/middleware"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/obs"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/ratelimit"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage/boltdb"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage/postgres"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/storage/sqlite"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/validation"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args, os.Getenv)
	if err != nil {
		return err
	}

	// Show version and exit if requested
	if cfg.ShowVersion {
		printVersion()
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Insights server starting",
		slog.String("version", Version),
		slog.String("addr", cfg.Server.Addr))

	// Основное хранилище: администраторы, диалоги и локальный журнал аудита
	store, err := sqlite.New(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open sqlite storage: %w", err)
	}
	defer closeWith(logger, "sqlite", store.Close)

	checks := map[string]handlers.HealthCheck{"sqlite": store.Ping}

	// Общий журнал в PostgreSQL заменяет локальный, если задан DSN
	var journal storage.AuditStorage = store
	if cfg.Storage.PostgresDSN != "" {
		pg, err := postgres.New(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to open postgres audit journal: %w", err)
		}
		defer closeWith(logger, "postgres", pg.Close)
		journal = pg
		checks["postgres"] = pg.Ping
		logger.InfoContext(ctx, "Audit journal: postgres")
	}

	policyStore, err := boltdb.New(ctx, cfg.Storage.BoltPath)
	if err != nil {
		return fmt.Errorf("failed to open policy storage: %w", err)
	}
	defer closeWith(logger, "boltdb", policyStore.Close)

	policy, err := ippolicy.NewManaged(ctx, policyStore, cfg.Security.AllowedIPs, logger)
	if err != nil {
		return fmt.Errorf("failed to load ip policy: %w", err)
	}

	if err := bootstrapAdmin(ctx, store, cfg.Bootstrap, logger); err != nil {
		return err
	}

	tokens, err := jwt.NewService(jwt.Config{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	metrics := obs.New()

	limiter := ratelimit.New(ratelimit.Config{
		PerMinute: cfg.RateLimit.PerMinute,
		PerHour:   cfg.RateLimit.PerHour,
	}, logger)
	defer limiter.Stop()

	loginLimiter := middleware.NewRateLimiter(cfg.RateLimit.LoginRequests, cfg.RateLimit.LoginWindow, logger)
	defer loginLimiter.Stop()

	interceptor := audit.NewInterceptor(audit.Config{
		Sink:    journal,
		Limiter: limiter,
		Policy:  policy,
		Logger:  logger,
		Metrics: metrics,
	})

	var completer insights.Completer
	client, err := ai.NewOpenAIClient(ai.Config{
		APIKey:    cfg.AI.APIKey,
		Model:     cfg.AI.Model,
		BaseURL:   cfg.AI.BaseURL,
		MaxTokens: cfg.AI.MaxTokens,
	}, logger)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		logger.WarnContext(ctx, "AI API key not set, chat replies will fail with 502")
		completer = ai.Unavailable{}
	case err != nil:
		return fmt.Errorf("failed to create AI client: %w", err)
	default:
		completer = client
	}

	svc := insights.NewService(
		insights.Config{HistoryLimit: cfg.AI.HistoryLimit},
		store,
		completer,
		validation.NewSafetyValidator(logger),
		logger,
		metrics,
	)

	router := newRouter(routerDeps{
		logger:        logger,
		tokens:        tokens,
		metrics:       metrics,
		loginLimiter:  loginLimiter,
		authHandler:   handlers.NewAuthHandler(logger, store, tokens, metrics),
		insights:      handlers.NewInsightsHandler(logger, svc, interceptor),
		admin:         handlers.NewAdminHandler(logger, journal, policy, interceptor),
		healthHandler: handlers.NewHealthHandler(logger, Version, checks),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errC := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
		close(errC)
	}()

	select {
	case err := <-errC:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// closeWith закрывает ресурс и логирует ошибку
func closeWith(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error("failed to close "+name, slog.String("error", err.Error()))
	}
}

func printVersion() {
	fmt.Printf("Fulus Pay Insights Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
