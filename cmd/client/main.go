package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/api"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/auth"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/cli"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/iocli"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/client/storage/boltdb"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/logging"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const defaultServerURL = "http://localhost:8080"

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", envOr("INSIGHTS_SERVER", defaultServerURL), "Server URL")
	dbPath := flag.String("db", "insights-admin.db", "Path to local session file")
	logLevel := flag.String("log-level", envOr("INSIGHTS_LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	stdio := iocli.NewStdio()

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(stdio)
		os.Exit(1)
	}

	// Диагностика клиента идет в stderr, чтобы не смешиваться с ответами ассистента
	logger, err := logging.New(logging.Config{Output: os.Stderr, Level: *logLevel, Format: "text"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stdio, logger, *serverURL, *dbPath, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, stdio iocli.IO, logger *slog.Logger, serverURL, dbPath string, args []string) error {
	boltStorage, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close session file", slog.String("error", err.Error()))
		}
	}()

	apiClient := api.NewClient(serverURL)
	authService := auth.NewService(apiClient, boltStorage, apiClient.BaseURL(), logger)

	return cli.New(stdio, apiClient, authService, boltStorage).Run(ctx, args[0], args[1:])
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printVersion() {
	fmt.Printf("Fulus Pay Insights Admin Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
