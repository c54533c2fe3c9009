// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/clinica, cmd/clinica-worker, and cmd/clinica-dash.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"clinica/internal/config"
	"clinica/internal/insight"
	"clinica/internal/log"
	"clinica/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given level ("debug",
// "info", "warn", "error") and installs it as the default logger.
func SetupLogger(level string) *log.Logger {
	return SetupLoggerTo(os.Stdout, level)
}

// SetupLoggerTo is SetupLogger writing to w. The dashboard logs to stderr so
// its stdout stays readable.
func SetupLoggerTo(w io.Writer, level string) *log.Logger {
	lvl := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and runs the given validations
// (Validate always runs first). Returns the config or exits the process on
// validation failure.
func LoadAndValidateConfig(logger *log.Logger, extra ...func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	for _, validate := range extra {
		if err := validate(cfg); err != nil {
			logger.Error("Configuration validation failed", log.FieldError, err)
			os.Exit(1)
		}
	}
	return cfg
}

// InitSQLite opens the SQLite repository at dbPath, running migrations.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath, logger.WithComponent(log.ComponentStorage))
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// NewInsightService builds the configured insight provider. A missing
// API_KEY yields the placeholder-only service, never an exit.
func NewInsightService(ctx context.Context, cfg *config.Config, logger *log.Logger) *insight.Service {
	return insight.FromConfig(ctx, insight.Config{
		Provider: cfg.InsightProvider,
		APIKey:   cfg.APIKey,
		Model:    cfg.InsightModel,
		BaseURL:  cfg.InsightBaseURL,
	}, logger.WithComponent(log.ComponentInsight))
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// received signal is logged once; stop releases the signal handler.
func GracefulShutdown(logger *log.Logger) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
