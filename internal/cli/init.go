// Package cli provides the shared start-up helpers of the cmd binaries and
// the terminal rendering used by budgetctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetrollup/internal/backend"
	"budgetrollup/internal/config"
	"budgetrollup/internal/log"
	"budgetrollup/internal/rollup"
	"budgetrollup/internal/sources"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads .env and then the environment configuration.
func LoadConfig() *config.Config {
	LoadEnvFile()
	return config.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: component,
		Format:    cfg.LogFormat,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// ExitOnError logs err as a configuration failure and exits.
func ExitOnError(logger *log.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logger.Error(msg, log.FieldError, err, "error_type", log.ErrorTypeConfiguration)
	os.Exit(1)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

// OpenBackend creates the source store selected by DATA_BACKEND.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// BuildEngine resolves KEY_RULES and builds the rollup engine over r.
func BuildEngine(cfg *config.Config, r sources.Reader, logger *log.Logger) (*rollup.Engine, error) {
	rules, err := rollup.ResolveKeyRules(cfg.KeyRules)
	if err != nil {
		return nil, fmt.Errorf("resolve KEY_RULES: %w", err)
	}
	return rollup.NewEngine(r,
		rollup.WithKeyRules(rules),
		rollup.WithAdapterTimeout(cfg.AdapterTimeout),
		rollup.WithLogger(logger.WithComponent(log.ComponentRollup)),
	), nil
}
