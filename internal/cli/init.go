// Package cli holds the startup steps shared by cmd/bilancio and
// cmd/bilancio-worker: env loading, the component logger, validated config,
// the SQLite repository and signal-driven shutdown.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bilancio/internal/config"
	"bilancio/internal/log"
	"bilancio/internal/storage"
)

// SetupLogger builds the component logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the process default.
func SetupLogger(component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: component,
		JSON:      os.Getenv("LOG_FORMAT") == "json",
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile reads .env when present. Production deployments configure
// the environment directly, so a missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig reads the environment and exits the process when
// the configuration does not validate. Binaries call this before anything
// that could touch storage.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the repository at dbPath, running migrations, and exits
// the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// GracefulShutdown wires SIGINT/SIGTERM handling. The returned context is
// cancelled when a signal arrives; the channel closes once cleanup has run,
// bounded by timeout.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigs
		logger.Info("Shutdown signal received", "signal", sig.String())

		deadline := time.After(timeout)
		if cleanup != nil {
			cleanup()
		}
		cancel()

		// Give in-flight work a moment to observe the cancelled context.
		select {
		case <-deadline:
			logger.Warn("Shutdown timeout reached")
		case <-time.After(2 * time.Second):
			logger.Info("Shutdown complete")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the shutdown sequence has fully finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
