// Package cli implements the fintrack command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

// SetupLogger builds the process logger from LOG_LEVEL/LOG_FORMAT and installs it
// as the slog default. debug forces the debug level.
func SetupLogger(level, format string, debug bool) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if debug {
		lvl = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: lvl, Format: format, Component: log.ComponentApp, Output: os.Stdout})
	log.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads variables from path without overriding the environment.
// A missing default .env is not an error; a missing explicit file is.
func LoadEnvFile(path string, explicit bool) error {
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// LoadAndValidateConfig reads the environment and rejects invalid settings.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBackend builds the full ledger backend from cfg. mutate may adjust the
// backend config first, e.g. to apply command line overrides.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config, mutate func(*backend.Config)) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&bcfg)
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
