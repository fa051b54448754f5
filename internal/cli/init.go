// Package cli holds the start-up steps shared by cmd/billing and
// cmd/billing-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"billing/internal/config"
	applog "billing/internal/log"
)

// SetupLogger builds the application logger at the configured level and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	return setupLogger(cfg, component, os.Stdout)
}

func setupLogger(cfg *config.Config, component string, out io.Writer) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     cfg.SlogLevel(),
		Component: component,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadConfig loads the environment (and .env) and runs every check. The
// extra checks run after Validate, e.g. (*config.Config).ValidateWorker.
func LoadConfig(extra ...func(*config.Config) error) (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	for _, check := range extra {
		if err := check(cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// MustLoadConfig is LoadConfig that exits the process on failure.
func MustLoadConfig(extra ...func(*config.Config) error) *config.Config {
	cfg, err := LoadConfig(extra...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext is cancelled on SIGINT or SIGTERM. The returned stop
// releases the signal handler.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)
	}()
	return ctx, stop
}
