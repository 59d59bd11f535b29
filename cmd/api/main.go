// Command api serves the forecast query API, the demo item and todo
// endpoints, and the health, readiness and metrics probes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/hashicorp/go-multierror"

	httpadapter "github.com/couchcryptid/gpv-forecast-service/internal/adapter/http"
	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/memory"
	"github.com/couchcryptid/gpv-forecast-service/internal/adapter/store"
	"github.com/couchcryptid/gpv-forecast-service/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DB, logger)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, db, memory.NewTodoStore(), logger)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		logger.Error("http server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var errs *multierror.Error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("http server shutdown: %w", err))
	}
	if err := db.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("database close: %w", err))
	}
	if err := errs.ErrorOrNil(); err != nil {
		logger.Error("shutdown incomplete", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
