// Command trackgen-server serves track generation over HTTP with a web form.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/star/trackgen/internal/api"
	"github.com/star/trackgen/internal/config"
	"github.com/star/trackgen/internal/logging"
	"github.com/star/trackgen/internal/observability"
	"github.com/star/trackgen/web"
)

const shutdownGrace = 5 * time.Second

func main() {
	logger := logging.NewFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, logger); err != nil {
		logger.Error("server failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// serve runs the HTTP server until ctx is cancelled or the listener fails.
func serve(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.LoadServer(logger)
	if err != nil {
		return err
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), logger)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	srv := api.NewServer(cfg, logger, web.Content)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", cfg.Addr,
			"auth_enabled", cfg.AuthEnabled,
			"max_samples", cfg.MaxSamples,
			"workers", cfg.Workers,
		)
		listenErr <- srv.ListenAndServe()
	}()
	srv.SetReady(true)

	select {
	case err := <-listenErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "grace", shutdownGrace)
	srv.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
