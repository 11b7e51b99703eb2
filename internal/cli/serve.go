package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radiusdt/campaign-dashboard/internal/httpserver"
	"github.com/radiusdt/campaign-dashboard/internal/middleware"
)

func newServeCmd(o *options) *cobra.Command {
	var (
		addr           string
		reloadInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dashboard data over HTTP",
		Long: `Load the campaign logs and serve summary, series and histogram data as JSON.

Examples:
  dashboard serve --addr :8080 --dir ./logs
  dashboard serve --source clickhouse --reload-interval 5m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o, addr, reloadInterval)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from DASHBOARD_SERVER_ADDR)")
	cmd.Flags().DurationVar(&reloadInterval, "reload-interval", 0, "Reload logs periodically; 0 disables")
	return cmd
}

func runServe(cmd *cobra.Command, o *options, addr string, reloadInterval time.Duration) error {
	ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	logger := a.logger

	handler := httpserver.NewServer(&httpserver.Dependencies{
		Service: a.service,
		Config:  a.cfg,
		Logger:  logger,
		Metrics: a.metrics,
	})

	// Recovery -> Logging -> RateLimit -> Handler
	rateLimitMW := middleware.NewRateLimitMiddleware(a.cfg.RateLimit, a.metrics, logger)
	finalHandler := middleware.Chain(handler,
		middleware.NewRecoveryMiddleware(logger).Handler,
		middleware.NewLoggingMiddleware(logger).Handler,
		rateLimitMW.Handler,
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           finalHandler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting",
			zap.String("addr", addr),
			zap.String("env", a.cfg.Server.Env),
			zap.String("session_id", a.service.SessionID()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	go runMaintenance(ctx, a, rateLimitMW, reloadInterval)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}

// runMaintenance prunes idle rate limit clients and, when configured,
// reloads the logs on a fixed interval.
func runMaintenance(ctx context.Context, a *app, rl *middleware.RateLimitMiddleware, reloadInterval time.Duration) {
	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	var reload <-chan time.Time
	if reloadInterval > 0 {
		t := time.NewTicker(reloadInterval)
		defer t.Stop()
		reload = t.C
	}

	for {
		select {
		case <-cleanup.C:
			rl.Cleanup(time.Hour)
		case <-reload:
			if _, err := a.service.Reload(ctx); err != nil {
				a.logger.Warn("scheduled reload failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
