package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	res, err := OpenBackend(ctx, a.logger, a.cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			a.logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	cacheCtx, stopCaches := context.WithCancel(ctx)
	defer stopCaches()
	res.Caches.Start(cacheCtx, 10*time.Minute)

	opts := apphttp.Options{
		Logger:             a.logger,
		RateLimitPerMinute: a.cfg.RateLimitPerMin,
		Assistant:          res.Assistant,
	}
	if res.Exporter != nil {
		opts.Exporter = res.Exporter
	}
	srv := apphttp.NewServer(":"+a.cfg.Port, res.Ledger, opts)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting fintrack server",
			"port", a.cfg.Port,
			"backend", a.cfg.DataBackend,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	stopCaches()
	res.Caches.Wait()
	a.logger.Info("Server stopped gracefully")
	return nil
}
