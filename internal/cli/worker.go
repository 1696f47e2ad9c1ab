package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

var errWorkerDisabled = errors.New("worker needs AMQP_URL and GOOGLE_SPREADSHEET_ID")

func newWorkerCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Append occurrence events from the queue to the spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWorker(cmd.Context())
		},
	}
}

func (a *app) runWorker(ctx context.Context) error {
	if !a.cfg.AMQPEnabled() || !a.cfg.SheetsEnabled() {
		return errWorkerDisabled
	}
	logger := a.logger.WithComponent(log.ComponentWorker)

	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	exporter, err := backend.NewFactory(logger).NewExporter(ctx, bcfg)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	w := worker.NewOccurrenceWorker(exporter)
	caches := cache.NewManager()
	caches.Register(w.Seen())
	cacheCtx, stopCaches := context.WithCancel(ctx)
	caches.Start(cacheCtx, time.Hour)

	logger.Info("Starting occurrence worker",
		"exchange", a.cfg.AMQPExchange,
		"queue", a.cfg.AMQPQueue)

	err = client.ConsumeOccurrences(ctx, w.HandleOccurrence)
	stopCaches()
	caches.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("Worker stopped", log.FieldOperation, log.OpShutdown)
		return nil
	}
	return err
}
