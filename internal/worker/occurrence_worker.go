// Package worker turns occurrence events into spreadsheet rows.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

const (
	seenSize = 4096
	seenTTL  = 24 * time.Hour
)

// OccurrenceWorker appends every announced occurrence to the spreadsheet once.
// Redeliveries of an already exported transaction are acknowledged without a second row.
type OccurrenceWorker struct {
	exporter sheets.Exporter
	seen     *cache.LRUCache[struct{}]
}

func NewOccurrenceWorker(exporter sheets.Exporter) *OccurrenceWorker {
	return &OccurrenceWorker{
		exporter: exporter,
		seen:     cache.NewLRUCache[struct{}](seenSize, seenTTL),
	}
}

// Seen exposes the dedupe cache so callers can register it for cleanup.
func (w *OccurrenceWorker) Seen() cache.Cleaner { return w.seen }

// HandleOccurrence is an amqp consumer handler. A returned error requeues the message.
func (w *OccurrenceWorker) HandleOccurrence(ctx context.Context, msg *amqp.OccurrenceMessage) error {
	key := strconv.FormatInt(msg.TransactionID, 10)
	if _, ok := w.seen.Get(key); ok {
		slog.InfoContext(ctx, "Occurrence already exported, skipping",
			log.FieldComponent, log.ComponentWorker,
			log.FieldTransactionID, msg.TransactionID)
		return nil
	}

	t, err := msg.Transaction()
	if err != nil {
		// a bad date will not get better on retry
		slog.ErrorContext(ctx, "Dropping undecodable occurrence",
			log.FieldComponent, log.ComponentWorker,
			log.FieldTransactionID, msg.TransactionID,
			log.FieldError, err)
		return nil
	}

	if _, err := w.exporter.ExportTransactions(ctx, []core.Transaction{t}); err != nil {
		return fmt.Errorf("export occurrence %d: %w", t.ID, err)
	}
	w.seen.Set(key, struct{}{})

	slog.InfoContext(ctx, "Occurrence exported",
		log.NewFields().
			WithComponent(log.ComponentWorker).
			WithOperation(log.OpExport).
			WithUser(t.UserID).
			WithTransaction(t.ID, t.SeriesID, t.OccurredOn.String(), t.Amount.String(), t.Category).
			ToSlice()...)
	return nil
}
