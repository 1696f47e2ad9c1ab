package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestExporterRecordsRows(t *testing.T) {
	e := New()
	txs := []core.Transaction{{
		ID:            3,
		Amount:        decimal.RequireFromString("7"),
		Category:      "bills",
		OccurredOn:    core.NewDate(2024, time.May, 1),
		PaymentMethod: "card",
		Recurrence:    core.Monthly,
	}}

	n, err := e.ExportTransactions(context.Background(), txs)
	if err != nil || n != 1 {
		t.Fatalf("ExportTransactions() = %d, %v", n, err)
	}

	rows := e.Rows()
	if len(rows) != 1 {
		t.Fatalf("Rows() len = %d, want 1", len(rows))
	}
	if rows[0][0] != "2024-05-01" || rows[0][3] != "7.00" || rows[0][5] != "monthly" {
		t.Errorf("unexpected row %v", rows[0])
	}
}

func TestExporterFailWith(t *testing.T) {
	e := New()
	boom := errors.New("quota exceeded")
	e.FailWith(boom)

	if _, err := e.ExportTransactions(context.Background(), make([]core.Transaction, 2)); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if len(e.Rows()) != 0 {
		t.Error("failed export must not record rows")
	}

	e.FailWith(nil)
	if n, err := e.ExportTransactions(context.Background(), make([]core.Transaction, 2)); err != nil || n != 2 {
		t.Fatalf("ExportTransactions() = %d, %v", n, err)
	}
}
