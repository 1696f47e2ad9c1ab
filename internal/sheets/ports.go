package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	// Exporter appends ledger rows to a spreadsheet and reports how many were written.
	Exporter interface {
		ExportTransactions(ctx context.Context, txs []core.Transaction) (int, error)
	}
)

// Header names the columns written by Row.
var Header = []any{"Date", "Category", "Description", "Amount", "Payment method", "Recurrence", "ID"}

// Row renders t in spreadsheet column order.
func Row(t core.Transaction) []any {
	return []any{
		t.OccurredOn.String(),
		t.Category,
		t.Description,
		t.Amount.StringFixed(2),
		t.PaymentMethod,
		string(t.Recurrence),
		t.ID,
	}
}
