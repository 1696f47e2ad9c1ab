// Package memory keeps exported spreadsheet rows in process memory.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

var _ ports.Exporter = (*Exporter)(nil)

// Exporter records rows instead of sending them anywhere. Useful for demos and tests.
type Exporter struct {
	mu   sync.Mutex
	rows [][]any
	err  error
}

func New() *Exporter {
	return &Exporter{}
}

// FailWith makes every subsequent export return err; nil restores normal behaviour.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *Exporter) ExportTransactions(_ context.Context, txs []core.Transaction) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return 0, e.err
	}
	for _, t := range txs {
		e.rows = append(e.rows, ports.Row(t))
	}
	return len(txs), nil
}

// Rows returns a copy of everything exported so far.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]any(nil), e.rows...)
}
