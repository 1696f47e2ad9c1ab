package storage

import (
	"context"

	"fintrack/internal/core"
)

// Ports implemented by every ledger backend.
type (
	TransactionStore interface {
		ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
		// GetTransaction returns core.ErrNotFound when no row has this id.
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// InsertOccurrences stores all rows in one transaction. Rows whose
		// (user, series, date) already exists are skipped; only the rows actually
		// written are returned. Any other failure rolls back the whole batch.
		InsertOccurrences(ctx context.Context, ts []core.Transaction) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id int64) error
		ListUserIDs(ctx context.Context) ([]int64, error)
	}

	BudgetStore interface {
		// FindBudget returns nil, nil when the month has no budget.
		FindBudget(ctx context.Context, userID int64, month core.Month) (*core.Budget, error)
		UpsertBudget(ctx context.Context, b core.Budget) error
	}

	Ledger interface {
		TransactionStore
		BudgetStore
		Ping(ctx context.Context) error
		Close() error
	}
)
