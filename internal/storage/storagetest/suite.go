// Package storagetest holds the behaviour every storage.Ledger backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Run exercises a fresh, empty ledger returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Ledger) {
	t.Run("insert and list", func(t *testing.T) { testInsertAndList(t, open(t)) })
	t.Run("get missing", func(t *testing.T) { testGetMissing(t, open(t)) })
	t.Run("update and delete", func(t *testing.T) { testUpdateAndDelete(t, open(t)) })
	t.Run("occurrences skip duplicates", func(t *testing.T) { testOccurrencesSkipDuplicates(t, open(t)) })
	t.Run("budget upsert", func(t *testing.T) { testBudgetUpsert(t, open(t)) })
	t.Run("user ids", func(t *testing.T) { testListUserIDs(t, open(t)) })
}

// Sample returns a valid transaction for user on the given date.
func Sample(userID int64, on core.Date, amount string, category string, r core.Recurrence) core.Transaction {
	return core.Transaction{
		UserID:        userID,
		Amount:        decimal.RequireFromString(amount),
		Category:      category,
		Description:   category + " expense",
		OccurredOn:    on,
		PaymentMethod: "card",
		Recurrence:    r,
	}
}

func testInsertAndList(t *testing.T, l storage.Ledger) {
	ctx := context.Background()

	late, err := l.InsertTransaction(ctx, Sample(1, core.NewDate(2024, time.March, 3), "10.10", "food", core.RecurrenceNone))
	require.NoError(t, err)
	early, err := l.InsertTransaction(ctx, Sample(1, core.NewDate(2024, time.January, 31), "100", "rent", core.Monthly))
	require.NoError(t, err)
	_, err = l.InsertTransaction(ctx, Sample(2, core.NewDate(2024, time.January, 1), "5", "fun", core.RecurrenceNone))
	require.NoError(t, err)

	assert.NotZero(t, late.ID)
	assert.NotEqual(t, late.ID, early.ID)

	rows, err := l.ListTransactions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, early.ID, rows[0].ID, "rows come back in date order")
	assert.Equal(t, core.NewDate(2024, time.January, 31), rows[0].OccurredOn)
	assert.True(t, decimal.RequireFromString("100").Equal(rows[0].Amount))
	assert.Equal(t, core.Monthly, rows[0].Recurrence)
	assert.Equal(t, int64(0), rows[0].SeriesID)
	assert.Equal(t, "rent expense", rows[0].Description)
	assert.Equal(t, "card", rows[0].PaymentMethod)

	got, err := l.GetTransaction(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)
	assert.True(t, decimal.RequireFromString("10.10").Equal(got.Amount))
}

func testGetMissing(t *testing.T, l storage.Ledger) {
	_, err := l.GetTransaction(context.Background(), 9999)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, l.DeleteTransaction(context.Background(), 9999), core.ErrNotFound)
}

func testUpdateAndDelete(t *testing.T, l storage.Ledger) {
	ctx := context.Background()
	tx, err := l.InsertTransaction(ctx, Sample(1, core.NewDate(2024, time.May, 5), "20", "food", core.RecurrenceNone))
	require.NoError(t, err)

	tx.Amount = decimal.RequireFromString("25.50")
	tx.Category = "groceries"
	tx.Description = "weekly shop"
	tx.PaymentMethod = "cash"
	require.NoError(t, l.UpdateTransaction(ctx, tx))

	got, err := l.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25.5").Equal(got.Amount))
	assert.Equal(t, "groceries", got.Category)
	assert.Equal(t, "weekly shop", got.Description)
	assert.Equal(t, "cash", got.PaymentMethod)

	require.NoError(t, l.DeleteTransaction(ctx, tx.ID))
	_, err = l.GetTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testOccurrencesSkipDuplicates(t *testing.T, l storage.Ledger) {
	ctx := context.Background()
	anchor, err := l.InsertTransaction(ctx, Sample(1, core.NewDate(2024, time.January, 31), "100", "food", core.Monthly))
	require.NoError(t, err)

	feb := anchor.NextOccurrence(core.NewDate(2024, time.February, 1))
	mar := anchor.NextOccurrence(core.NewDate(2024, time.March, 1))

	inserted, err := l.InsertOccurrences(ctx, []core.Transaction{feb})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.NotZero(t, inserted[0].ID)
	assert.Equal(t, anchor.ID, inserted[0].SeriesID)

	// Feb already exists: only March is written.
	inserted, err = l.InsertOccurrences(ctx, []core.Transaction{feb, mar})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, core.NewDate(2024, time.March, 1), inserted[0].OccurredOn)

	rows, err := l.ListTransactions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	inserted, err = l.InsertOccurrences(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, inserted)
}

func testBudgetUpsert(t *testing.T, l storage.Ledger) {
	ctx := context.Background()
	feb := core.Month{Year: 2024, Month: time.February}

	b, err := l.FindBudget(ctx, 1, feb)
	require.NoError(t, err)
	assert.Nil(t, b, "absent budget is not an error")

	require.NoError(t, l.UpsertBudget(ctx, core.Budget{UserID: 1, Month: feb, Amount: decimal.NewFromInt(500)}))
	require.NoError(t, l.UpsertBudget(ctx, core.Budget{UserID: 1, Month: feb, Amount: decimal.NewFromInt(650)}))
	require.NoError(t, l.UpsertBudget(ctx, core.Budget{UserID: 2, Month: feb, Amount: decimal.NewFromInt(10)}))

	b, err = l.FindBudget(ctx, 1, feb)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, decimal.NewFromInt(650).Equal(b.Amount), "second write overwrites, got %s", b.Amount)
	assert.Equal(t, feb, b.Month)

	other, err := l.FindBudget(ctx, 1, core.Month{Year: 2024, Month: time.March})
	require.NoError(t, err)
	assert.Nil(t, other)
}

func testListUserIDs(t *testing.T, l storage.Ledger) {
	ctx := context.Background()
	for _, uid := range []int64{3, 1, 3} {
		_, err := l.InsertTransaction(ctx, Sample(uid, core.NewDate(2024, time.June, 1), "1", "misc", core.RecurrenceNone))
		require.NoError(t, err)
	}
	ids, err := l.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)
}
