package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
	"fintrack/internal/storage/storagetest"
)

func fixedClock(y int, m time.Month, d int) Clock {
	return func() time.Time { return time.Date(y, m, d, 10, 0, 0, 0, time.UTC) }
}

func newTestService(t *testing.T, clock Clock) (*LedgerService, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewLedgerService(store, nil, WithClock(clock)), store
}

func TestLedgerService_Today(t *testing.T) {
	late := func() time.Time { return time.Date(2024, time.February, 29, 23, 30, 0, 0, time.UTC) }

	svc := NewLedgerService(memory.New(), nil, WithClock(late))
	assert.Equal(t, ymd(2024, time.February, 29), svc.Today())

	ahead := NewLedgerService(memory.New(), nil, WithClock(late), WithLocation(time.FixedZone("UTC+9", 9*3600)))
	assert.Equal(t, ymd(2024, time.March, 1), ahead.Today())
}

func TestLedgerService_ListWithProjection(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, fixedClock(2024, time.February, 5))
	seed(t, store, storagetest.Sample(1, ymd(2024, time.January, 31), "100", "rent", core.Monthly))
	seed(t, store, storagetest.Sample(1, ymd(2024, time.January, 15), "20", "food", core.RecurrenceNone))

	txs, err := svc.ListWithProjection(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, ymd(2024, time.January, 15), txs[0].OccurredOn)
	assert.Equal(t, ymd(2024, time.January, 31), txs[1].OccurredOn)
	assert.Equal(t, ymd(2024, time.February, 1), txs[2].OccurredOn)

	again, err := svc.ListWithProjection(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, again, 3)
}

func TestLedgerService_Summary(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, fixedClock(2024, time.February, 5))
	seed(t, store, storagetest.Sample(1, ymd(2024, time.January, 31), "100", "rent", core.Monthly))
	seed(t, store, storagetest.Sample(1, ymd(2024, time.January, 10), "30", "food", core.RecurrenceNone))
	seed(t, store, storagetest.Sample(1, ymd(2024, time.February, 2), "15", "fun", core.RecurrenceNone))
	seed(t, store, storagetest.Sample(1, ymd(2024, time.February, 3), "5", "misc", core.RecurrenceNone))

	sum, err := svc.Summary(ctx, 1)
	require.NoError(t, err)

	assert.True(t, sum.Total.Equal(dec("250")))
	assert.True(t, sum.MonthlyBreakdown["2024-01"].Equal(dec("130")))
	assert.True(t, sum.MonthlyBreakdown["2024-02"].Equal(dec("120")))
	require.Len(t, sum.TopCategories, 3)
	assert.Equal(t, "rent", sum.TopCategories[0].Category)
	assert.True(t, sum.TopCategories[0].Total.Equal(dec("200")))
	assert.Equal(t, "food", sum.TopCategories[1].Category)
	assert.Equal(t, "fun", sum.TopCategories[2].Category)
}

func TestLedgerService_BudgetStatus(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, fixedClock(2024, time.March, 25))
	march := core.Month{Year: 2024, Month: time.March}
	seed(t, store, storagetest.Sample(1, ymd(2024, time.March, 1), "400", "rent", core.RecurrenceNone))
	seed(t, store, storagetest.Sample(1, ymd(2024, time.March, 10), "220", "food", core.RecurrenceNone))

	status, err := svc.BudgetStatus(ctx, 1, march)
	require.NoError(t, err)
	assert.False(t, status.HasBudget())
	assert.True(t, status.TotalExpenses.Equal(dec("620")))

	_, err = svc.SetBudget(ctx, 1, march, dec("500"))
	require.NoError(t, err)

	status, err = svc.BudgetStatus(ctx, 1, march)
	require.NoError(t, err)
	require.True(t, status.HasBudget())
	assert.True(t, status.Budget.Decimal.Equal(dec("500")))
	assert.True(t, status.Remaining.Decimal.Equal(dec("-120")))
	assert.True(t, status.Exceeded)

	_, err = svc.BudgetStatus(ctx, 1, core.Month{Year: 2024, Month: 13})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestLedgerService_SetBudgetOverwrites(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, fixedClock(2024, time.March, 1))
	march := core.Month{Year: 2024, Month: time.March}

	_, err := svc.SetBudget(ctx, 1, march, dec("100"))
	require.NoError(t, err)
	_, err = svc.SetBudget(ctx, 1, march, dec("250"))
	require.NoError(t, err)

	b, err := store.FindBudget(ctx, 1, march)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.Amount.Equal(dec("250")))

	_, err = svc.SetBudget(ctx, 1, march, dec("0"))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestLedgerService_AddTransaction(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, fixedClock(2024, time.April, 2))

	t.Run("defaults", func(t *testing.T) {
		saved, err := svc.AddTransaction(ctx, 7, core.Transaction{
			UserID:        99,
			SeriesID:      42,
			Amount:        dec("12.5"),
			Category:      "  food ",
			PaymentMethod: "cash",
		})
		require.NoError(t, err)
		assert.NotZero(t, saved.ID)
		assert.Equal(t, int64(7), saved.UserID)
		assert.Zero(t, saved.SeriesID)
		assert.Equal(t, "food", saved.Category)
		assert.Equal(t, ymd(2024, time.April, 2), saved.OccurredOn)
		assert.Equal(t, core.RecurrenceNone, saved.Recurrence)
	})

	invalid := []struct {
		name string
		tx   core.Transaction
	}{
		{"zero amount", core.Transaction{Amount: dec("0"), Category: "a", PaymentMethod: "card"}},
		{"negative amount", core.Transaction{Amount: dec("-3"), Category: "a", PaymentMethod: "card"}},
		{"empty category", core.Transaction{Amount: dec("3"), Category: " ", PaymentMethod: "card"}},
		{"empty payment method", core.Transaction{Amount: dec("3"), Category: "a"}},
		{"bad recurrence", core.Transaction{Amount: dec("3"), Category: "a", PaymentMethod: "card", Recurrence: "hourly"}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddTransaction(ctx, 7, tt.tx)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestLedgerService_UpdateAndDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, fixedClock(2024, time.April, 2))
	own := seed(t, store, storagetest.Sample(1, ymd(2024, time.April, 1), "10", "food", core.Monthly))

	newAmount := dec("11")
	newCategory := "groceries"
	patch := core.TransactionPatch{Amount: &newAmount, Category: &newCategory}

	_, err := svc.UpdateTransaction(ctx, 2, own.ID, patch)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.UpdateTransaction(ctx, 1, 9999, patch)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.UpdateTransaction(ctx, 1, own.ID, core.TransactionPatch{})
	assert.ErrorIs(t, err, core.ErrValidation)

	updated, err := svc.UpdateTransaction(ctx, 1, own.ID, patch)
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(newAmount))
	assert.Equal(t, "groceries", updated.Category)
	assert.Equal(t, own.OccurredOn, updated.OccurredOn)
	assert.Equal(t, core.Monthly, updated.Recurrence)

	err = svc.DeleteTransaction(ctx, 2, own.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, svc.DeleteTransaction(ctx, 1, own.ID))
	_, err = store.GetTransaction(ctx, own.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = svc.DeleteTransaction(ctx, 1, own.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLedgerService_DeletingLatestOccurrenceRecreatesIt(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, fixedClock(2024, time.February, 5))
	seed(t, store, storagetest.Sample(1, ymd(2024, time.January, 31), "100", "rent", core.Monthly))

	txs, err := svc.ListWithProjection(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	require.NoError(t, svc.DeleteTransaction(ctx, 1, txs[1].ID))

	txs, err = svc.ListWithProjection(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, ymd(2024, time.February, 1), txs[1].OccurredOn)
}

func TestLedgerService_AssistantQueries(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, fixedClock(2024, time.February, 20))
	feb := core.Month{Year: 2024, Month: time.February}
	seed(t, store, storagetest.Sample(1, ymd(2024, time.February, 3), "45", "Food", core.RecurrenceNone))
	seed(t, store, storagetest.Sample(1, ymd(2024, time.February, 4), "300", "rent", core.RecurrenceNone))
	seed(t, store, storagetest.Sample(1, ymd(2024, time.January, 4), "900", "travel", core.RecurrenceNone))

	total, err := svc.TotalForMonth(ctx, 1, feb)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("345")))

	top, ok, err := svc.HighestInMonth(ctx, 1, feb)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "rent", top.Category)

	food, err := svc.ListByCategory(ctx, 1, "food")
	require.NoError(t, err)
	assert.Len(t, food, 1)
}
