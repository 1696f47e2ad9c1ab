package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage/storagetest"
)

func tx(on core.Date, amount, category string) core.Transaction {
	return storagetest.Sample(1, on, amount, category, core.RecurrenceNone)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTotal(t *testing.T) {
	assert.True(t, Total(nil).IsZero())

	txs := []core.Transaction{
		tx(ymd(2024, time.January, 1), "0.10", "a"),
		tx(ymd(2024, time.January, 2), "0.20", "b"),
	}
	assert.Equal(t, "0.3", Total(txs).String())
}

func TestMonthlyBreakdown(t *testing.T) {
	txs := []core.Transaction{
		tx(ymd(2024, time.January, 5), "10", "a"),
		tx(ymd(2024, time.January, 31), "5.5", "b"),
		tx(ymd(2024, time.February, 1), "7", "a"),
		tx(ymd(2023, time.December, 31), "1", "c"),
	}
	got := MonthlyBreakdown(txs)

	require.Len(t, got, 3)
	assert.True(t, got["2024-01"].Equal(dec("15.5")))
	assert.True(t, got["2024-02"].Equal(dec("7")))
	assert.True(t, got["2023-12"].Equal(dec("1")))
}

func TestTopCategories(t *testing.T) {
	day := ymd(2024, time.March, 1)
	txs := []core.Transaction{
		tx(day, "50", "rent"),
		tx(day, "30", "food"),
		tx(day, "30", "bills"),
		tx(day, "30", "travel"),
		tx(day, "20", "food"),
		tx(day, "1", "misc"),
	}

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"top three with tie by name", 3, []string{"food", "rent", "bills"}},
		{"more than available", 10, []string{"food", "rent", "bills", "travel", "misc"}},
		{"zero", 0, []string{}},
		{"negative", -1, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopCategories(txs, tt.n)
			names := make([]string, 0, len(got))
			for _, c := range got {
				names = append(names, c.Category)
			}
			assert.Equal(t, tt.want, names)

			for i := 1; i < len(got); i++ {
				assert.False(t, got[i].Total.GreaterThan(got[i-1].Total), "totals must not increase")
			}
		})
	}

	assert.True(t, TopCategories(txs, 1)[0].Total.Equal(dec("50")))
}

func TestComputeBudgetStatus(t *testing.T) {
	march := core.Month{Year: 2024, Month: time.March}
	txs := []core.Transaction{
		tx(ymd(2024, time.March, 2), "400", "rent"),
		tx(ymd(2024, time.March, 20), "220", "food"),
		tx(ymd(2024, time.April, 1), "999", "food"),
	}

	t.Run("exceeded", func(t *testing.T) {
		got := ComputeBudgetStatus(march, &core.Budget{UserID: 1, Month: march, Amount: dec("500")}, txs)
		require.True(t, got.HasBudget())
		assert.True(t, got.TotalExpenses.Equal(dec("620")))
		assert.True(t, got.Remaining.Decimal.Equal(dec("-120")))
		assert.True(t, got.Exceeded)
	})

	t.Run("exactly on budget is not exceeded", func(t *testing.T) {
		got := ComputeBudgetStatus(march, &core.Budget{UserID: 1, Month: march, Amount: dec("620")}, txs)
		assert.True(t, got.Remaining.Decimal.IsZero())
		assert.False(t, got.Exceeded)
	})

	t.Run("no budget", func(t *testing.T) {
		got := ComputeBudgetStatus(march, nil, txs)
		assert.False(t, got.HasBudget())
		assert.False(t, got.Remaining.Valid)
		assert.False(t, got.Exceeded)
		assert.True(t, got.TotalExpenses.Equal(dec("620")))
	})
}

func TestHighestInMonth(t *testing.T) {
	feb := core.Month{Year: 2024, Month: time.February}
	txs := []core.Transaction{
		tx(ymd(2024, time.February, 1), "10", "a"),
		tx(ymd(2024, time.February, 9), "80", "b"),
		tx(ymd(2024, time.March, 1), "500", "c"),
	}

	got, ok := HighestInMonth(txs, feb)
	require.True(t, ok)
	assert.Equal(t, "b", got.Category)

	_, ok = HighestInMonth(txs, core.Month{Year: 2023, Month: time.February})
	assert.False(t, ok)
}

func TestFilterByCategory(t *testing.T) {
	txs := []core.Transaction{
		tx(ymd(2024, time.February, 1), "10", "Food"),
		tx(ymd(2024, time.February, 2), "10", "rent"),
		tx(ymd(2024, time.February, 3), "10", "food"),
	}
	assert.Len(t, FilterByCategory(txs, " FOOD "), 2)
	assert.Empty(t, FilterByCategory(txs, "travel"))
}
