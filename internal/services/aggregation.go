package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Total sums the amounts of txs; zero when empty.
func Total(txs []core.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txs {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// MonthlyBreakdown totals txs per calendar month, keyed "YYYY-MM".
func MonthlyBreakdown(txs []core.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range txs {
		key := t.OccurredOn.Period().String()
		out[key] = out[key].Add(t.Amount)
	}
	return out
}

// TopCategories returns the n categories with the largest totals.
// Equal totals are ordered by category name.
func TopCategories(txs []core.Transaction, n int) []core.CategoryTotal {
	if n <= 0 {
		return []core.CategoryTotal{}
	}

	byCategory := make(map[string]decimal.Decimal)
	for _, t := range txs {
		byCategory[t.Category] = byCategory[t.Category].Add(t.Amount)
	}

	totals := make([]core.CategoryTotal, 0, len(byCategory))
	for c, sum := range byCategory {
		totals = append(totals, core.CategoryTotal{Category: c, Total: sum})
	}
	sort.Slice(totals, func(i, j int) bool {
		if c := totals[i].Total.Cmp(totals[j].Total); c != 0 {
			return c > 0
		}
		return totals[i].Category < totals[j].Category
	})

	if len(totals) > n {
		totals = totals[:n]
	}
	return totals
}

// ComputeBudgetStatus compares budget with the spend of month. A nil budget yields a
// status whose HasBudget is false.
func ComputeBudgetStatus(month core.Month, budget *core.Budget, txs []core.Transaction) core.BudgetStatus {
	status := core.BudgetStatus{
		Month:         month,
		TotalExpenses: TotalForMonth(txs, month),
	}
	if budget == nil {
		return status
	}

	remaining := budget.Amount.Sub(status.TotalExpenses)
	status.Budget = decimal.NewNullDecimal(budget.Amount)
	status.Remaining = decimal.NewNullDecimal(remaining)
	status.Exceeded = status.TotalExpenses.GreaterThan(budget.Amount)
	return status
}

// TotalForMonth sums the transactions dated inside month.
func TotalForMonth(txs []core.Transaction, month core.Month) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txs {
		if month.Contains(t.OccurredOn) {
			sum = sum.Add(t.Amount)
		}
	}
	return sum
}

// HighestInMonth returns the largest single transaction dated inside month.
// Ties keep the earliest row.
func HighestInMonth(txs []core.Transaction, month core.Month) (core.Transaction, bool) {
	var (
		best  core.Transaction
		found bool
	)
	for _, t := range txs {
		if !month.Contains(t.OccurredOn) {
			continue
		}
		if !found || t.Amount.GreaterThan(best.Amount) {
			best, found = t, true
		}
	}
	return best, found
}

// FilterByCategory keeps the rows whose category matches, ignoring case.
func FilterByCategory(txs []core.Transaction, category string) []core.Transaction {
	category = strings.TrimSpace(category)
	out := make([]core.Transaction, 0)
	for _, t := range txs {
		if strings.EqualFold(t.Category, category) {
			out = append(out, t)
		}
	}
	return out
}

func sortByDate(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.OccurredOn.Equal(b.OccurredOn.Time) {
			return a.OccurredOn.Before(b.OccurredOn)
		}
		return a.ID < b.ID
	})
}
