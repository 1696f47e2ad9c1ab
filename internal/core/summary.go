package core

import "github.com/shopspring/decimal"

// CategoryTotal represents an amount aggregated by category name.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Summary is the all-time overview of a user's ledger.
type Summary struct {
	Total            decimal.Decimal
	MonthlyBreakdown map[string]decimal.Decimal // keyed by Month.String()
	TopCategories    []CategoryTotal
}

// BudgetStatus compares a month's budget with its actual spend.
// Budget and Remaining are invalid when no budget exists for the month.
type BudgetStatus struct {
	Month         Month
	Budget        decimal.NullDecimal
	TotalExpenses decimal.Decimal
	Remaining     decimal.NullDecimal
	Exceeded      bool
}

func (s BudgetStatus) HasBudget() bool {
	return s.Budget.Valid
}
