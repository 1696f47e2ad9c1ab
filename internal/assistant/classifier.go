// Package assistant answers natural-language questions about a user's ledger.
package assistant

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Intent is the closed set of things the assistant knows how to do.
type Intent string

const (
	IntentTotalForMonth    Intent = "total_for_month"
	IntentHighestThisMonth Intent = "highest_this_month"
	IntentListByCategory   Intent = "list_by_category"
	IntentSetBudget        Intent = "set_budget"
	IntentUnknown          Intent = "unknown"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentTotalForMonth, IntentHighestThisMonth, IntentListByCategory, IntentSetBudget, IntentUnknown:
		return true
	}
	return false
}

// Classification is what a Classifier extracted from a query.
// Month is zero and Amount invalid when the query did not mention them.
type Classification struct {
	Intent   Intent
	Month    core.Month
	Category string
	Amount   decimal.NullDecimal
}

// Classifier maps a free-text query onto an Intent and its arguments.
type Classifier interface {
	Classify(ctx context.Context, query string) (Classification, error)
}

var (
	ErrEmptyQuery        = fmt.Errorf("%w: no query provided", core.ErrValidation)
	ErrNoCategory        = fmt.Errorf("%w: could not determine category", core.ErrValidation)
	ErrNoBudgetAmount    = fmt.Errorf("%w: could not understand budget amount", core.ErrValidation)
	ErrUnknownIntentName = fmt.Errorf("%w: unknown intent", core.ErrValidation)
)
