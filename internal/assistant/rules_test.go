package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestRulesClassifier(t *testing.T) {
	tests := []struct {
		query    string
		intent   Intent
		month    core.Month
		category string
		amount   string
	}{
		{query: "What are my total expenses for 2024-02?", intent: IntentTotalForMonth, month: core.Month{Year: 2024, Month: time.February}},
		{query: "how much have I spent", intent: IntentTotalForMonth},
		{query: "How much did I spend in 2024-02?", intent: IntentTotalForMonth, month: core.Month{Year: 2024, Month: time.February}},
		{query: "What's my highest expense this month?", intent: IntentHighestThisMonth},
		{query: "List all expenses in the food category", intent: IntentListByCategory, category: "food"},
		{query: "show category: Travel", intent: IntentListByCategory, category: "travel"},
		{query: "Set my budget to 500", intent: IntentSetBudget, amount: "500"},
		{query: "set budget for 2024-03 to 750,50", intent: IntentSetBudget, month: core.Month{Year: 2024, Month: time.March}, amount: "750.5"},
		{query: "set my budget to 1,500", intent: IntentSetBudget, amount: "1500"},
		{query: "set budget 2,000 for 2024-03", intent: IntentSetBudget, month: core.Month{Year: 2024, Month: time.March}, amount: "2000"},
		{query: "set budget to 1,234,567.89", intent: IntentSetBudget, amount: "1234567.89"},
		{query: "update budget to 1500.25", intent: IntentSetBudget, amount: "1500.25"},
		{query: "please set a budget", intent: IntentSetBudget},
		{query: "tell me a joke", intent: IntentUnknown},
	}

	c := NewRulesClassifier()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, got.Intent)
			assert.Equal(t, tt.month, got.Month)
			assert.Equal(t, tt.category, got.Category)
			if tt.amount == "" {
				assert.False(t, got.Amount.Valid)
			} else {
				require.True(t, got.Amount.Valid)
				assert.Equal(t, tt.amount, got.Amount.Decimal.String())
			}
		})
	}
}
