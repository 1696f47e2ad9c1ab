package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/assistant"
	"fintrack/internal/core"
)

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }

func TestNewBudgetStatusJSON(t *testing.T) {
	feb := core.Month{Year: 2024, Month: time.February}

	none := NewBudgetStatusView(core.BudgetStatus{Month: feb})
	assert.Equal(t, BudgetStatusView{Month: "2024-02", Message: noBudgetMessage}, none)

	within := NewBudgetStatusView(core.BudgetStatus{
		Month:         feb,
		Budget:        decimal.NewNullDecimal(decimal.RequireFromString("500")),
		TotalExpenses: decimal.RequireFromString("499.5"),
		Remaining:     decimal.NewNullDecimal(decimal.RequireFromString("0.5")),
	})
	assert.Equal(t, "500.00", within.Budget)
	assert.Equal(t, "0.50", within.RemainingBudget)
	require.NotNil(t, within.Exceeded)
	assert.False(t, *within.Exceeded, "exceeded is reported even when false")
}

func TestNewAssistantJSON(t *testing.T) {
	listing := newAssistantJSON(assistant.Reply{
		Intent:       assistant.IntentListByCategory,
		Message:      "Found 0 expenses in the food category.",
		Category:     "food",
		Transactions: nil,
	})
	assert.Equal(t, "list_by_category", listing.Intent)
	assert.Empty(t, listing.Month)
	assert.NotNil(t, listing.Expenses)

	total := newAssistantJSON(assistant.Reply{
		Intent:  assistant.IntentTotalForMonth,
		Month:   core.Month{Year: 2024, Month: time.March},
		Message: "Your total expenses for 2024-03 are 0.00.",
	})
	assert.Equal(t, "2024-03", total.Month)
	assert.Nil(t, total.Expenses)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation shows cause", core.Fail("create", 3, core.ErrEmptyCategory), http.StatusBadRequest, "validation failed: empty category"},
		{"storage hides cause", core.Fail("list", 3, errors.New("database is locked")), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, decode[errorJSON](t, rr).Error)
		})
	}
}
