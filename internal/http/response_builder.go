package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/assistant"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

const noBudgetMessage = "No budget set for this month."

type expenseJSON struct {
	ID            int64  `json:"id"`
	SeriesID      int64  `json:"series_id,omitempty"`
	Amount        string `json:"amount"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	Date          string `json:"date"`
	PaymentMethod string `json:"payment_method"`
	Recurrence    string `json:"recurrence"`
}

func newExpenseJSON(t core.Transaction) expenseJSON {
	return expenseJSON{
		ID:            t.ID,
		SeriesID:      t.SeriesID,
		Amount:        t.Amount.StringFixed(2),
		Category:      t.Category,
		Description:   t.Description,
		Date:          t.OccurredOn.String(),
		PaymentMethod: t.PaymentMethod,
		Recurrence:    string(t.Recurrence),
	}
}

func newExpenseList(ts []core.Transaction) []expenseJSON {
	out := make([]expenseJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, newExpenseJSON(t))
	}
	return out
}

// CategoryTotalView is one entry of the top spending categories.
type CategoryTotalView struct {
	Category   string `json:"category"`
	TotalSpent string `json:"total_spent"`
}

// SummaryView is the JSON rendering of core.Summary. Amounts are fixed to two decimals.
type SummaryView struct {
	TotalExpenses    string              `json:"total_expenses"`
	MonthlyBreakdown map[string]string   `json:"monthly_breakdown"`
	TopCategories    []CategoryTotalView `json:"top_spending_categories"`
}

func NewSummaryView(s core.Summary) SummaryView {
	out := SummaryView{
		TotalExpenses:    s.Total.StringFixed(2),
		MonthlyBreakdown: make(map[string]string, len(s.MonthlyBreakdown)),
		TopCategories:    make([]CategoryTotalView, 0, len(s.TopCategories)),
	}
	for month, total := range s.MonthlyBreakdown {
		out.MonthlyBreakdown[month] = total.StringFixed(2)
	}
	for _, c := range s.TopCategories {
		out.TopCategories = append(out.TopCategories, CategoryTotalView{Category: c.Category, TotalSpent: c.Total.StringFixed(2)})
	}
	return out
}

// BudgetStatusView has two shapes: the full comparison, or month plus message when no budget exists.
type BudgetStatusView struct {
	Month           string `json:"month"`
	Message         string `json:"message,omitempty"`
	Budget          string `json:"budget,omitempty"`
	TotalExpenses   string `json:"total_expenses,omitempty"`
	RemainingBudget string `json:"remaining_budget,omitempty"`
	Exceeded        *bool  `json:"exceeded,omitempty"`
}

func NewBudgetStatusView(s core.BudgetStatus) BudgetStatusView {
	if !s.HasBudget() {
		return BudgetStatusView{Month: s.Month.String(), Message: noBudgetMessage}
	}
	exceeded := s.Exceeded
	return BudgetStatusView{
		Month:           s.Month.String(),
		Budget:          s.Budget.Decimal.StringFixed(2),
		TotalExpenses:   s.TotalExpenses.StringFixed(2),
		RemainingBudget: s.Remaining.Decimal.StringFixed(2),
		Exceeded:        &exceeded,
	}
}

type assistantJSON struct {
	Intent   string        `json:"intent"`
	Message  string        `json:"message"`
	Month    string        `json:"month,omitempty"`
	Category string        `json:"category,omitempty"`
	Expenses []expenseJSON `json:"expenses,omitempty"`
}

func newAssistantJSON(r assistant.Reply) assistantJSON {
	out := assistantJSON{
		Intent:   string(r.Intent),
		Message:  r.Message,
		Category: r.Category,
	}
	if !r.Month.IsZero() {
		out.Month = r.Month.String()
	}
	if r.Intent == assistant.IntentListByCategory {
		out.Expenses = newExpenseList(r.Transactions)
	}
	return out
}

type messageJSON struct {
	Message string `json:"message"`
}

type errorJSON struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", log.FieldComponent, log.ComponentHTTP, log.FieldError, err)
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingUser):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": ...}. Server-side failures are logged and their text hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorJSON{Error: publicMessage(err), RequestID: RequestID(r.Context())}

	logger := log.FromContext(r.Context())
	if status == http.StatusInternalServerError {
		body.Error = http.StatusText(status)
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeInternal)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldError, err.Error(),
			log.FieldStatusCode, status)
	}
	writeJSON(w, status, body)
}

// publicMessage strips operation context so clients see only the failure itself.
func publicMessage(err error) string {
	var opErr *core.OpError
	if errors.As(err, &opErr) {
		return opErr.Err.Error()
	}
	return err.Error()
}
