package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Ping(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeDatabase)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.ListWithProjection(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]expenseJSON{"expenses": newExpenseList(txs)})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := req.transaction()
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.ledger.AddTransaction(r.Context(), userIDFrom(r.Context()), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message string      `json:"message"`
		Expense expenseJSON `json:"expense"`
	}{"Expense added successfully!", newExpenseJSON(created)})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expensePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.ledger.UpdateTransaction(r.Context(), userIDFrom(r.Context()), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string      `json:"message"`
		Expense expenseJSON `json:"expense"`
	}{"Expense updated successfully!", newExpenseJSON(updated)})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), userIDFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageJSON{Message: "Expense deleted successfully!"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.ledger.Summary(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSummaryView(sum))
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	month, amount, err := req.parse()
	if err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.ledger.SetBudget(r.Context(), userIDFrom(r.Context()), month, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message string `json:"message"`
		Month   string `json:"month"`
		Amount  string `json:"amount"`
	}{"Budget set successfully!", b.Month.String(), b.Amount.StringFixed(2)})
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r, s.ledger.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := s.ledger.BudgetStatus(r.Context(), userIDFrom(r.Context()), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewBudgetStatusView(status))
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := s.assistant.Answer(r.Context(), userIDFrom(r.Context()), req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAssistantJSON(reply))
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	txs, err := s.ledger.ListWithProjection(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	n, err := s.exporter.ExportTransactions(r.Context(), txs)
	if err != nil {
		writeError(w, r, core.Fail(log.OpExport, userID, err))
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported to spreadsheet",
		log.FieldOperation, log.OpExport,
		log.FieldCount, n)
	writeJSON(w, http.StatusOK, map[string]int{"exported": n})
}
