package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	userIDHeader    = "X-User-ID"
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	requestIDKey contextKey = "request_id"
)

var (
	errMissingUser = errors.New("missing or invalid " + userIDHeader + " header")
	errBadJSON     = fmt.Errorf("%w: malformed JSON body", core.ErrValidation)
	errBadID       = fmt.Errorf("%w: invalid expense id", core.ErrValidation)
)

// parseUserID reads the caller's id from the X-User-ID header. Only positive integers are accepted.
func parseUserID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(userIDHeader))
	if raw == "" {
		return 0, errMissingUser
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errMissingUser
	}
	return id, nil
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// RequestID returns the id assigned to the request, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

// decodeJSON reads a single JSON object of at most maxBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", core.ErrValidation)
		}
		return errBadJSON
	}
	if dec.More() {
		return errBadJSON
	}
	return nil
}

// flexAmount accepts an amount as either a JSON number or a JSON string.
type flexAmount string

func (a *flexAmount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = flexAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = flexAmount(n.String())
	return nil
}

func (a flexAmount) decimal() (decimal.Decimal, error) {
	return core.ParseAmount(string(a))
}

type expenseRequest struct {
	Amount        flexAmount `json:"amount"`
	Category      string     `json:"category"`
	Description   string     `json:"description"`
	PaymentMethod string     `json:"payment_method"`
	Date          string     `json:"date"`
	Recurrence    string     `json:"recurrence"`
}

func (req expenseRequest) transaction() (core.Transaction, error) {
	amount, err := req.Amount.decimal()
	if err != nil {
		return core.Transaction{}, err
	}
	recurrence, err := core.ParseRecurrence(req.Recurrence)
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		Amount:        amount,
		Category:      req.Category,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Recurrence:    recurrence,
	}
	if strings.TrimSpace(req.Date) != "" {
		if t.OccurredOn, err = core.ParseDate(req.Date); err != nil {
			return core.Transaction{}, err
		}
	}
	return t, nil
}

type expensePatchRequest struct {
	Amount        *flexAmount `json:"amount"`
	Category      *string     `json:"category"`
	Description   *string     `json:"description"`
	PaymentMethod *string     `json:"payment_method"`
}

func (req expensePatchRequest) patch() (core.TransactionPatch, error) {
	p := core.TransactionPatch{
		Category:      req.Category,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
	}
	if req.Amount != nil {
		amount, err := req.Amount.decimal()
		if err != nil {
			return core.TransactionPatch{}, err
		}
		p.Amount = &amount
	}
	return p, nil
}

type budgetRequest struct {
	Amount flexAmount `json:"amount"`
	Month  string     `json:"month"`
}

func (req budgetRequest) parse() (core.Month, decimal.Decimal, error) {
	month, err := core.ParseMonth(req.Month)
	if err != nil {
		return core.Month{}, decimal.Zero, err
	}
	amount, err := req.Amount.decimal()
	if err != nil {
		return core.Month{}, decimal.Zero, err
	}
	return month, amount, nil
}

type assistantRequest struct {
	Query string `json:"query"`
}

// monthParam parses ?month=YYYY-MM, falling back to the month containing today.
func monthParam(r *http.Request, today core.Date) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return today.Period(), nil
	}
	return core.ParseMonth(v)
}
