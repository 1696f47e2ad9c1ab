package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// DefaultTopCategories is how many categories Summary reports.
const DefaultTopCategories = 3

// Clock returns the current instant.
type Clock func() time.Time

// LedgerService is the entry point for every read and write on a user's ledger.
// Reads project due recurring occurrences first, so their results always include them.
type LedgerService struct {
	store     storage.Ledger
	projector *Projector
	clock     Clock
	loc       *time.Location
	topN      int
}

type LedgerOption func(*LedgerService)

func WithClock(c Clock) LedgerOption {
	return func(s *LedgerService) { s.clock = c }
}

// WithLocation sets the zone in which "today" is evaluated.
func WithLocation(loc *time.Location) LedgerOption {
	return func(s *LedgerService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithTopCategories(n int) LedgerOption {
	return func(s *LedgerService) { s.topN = n }
}

// NewLedgerService binds the service to store. A nil projector gets a default one
// over the same store.
func NewLedgerService(store storage.Ledger, projector *Projector, opts ...LedgerOption) *LedgerService {
	if projector == nil {
		projector = NewProjector(store)
	}
	s := &LedgerService{
		store:     store,
		projector: projector,
		clock:     time.Now,
		loc:       time.UTC,
		topN:      DefaultTopCategories,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current calendar day in the service's zone.
func (s *LedgerService) Today() core.Date {
	return core.DateOf(s.clock().In(s.loc))
}

func (s *LedgerService) Projector() *Projector { return s.projector }

func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// projected brings the user's ledger up to date and returns all of its rows ordered by date.
func (s *LedgerService) projected(ctx context.Context, op string, userID int64) ([]core.Transaction, error) {
	if _, err := s.projector.Project(ctx, userID, s.Today()); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, core.Fail(op, userID, err)
	}
	sortByDate(txs)
	return txs, nil
}

// ListWithProjection returns the user's transactions, oldest first.
func (s *LedgerService) ListWithProjection(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return s.projected(ctx, log.OpList, userID)
}

func (s *LedgerService) Summary(ctx context.Context, userID int64) (core.Summary, error) {
	txs, err := s.projected(ctx, log.OpSummary, userID)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summary{
		Total:            Total(txs),
		MonthlyBreakdown: MonthlyBreakdown(txs),
		TopCategories:    TopCategories(txs, s.topN),
	}, nil
}

// BudgetStatus reports spend against the budget of month. A month without a budget is
// not an error; the returned status has HasBudget() == false.
func (s *LedgerService) BudgetStatus(ctx context.Context, userID int64, month core.Month) (core.BudgetStatus, error) {
	if err := month.Validate(); err != nil {
		return core.BudgetStatus{}, core.Fail(log.OpBudget, userID, err)
	}
	txs, err := s.projected(ctx, log.OpBudget, userID)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	budget, err := s.store.FindBudget(ctx, userID, month)
	if err != nil {
		return core.BudgetStatus{}, core.Fail(log.OpBudget, userID, err)
	}
	return ComputeBudgetStatus(month, budget, txs), nil
}

// AddTransaction stores a new transaction owned by userID. A zero date means today and an
// empty recurrence means none. The row always starts its own series.
func (s *LedgerService) AddTransaction(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error) {
	t.ID = 0
	t.SeriesID = 0
	t.UserID = userID
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
	t.PaymentMethod = strings.TrimSpace(t.PaymentMethod)
	if t.OccurredOn.IsZero() {
		t.OccurredOn = s.Today()
	}
	if t.Recurrence == "" {
		t.Recurrence = core.RecurrenceNone
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, core.Fail(log.OpCreate, userID, err)
	}

	saved, err := s.store.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, core.Fail(log.OpCreate, userID, err)
	}

	slog.InfoContext(ctx, "Transaction created",
		log.NewFields().
			WithComponent(log.ComponentLedger).
			WithUser(userID).
			WithTransaction(saved.ID, saved.SeriesID, saved.OccurredOn.String(), saved.Amount.String(), saved.Category).
			ToSlice()...)
	return saved, nil
}

// owned loads id and checks that userID owns it.
func (s *LedgerService) owned(ctx context.Context, op string, userID, id int64) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, core.Fail(op, userID, err)
	}
	if t.UserID != userID {
		return core.Transaction{}, core.Fail(op, userID, fmt.Errorf("transaction %d: %w", id, core.ErrForbidden))
	}
	return t, nil
}

// UpdateTransaction changes the mutable fields of one of the user's transactions.
// Date and recurrence cannot be changed.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	if patch.IsEmpty() {
		return core.Transaction{}, core.Fail(log.OpUpdate, userID, core.ErrEmptyPatch)
	}
	current, err := s.owned(ctx, log.OpUpdate, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}

	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return core.Transaction{}, core.Fail(log.OpUpdate, userID, err)
	}
	if err := s.store.UpdateTransaction(ctx, updated); err != nil {
		return core.Transaction{}, core.Fail(log.OpUpdate, userID, err)
	}

	slog.InfoContext(ctx, "Transaction updated",
		log.FieldComponent, log.ComponentLedger,
		log.FieldUserID, userID,
		log.FieldTransactionID, id)
	return updated, nil
}

// DeleteTransaction removes one of the user's transactions. Deleting the newest row of a
// series makes the previous one its anchor again, so the next read recreates the row.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id int64) error {
	if _, err := s.owned(ctx, log.OpDelete, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return core.Fail(log.OpDelete, userID, err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		log.FieldComponent, log.ComponentLedger,
		log.FieldUserID, userID,
		log.FieldTransactionID, id)
	return nil
}

// SetBudget creates or replaces the user's budget for month.
func (s *LedgerService) SetBudget(ctx context.Context, userID int64, month core.Month, amount decimal.Decimal) (core.Budget, error) {
	b := core.Budget{UserID: userID, Month: month, Amount: amount}
	if err := b.Validate(); err != nil {
		return core.Budget{}, core.Fail(log.OpBudget, userID, err)
	}
	if err := s.store.UpsertBudget(ctx, b); err != nil {
		return core.Budget{}, core.Fail(log.OpBudget, userID, err)
	}
	return b, nil
}

func (s *LedgerService) TotalForMonth(ctx context.Context, userID int64, month core.Month) (decimal.Decimal, error) {
	txs, err := s.projected(ctx, log.OpSummary, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return TotalForMonth(txs, month), nil
}

// HighestInMonth returns the user's largest single transaction of month, if any.
func (s *LedgerService) HighestInMonth(ctx context.Context, userID int64, month core.Month) (core.Transaction, bool, error) {
	txs, err := s.projected(ctx, log.OpSummary, userID)
	if err != nil {
		return core.Transaction{}, false, err
	}
	t, ok := HighestInMonth(txs, month)
	return t, ok, nil
}

func (s *LedgerService) ListByCategory(ctx context.Context, userID int64, category string) ([]core.Transaction, error) {
	txs, err := s.projected(ctx, log.OpList, userID)
	if err != nil {
		return nil, err
	}
	return FilterByCategory(txs, category), nil
}
