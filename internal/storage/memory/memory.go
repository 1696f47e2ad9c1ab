package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

var _ storage.Ledger = (*Store)(nil)

type seriesDay struct {
	userID   int64
	seriesID int64
	day      core.Date
}

type budgetKey struct {
	userID int64
	month  core.Month
}

// Store keeps the ledger in process memory. It enforces the same uniqueness
// rules as the SQL backends.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	items   map[int64]core.Transaction
	series  map[seriesDay]int64
	budgets map[budgetKey]core.Budget
}

func New() *Store {
	return &Store{
		items:   make(map[int64]core.Transaction),
		series:  make(map[seriesDay]int64),
		budgets: make(map[budgetKey]core.Budget),
	}
}

func (s *Store) ListTransactions(_ context.Context, userID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, t := range s.items {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sortByDate(out)
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.items[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.SeriesID != 0 {
		if _, dup := s.series[keyOf(t)]; dup {
			return core.Transaction{}, fmt.Errorf("series %d already has a row on %s", t.SeriesID, t.OccurredOn)
		}
	}
	return s.insertLocked(t), nil
}

// InsertOccurrences is atomic because the whole batch runs under one lock.
func (s *Store) InsertOccurrences(_ context.Context, ts []core.Transaction) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted []core.Transaction
	for _, t := range ts {
		if t.SeriesID != 0 {
			if _, dup := s.series[keyOf(t)]; dup {
				continue
			}
		}
		inserted = append(inserted, s.insertLocked(t))
	}
	return inserted, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[t.ID]
	if !ok {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	cur.Amount = t.Amount
	cur.Category = t.Category
	cur.Description = t.Description
	cur.PaymentMethod = t.PaymentMethod
	s.items[t.ID] = cur
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.items[id]
	if !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.items, id)
	if t.SeriesID != 0 {
		delete(s.series, keyOf(t))
	}
	return nil
}

func (s *Store) ListUserIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[int64]struct{}{}
	var ids []int64
	for _, t := range s.items {
		if _, ok := seen[t.UserID]; ok {
			continue
		}
		seen[t.UserID] = struct{}{}
		ids = append(ids, t.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) FindBudget(_ context.Context, userID int64, month core.Month) (*core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[budgetKey{userID: userID, month: month}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[budgetKey{userID: b.UserID, month: b.Month}] = b
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) insertLocked(t core.Transaction) core.Transaction {
	s.nextID++
	t.ID = s.nextID
	s.items[t.ID] = t
	if t.SeriesID != 0 {
		s.series[keyOf(t)] = t.ID
	}
	return t
}

func keyOf(t core.Transaction) seriesDay {
	return seriesDay{userID: t.UserID, seriesID: t.SeriesID, day: t.OccurredOn}
}

func sortByDate(ts []core.Transaction) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].OccurredOn.Equal(ts[j].OccurredOn.Time) {
			return ts[i].OccurredOn.Before(ts[j].OccurredOn)
		}
		return ts[i].ID < ts[j].ID
	})
}
