package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// CatchUpMode decides how many missed periods a single projection fills in.
type CatchUpMode string

const (
	// CatchUpSingle materialises at most one occurrence per series per call.
	CatchUpSingle CatchUpMode = "single"
	// CatchUpExhaustive keeps going until the next due date is in the future.
	CatchUpExhaustive CatchUpMode = "exhaustive"
)

// DefaultCatchUpLimit bounds exhaustive catch-up per series per call.
const DefaultCatchUpLimit = 1000

func ParseCatchUpMode(s string) (CatchUpMode, error) {
	switch m := CatchUpMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return CatchUpSingle, nil
	case CatchUpSingle, CatchUpExhaustive:
		return m, nil
	}
	return "", fmt.Errorf("unknown catch-up mode %q (use single or exhaustive)", s)
}

// OccurrencePublisher is notified of every occurrence after it has been committed.
type OccurrencePublisher interface {
	PublishOccurrence(ctx context.Context, t core.Transaction) error
}

// Projector materialises the due occurrences of recurring series.
type Projector struct {
	store     storage.TransactionStore
	mode      CatchUpMode
	limit     int
	publisher OccurrencePublisher
	locks     *userLocks
}

type ProjectorOption func(*Projector)

func WithCatchUpMode(mode CatchUpMode) ProjectorOption {
	return func(p *Projector) { p.mode = mode }
}

// WithCatchUpLimit sets the exhaustive-mode cap; values below 1 keep the default.
func WithCatchUpLimit(limit int) ProjectorOption {
	return func(p *Projector) {
		if limit > 0 {
			p.limit = limit
		}
	}
}

func WithPublisher(pub OccurrencePublisher) ProjectorOption {
	return func(p *Projector) { p.publisher = pub }
}

func NewProjector(store storage.TransactionStore, opts ...ProjectorOption) *Projector {
	p := &Projector{
		store: store,
		mode:  CatchUpSingle,
		limit: DefaultCatchUpLimit,
		locks: newUserLocks(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Projector) Mode() CatchUpMode { return p.mode }

// Project writes every occurrence of userID's recurring series that is due on or
// before today and returns the rows actually inserted. The batch is atomic.
func (p *Projector) Project(ctx context.Context, userID int64, today core.Date) ([]core.Transaction, error) {
	if p.store == nil {
		return nil, core.Fail(log.OpProject, userID, errors.New("projector has no store"))
	}

	inserted, err := p.materialise(ctx, userID, today)
	if err != nil {
		slog.ErrorContext(ctx, "Recurring projection failed",
			log.FieldComponent, log.ComponentProjector,
			log.FieldUserID, userID,
			log.FieldError, err)
		return nil, core.Fail(log.OpProject, userID, err)
	}

	if len(inserted) > 0 {
		slog.InfoContext(ctx, "Materialised recurring occurrences",
			log.FieldComponent, log.ComponentProjector,
			log.FieldUserID, userID,
			log.FieldCount, len(inserted),
			log.FieldCatchUpMode, string(p.mode))
	}

	p.publish(ctx, inserted)
	return inserted, nil
}

// materialise holds the user's lock across the read-check-write span only.
func (p *Projector) materialise(ctx context.Context, userID int64, today core.Date) ([]core.Transaction, error) {
	unlock := p.locks.Lock(userID)
	defer unlock()

	rows, err := p.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending, err := p.pending(ctx, rows, today)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, nil
	}
	return p.store.InsertOccurrences(ctx, pending)
}

// pending computes the occurrences due for each series, oldest first.
func (p *Projector) pending(ctx context.Context, rows []core.Transaction, today core.Date) ([]core.Transaction, error) {
	anchors := seriesAnchors(rows)

	keys := make([]int64, 0, len(anchors))
	for k := range anchors {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var out []core.Transaction
	for _, key := range keys {
		anchor := anchors[key]
		rule, err := GetRecurrenceRule(anchor.Recurrence)
		if err != nil {
			return nil, fmt.Errorf("series %d: %w", key, err)
		}

		count := 0
		for next := rule.Next(anchor.OccurredOn); !next.After(today); next = rule.Next(next) {
			out = append(out, anchor.NextOccurrence(next))
			count++
			if p.mode != CatchUpExhaustive {
				break
			}
			if count >= p.limit {
				slog.WarnContext(ctx, "Catch-up limit reached, remaining occurrences deferred",
					log.FieldComponent, log.ComponentProjector,
					log.FieldSeriesID, key,
					log.FieldOccurredOn, next.String(),
					log.FieldCount, count)
				break
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredOn.Before(out[j].OccurredOn) })
	return out, nil
}

// seriesAnchors picks the newest row of every recurring series; ties go to the highest id.
func seriesAnchors(rows []core.Transaction) map[int64]core.Transaction {
	anchors := make(map[int64]core.Transaction)
	for _, t := range rows {
		if !t.IsRecurring() {
			continue
		}
		key := t.SeriesKey()
		cur, ok := anchors[key]
		if !ok || t.OccurredOn.After(cur.OccurredOn) ||
			(t.OccurredOn.Equal(cur.OccurredOn.Time) && t.ID > cur.ID) {
			anchors[key] = t
		}
	}
	return anchors
}

func (p *Projector) publish(ctx context.Context, inserted []core.Transaction) {
	if p.publisher == nil {
		return
	}
	for _, t := range inserted {
		if err := p.publisher.PublishOccurrence(ctx, t); err != nil {
			slog.WarnContext(ctx, "Failed to publish occurrence event",
				log.FieldComponent, log.ComponentProjector,
				log.FieldUserID, t.UserID,
				log.FieldTransactionID, t.ID,
				log.FieldError, err)
		}
	}
}

// ProjectAll runs Project for every user in the store, at most concurrency at a time.
// A failing user does not stop the others; all failures are joined into the result.
func (p *Projector) ProjectAll(ctx context.Context, today core.Date, concurrency int) (int, error) {
	userIDs, err := p.store.ListUserIDs(ctx)
	if err != nil {
		return 0, core.Fail(log.OpProject, 0, err)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		g     errgroup.Group
		mu    sync.Mutex
		total int
		errs  []error
	)
	g.SetLimit(concurrency)

	for _, uid := range userIDs {
		uid := uid
		g.Go(func() error {
			inserted, err := p.Project(ctx, uid, today)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			total += len(inserted)
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "Projection run complete",
		log.FieldComponent, log.ComponentProjector,
		"users", len(userIDs),
		log.FieldCount, total,
		"failed", len(errs))

	return total, errors.Join(errs...)
}
