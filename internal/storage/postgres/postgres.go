// Package postgres implements storage.Ledger on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const transactionColumns = `id, user_id, series_id, amount::text, category, description, occurred_on::text, payment_method, recurrence`

var _ storage.Ledger = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

// Connect opens a pool, checks it and applies pending migrations.
func Connect(ctx context.Context, url string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := RunMigrations(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions WHERE user_id = $1
		ORDER BY occurred_on, id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, err
}

func (r *Repository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	id, err := insertTransaction(ctx, r.pool, t, false)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID = id
	return t, nil
}

func (r *Repository) InsertOccurrences(ctx context.Context, ts []core.Transaction) ([]core.Transaction, error) {
	if len(ts) == 0 {
		return nil, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin occurrence batch: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := make([]core.Transaction, 0, len(ts))
	for _, t := range ts {
		id, err := insertTransaction(ctx, tx, t, true)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert occurrence for series %d on %s: %w", t.SeriesID, t.OccurredOn, err)
		}
		t.ID = id
		inserted = append(inserted, t)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit occurrence batch: %w", err)
	}
	return inserted, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	query := `
		UPDATE transactions
		SET amount = $1::numeric, category = $2, description = $3, payment_method = $4, updated_at = now()
		WHERE id = $5
	`
	tag, err := r.pool.Exec(ctx, query, t.Amount.String(), t.Category, t.Description, t.PaymentMethod, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect user ids: %w", err)
	}
	return ids, nil
}

func (r *Repository) FindBudget(ctx context.Context, userID int64, month core.Month) (*core.Budget, error) {
	var amount string
	err := r.pool.QueryRow(ctx,
		`SELECT amount::text FROM budgets WHERE user_id = $1 AND month = $2`,
		userID, month.String()).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find budget %s: %w", month, err)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("decode budget amount %q: %w", amount, err)
	}
	return &core.Budget{UserID: userID, Month: month, Amount: d}, nil
}

func (r *Repository) UpsertBudget(ctx context.Context, b core.Budget) error {
	query := `
		INSERT INTO budgets (user_id, month, amount)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (user_id, month) DO UPDATE
		SET amount = EXCLUDED.amount, updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, b.UserID, b.Month.String(), b.Amount.String()); err != nil {
		return fmt.Errorf("upsert budget %s: %w", b.Month, err)
	}

	slog.InfoContext(ctx, "Budget saved to Postgres",
		"user_id", b.UserID,
		"month", b.Month.String(),
		"amount", b.Amount.String())
	return nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertTransaction(ctx context.Context, q rowQuerier, t core.Transaction, skipDuplicates bool) (int64, error) {
	var seriesID *int64
	if t.SeriesID != 0 {
		seriesID = &t.SeriesID
	}

	query := `
		INSERT INTO transactions (user_id, series_id, amount, category, description, occurred_on, payment_method, recurrence)
		VALUES ($1, $2, $3::numeric, $4, $5, $6::date, $7, $8)`
	if skipDuplicates {
		query += `
		ON CONFLICT (user_id, series_id, occurred_on) WHERE series_id IS NOT NULL DO NOTHING`
	}
	query += `
		RETURNING id`

	var id int64
	err := q.QueryRow(ctx, query,
		t.UserID, seriesID, t.Amount.String(), t.Category, t.Description,
		t.OccurredOn.String(), t.PaymentMethod, string(t.Recurrence)).Scan(&id)
	return id, err
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t          core.Transaction
		seriesID   *int64
		amount     string
		occurredOn string
		recurrence string
	)
	err := row.Scan(&t.ID, &t.UserID, &seriesID, &amount, &t.Category, &t.Description,
		&occurredOn, &t.PaymentMethod, &recurrence)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scan transaction: %w", err)
	}

	if seriesID != nil {
		t.SeriesID = *seriesID
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return t, fmt.Errorf("decode amount %q of transaction %d: %w", amount, t.ID, err)
	}
	if t.OccurredOn, err = core.ParseDate(occurredOn); err != nil {
		return t, fmt.Errorf("decode date of transaction %d: %v", t.ID, err)
	}
	t.Recurrence = core.Recurrence(recurrence)
	return t, nil
}
