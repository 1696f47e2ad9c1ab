package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

const transactionColumns = `id, user_id, series_id, amount, category, description, occurred_on, payment_method, recurrence`

// Ensure interface conformance
var _ Ledger = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer connection keeps batch transactions from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY occurred_on, id`,
		userID)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, err
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	id, err := insertTransaction(ctx, r.db, t, false)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID = id

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"occurred_on", t.OccurredOn.String(),
		"recurrence", t.Recurrence)

	return t, nil
}

func (r *SQLiteRepository) InsertOccurrences(ctx context.Context, ts []core.Transaction) ([]core.Transaction, error) {
	if len(ts) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin occurrence batch: %w", err)
	}
	defer tx.Rollback()

	inserted := make([]core.Transaction, 0, len(ts))
	for _, t := range ts {
		id, err := insertTransaction(ctx, tx, t, true)
		if errors.Is(err, sql.ErrNoRows) {
			// Another writer already materialized this (series, date).
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert occurrence for series %d on %s: %w", t.SeriesID, t.OccurredOn, err)
		}
		t.ID = id
		inserted = append(inserted, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit occurrence batch: %w", err)
	}
	return inserted, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount = ?, category = ?, description = ?, payment_method = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		t.Amount.String(), t.Category, t.Description, t.PaymentMethod, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	return expectOneRow(res, t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) FindBudget(ctx context.Context, userID int64, month core.Month) (*core.Budget, error) {
	var amount string
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM budgets WHERE user_id = ? AND month = ?`,
		userID, month.String()).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
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

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, month, amount) VALUES (?, ?, ?)
		ON CONFLICT (user_id, month) DO UPDATE
		SET amount = excluded.amount, updated_at = CURRENT_TIMESTAMP`,
		b.UserID, b.Month.String(), b.Amount.String())
	if err != nil {
		return fmt.Errorf("upsert budget %s: %w", b.Month, err)
	}

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"user_id", b.UserID,
		"month", b.Month.String(),
		"amount", b.Amount.String())
	return nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertTransaction returns sql.ErrNoRows when skipDuplicates is set and the
// series already has a row on that date.
func insertTransaction(ctx context.Context, q rowQuerier, t core.Transaction, skipDuplicates bool) (int64, error) {
	var seriesID sql.NullInt64
	if t.SeriesID != 0 {
		seriesID = sql.NullInt64{Int64: t.SeriesID, Valid: true}
	}

	query := `
		INSERT INTO transactions (user_id, series_id, amount, category, description, occurred_on, payment_method, recurrence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if skipDuplicates {
		query += ` ON CONFLICT DO NOTHING`
	}
	query += ` RETURNING id`

	var id int64
	err := q.QueryRowContext(ctx, query,
		t.UserID, seriesID, t.Amount.String(), t.Category, t.Description,
		t.OccurredOn.String(), t.PaymentMethod, string(t.Recurrence)).Scan(&id)
	return id, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		seriesID   sql.NullInt64
		amount     string
		occurredOn string
		recurrence string
	)
	err := s.Scan(&t.ID, &t.UserID, &seriesID, &amount, &t.Category, &t.Description,
		&occurredOn, &t.PaymentMethod, &recurrence)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scan transaction: %w", err)
	}

	t.SeriesID = seriesID.Int64
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return t, fmt.Errorf("decode amount %q of transaction %d: %w", amount, t.ID, err)
	}
	// Some drivers hand back DATE text with a time suffix.
	if t.OccurredOn, err = core.ParseDate(strings.SplitN(occurredOn, "T", 2)[0]); err != nil {
		return t, fmt.Errorf("decode date of transaction %d: %v", t.ID, err)
	}
	t.Recurrence = core.Recurrence(recurrence)
	return t, nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}
