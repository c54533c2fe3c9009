package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clinica/internal/core"
	"clinica/internal/ledger"
	"clinica/internal/log"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

const selectColumns = `id, date, amount, description, type, category`

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentStorage)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable. Used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// List implements ledger.Lister. Newest insertions come first.
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM transactions ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// Create implements ledger.Creator.
func (r *SQLiteRepository) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := r.insert(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	r.logger.InfoContext(ctx, "Transaction saved to SQLite",
		log.NewFields().
			WithTransaction(t.ID, t.Type.String(), t.Description, t.Amount.String(), t.Category).
			WithOperation(log.OpCreate).
			ToSlice()...)
	return t, nil
}

func (r *SQLiteRepository) insert(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, date, amount, description, type, category) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date.String(), t.Amount.String(), t.Description, string(t.Type), t.Category)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// SeedIfEmpty inserts seed, oldest last, when the table has no rows.
func (r *SQLiteRepository) SeedIfEmpty(ctx context.Context, seed []core.Transaction) error {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return fmt.Errorf("count transactions: %w", err)
	}
	if n > 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()
	// Insert in reverse so that seq DESC reproduces the seed order.
	for i := len(seed) - 1; i >= 0; i-- {
		t := seed[i]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, date, amount, description, type, category) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.Date.String(), t.Amount.String(), t.Description, string(t.Type), t.Category); err != nil {
			return fmt.Errorf("seed transaction %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	r.logger.InfoContext(ctx, "Seeded empty database", log.FieldCount, len(seed))
	return nil
}

// Delete implements ledger.Deleter.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	return n > 0, nil
}

// Get implements ledger.Getter.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanOne(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

// PendingSync returns up to limit transactions not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM transactions WHERE synced_at IS NULL ORDER BY seq ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// MarkSynced records that the transaction has reached the mirror.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET synced_at = CURRENT_TIMESTAMP WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	r.logger.DebugContext(ctx, "Transaction marked as synced", log.FieldTxID, id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(s scanner) (core.Transaction, error) {
	var (
		t                  core.Transaction
		date, amount, kind string
	)
	if err := s.Scan(&t.ID, &date, &amount, &t.Description, &kind, &t.Category); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", t.ID, err)
	}
	t.Date = d
	typ, err := core.ParseType(kind)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", t.ID, err)
	}
	t.Type = typ
	// Stored amounts were validated on the way in; tolerate hand edits as zero.
	if a, err := decimal.NewFromString(strings.TrimSpace(amount)); err == nil && !a.IsNegative() {
		t.Amount = a
	}
	return t, nil
}

func scanAll(rows *sql.Rows) ([]core.Transaction, error) {
	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
