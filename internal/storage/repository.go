package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"spendsmart/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists identities and expense partitions in a local
// SQLite database. The identity table holds at most one row; expenses carry
// a per-user position column so insertion order survives round trips.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ IdentityStore = (*SQLiteRepository)(nil)
	_ ExpenseStore  = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
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

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveIdentity implements IdentityStore.
func (r *SQLiteRepository) SaveIdentity(ctx context.Context, id core.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save identity: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM identity`); err != nil {
		return fmt.Errorf("clear previous identity: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO identity (id, name, email) VALUES (?, ?, ?)`,
		id.ID, id.Name, id.Email)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit identity: %w", err)
	}

	slog.InfoContext(ctx, "Identity saved", "user_id", id.ID)
	return nil
}

// LoadIdentity implements IdentityStore.
func (r *SQLiteRepository) LoadIdentity(ctx context.Context) (*core.Identity, error) {
	var id core.Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM identity LIMIT 1`,
	).Scan(&id.ID, &id.Name, &id.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if id.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedIdentity)
	}
	return &id, nil
}

// ClearIdentity implements IdentityStore.
func (r *SQLiteRepository) ClearIdentity(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM identity`); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}

// ListExpenses implements ExpenseStore.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, category, date, description
		 FROM expenses WHERE user_id = ? ORDER BY position`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e       core.Expense
			dateISO string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &dateISO, &e.Description); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if dateISO != "" {
			d, err := core.ParseDate(dateISO)
			if err != nil {
				return nil, fmt.Errorf("expense %s has unparsable date %q", e.ID, dateISO)
			}
			e.Date = d
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// ReplaceExpenses implements ExpenseStore. The user's partition is rewritten
// wholesale; other users' rows are untouched.
func (r *SQLiteRepository) ReplaceExpenses(ctx context.Context, userID string, records []core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace expenses: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear expense partition for %s: %w", userID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO expenses (id, user_id, amount_cents, category, date, description, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range records {
		if _, err := stmt.ExecContext(ctx, e.ID, userID, e.Amount.Cents, string(e.Category), e.Date.ISO(), e.Description, i); err != nil {
			return fmt.Errorf("insert expense %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace expenses: %w", err)
	}
	return nil
}
