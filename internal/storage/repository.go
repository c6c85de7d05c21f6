// Package storage implements the SQLite-backed record store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shubham5177/expense-tracker/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist or does not
// belong to the requesting user.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

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

// CreateUser inserts a new account and returns its id.
func (r *SQLiteRepository) CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, verified) VALUES (?, ?, ?, 1)`,
		name, email, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create user id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", id, "email", email)
	return id, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, verified, currency, created_at
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, verified, currency, created_at
		 FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// MarkUserVerified flips the verified flag for the account with this email.
func (r *SQLiteRepository) MarkUserVerified(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET verified = 1 WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark user verified affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserName(ctx context.Context, id int64, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserCurrency(ctx context.Context, id int64, currency string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET currency = ? WHERE id = ?`, currency, id)
	if err != nil {
		return fmt.Errorf("update user currency: %w", err)
	}
	return nil
}

// DeleteUser removes the account and all of its expenses.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete user expenses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}

	slog.InfoContext(ctx, "User deleted", "id", id)
	return nil
}

// CreateExpense inserts a new expense and returns its id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, title, category, amount, date, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Title, e.Category, e.Amount.String(), e.Date.String(), e.Notes)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"user_id", e.UserID,
		"title", e.Title,
		"amount", e.Amount.String(),
		"date", e.Date.String())
	return id, nil
}

// GetExpense returns the expense only if it belongs to userID.
func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, category, amount, date, notes, created_at
		 FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	return scanExpense(row)
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET title = ?, category = ?, amount = ?, date = ?, notes = ?
		 WHERE id = ? AND user_id = ?`,
		e.Title, e.Category, e.Amount.String(), e.Date.String(), e.Notes, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns every expense for the user, date descending with id as
// tiebreaker.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, category, amount, date, notes, created_at
		 FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

// SearchByUser lists the user's expenses filtered by an optional title/notes
// substring and an optional exact category.
func (r *SQLiteRepository) SearchByUser(ctx context.Context, userID int64, search, category string) ([]core.Expense, error) {
	query := `SELECT id, user_id, title, category, amount, date, notes, created_at
	          FROM expenses WHERE user_id = ?`
	args := []any{userID}

	if search != "" {
		query += ` AND (title LIKE ? OR notes LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search expenses: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

// ListByUserMonth returns the user's expenses whose date falls in the given
// "YYYY-MM" month, date descending.
func (r *SQLiteRepository) ListByUserMonth(ctx context.Context, userID int64, month string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, category, amount, date, notes, created_at
		 FROM expenses WHERE user_id = ? AND date LIKE ? ORDER BY date DESC, id DESC`,
		userID, month+"%")
	if err != nil {
		return nil, fmt.Errorf("list month expenses: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u         core.User
		verified  int64
		createdAt sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &verified, &u.Currency, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Verified = verified != 0
	u.CreatedAt = parseTimestamp(createdAt)
	return u, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e         core.Expense
		amount    string
		date      string
		createdAt sql.NullString
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Category, &amount, &date, &e.Notes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}

	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	e.Date = core.Date(date)
	e.CreatedAt = parseTimestamp(createdAt)
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// parseTimestamp reads SQLite's CURRENT_TIMESTAMP text form. An unparseable
// value yields the zero time rather than an error.
func parseTimestamp(v sql.NullString) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, v.String); err == nil {
			return t
		}
	}
	return time.Time{}
}
