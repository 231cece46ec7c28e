package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_resistances/internal/models"
)

// ErrUsernameTaken is returned by Create for a duplicate username.
var ErrUsernameTaken = errors.New("username already taken")

const (
	// The first account becomes an operator; later ones start as viewers.
	insertAccountSQL = `
		INSERT INTO operators (username, password_hash, role, created_at)
		SELECT ?, ?, CASE WHEN EXISTS (SELECT 1 FROM operators) THEN 'viewer' ELSE 'operator' END, ?
		RETURNING id, role
	`
	selectAccountSQL = `SELECT id, username, role, password_hash, created_at FROM operators WHERE username = ?`
	updateRoleSQL    = `UPDATE operators SET role = ? WHERE id = ?`
)

type AccountSQLite struct {
	db *sql.DB
}

var _ Accounts = (*AccountSQLite)(nil)

func NewAccountSQLite(db *sql.DB) *AccountSQLite {
	return &AccountSQLite{db: db}
}

// Create stores a new account and returns it with the id and role assigned.
func (r *AccountSQLite) Create(ctx context.Context, username, passwordHash string) (models.Operator, error) {
	op := models.Operator{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	err := r.db.QueryRowContext(ctx, insertAccountSQL,
		username, passwordHash, op.CreatedAt.Format(sqliteTimestamp),
	).Scan(&op.ID, &op.Role)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Operator{}, ErrUsernameTaken
		}
		return models.Operator{}, fmt.Errorf("insert operator %q: %w", username, err)
	}
	return op, nil
}

// GetByUsername returns ErrNotFound when no such account exists.
func (r *AccountSQLite) GetByUsername(ctx context.Context, username string) (models.Operator, error) {
	var op models.Operator
	err := r.db.QueryRowContext(ctx, selectAccountSQL, username).
		Scan(&op.ID, &op.Username, &op.Role, &op.PasswordHash, &op.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.Operator{}, ErrNotFound
	case err != nil:
		return models.Operator{}, fmt.Errorf("select operator %q: %w", username, err)
	}
	op.CreatedAt = op.CreatedAt.UTC()
	return op, nil
}

// SetRole returns ErrNotFound when id matches no account.
func (r *AccountSQLite) SetRole(ctx context.Context, id int, role string) error {
	res, err := r.db.ExecContext(ctx, updateRoleSQL, role, id)
	if err != nil {
		return fmt.Errorf("update role of operator %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update role of operator %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
