package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/model"
)

// CreateAccount creates a local password account. Returns ErrDuplicate if an
// active account already uses the email.
func CreateAccount(ctx context.Context, db *db.DB, email, name, passwordHash string) (*model.Account, error) {
	email = model.NormalizeEmail(email)
	existing, err := GetAccountByEmail(ctx, db, email)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.DeletedAt == nil {
		return nil, ErrDuplicate
	}

	a := &model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now(),
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.Name, a.PasswordHash, a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return a, nil
}

// GetAccountByEmail returns the active account for email, falling back to
// the most recently deleted one so logins can report it. Nil if none exists.
func GetAccountByEmail(ctx context.Context, db *db.DB, email string) (*model.Account, error) {
	a := &model.Account{}
	err := db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at, deleted_at
		 FROM accounts WHERE email = ?
		 ORDER BY CASE WHEN deleted_at IS NULL THEN 0 ELSE 1 END, created_at DESC
		 LIMIT 1`, model.NormalizeEmail(email),
	).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt, &a.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting account by email: %w", err)
	}
	return a, nil
}

// CountAccounts returns the number of active accounts.
func CountAccounts(ctx context.Context, db *db.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE deleted_at IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting accounts: %w", err)
	}
	return n, nil
}

// UpdateAccountPassword updates an account's password hash.
func UpdateAccountPassword(ctx context.Context, db *db.DB, id, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating account password: %w", err)
	}
	return nil
}

// DeleteAccount soft-deletes an account.
func DeleteAccount(ctx context.Context, db *db.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE accounts SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now(), id,
	)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}
