package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/model"
)

// GuardExists reports whether email is a registered security guard.
func GuardExists(ctx context.Context, db *db.DB, email string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guard_registrations WHERE security_email = ?`,
		model.NormalizeEmail(email),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking guard registration: %w", err)
	}
	return count > 0, nil
}

// CreateGuard registers securityEmail as a guard on behalf of adminEmail.
// Returns ErrDuplicate if the email is already registered.
func CreateGuard(ctx context.Context, db *db.DB, adminEmail, securityEmail string) (*model.GuardRegistration, error) {
	securityEmail = model.NormalizeEmail(securityEmail)
	taken, err := guardEmailTaken(ctx, db, securityEmail, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicate
	}

	at := now()
	g := &model.GuardRegistration{
		ID:            uuid.NewString(),
		Email:         model.NormalizeEmail(adminEmail),
		SecurityEmail: securityEmail,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if err := insertGuard(ctx, db, g); err != nil {
		return nil, err
	}
	return g, nil
}

// insertGuard writes g. The UNIQUE index on security_email catches a
// registration that raced past the pre-check.
func insertGuard(ctx context.Context, d *db.DB, g *model.GuardRegistration) error {
	_, err := d.ExecContext(ctx,
		`INSERT INTO guard_registrations (id, email, security_email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.Email, g.SecurityEmail, g.CreatedAt, g.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("creating guard registration: %w", err)
	}
	return nil
}

// GetGuard returns a guard registration by ID, or nil if not found.
func GetGuard(ctx context.Context, db *db.DB, id string) (*model.GuardRegistration, error) {
	g := &model.GuardRegistration{}
	err := db.QueryRowContext(ctx,
		`SELECT id, email, security_email, created_at, updated_at
		 FROM guard_registrations WHERE id = ?`, id,
	).Scan(&g.ID, &g.Email, &g.SecurityEmail, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting guard registration: %w", err)
	}
	return g, nil
}

// ListGuards returns all guard registrations, newest first.
func ListGuards(ctx context.Context, db *db.DB) ([]model.GuardRegistration, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, email, security_email, created_at, updated_at
		 FROM guard_registrations ORDER BY created_at DESC, security_email`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing guard registrations: %w", err)
	}
	defer rows.Close()

	guards := []model.GuardRegistration{}
	for rows.Next() {
		var g model.GuardRegistration
		if err := rows.Scan(&g.ID, &g.Email, &g.SecurityEmail, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning guard registration: %w", err)
		}
		guards = append(guards, g)
	}
	return guards, rows.Err()
}

// UpdateGuard changes the registered email of a guard.
func UpdateGuard(ctx context.Context, db *db.DB, id, securityEmail string) (*model.GuardRegistration, error) {
	securityEmail = model.NormalizeEmail(securityEmail)
	taken, err := guardEmailTaken(ctx, db, securityEmail, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicate
	}
	return renameGuard(ctx, db, id, securityEmail)
}

func renameGuard(ctx context.Context, d *db.DB, id, securityEmail string) (*model.GuardRegistration, error) {
	res, err := d.ExecContext(ctx,
		`UPDATE guard_registrations SET security_email = ?, updated_at = ? WHERE id = ?`,
		securityEmail, now(), id,
	)
	if db.IsUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("updating guard registration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return GetGuard(ctx, d, id)
}

// DeleteGuard removes a guard registration.
func DeleteGuard(ctx context.Context, db *db.DB, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM guard_registrations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting guard registration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func guardEmailTaken(ctx context.Context, db *db.DB, email, exceptID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM guard_registrations WHERE security_email = ? AND id <> ?`,
		email, exceptID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking guard email: %w", err)
	}
	return count > 0, nil
}
