package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/lifecycle"
	"github.com/manujcode/lose-and-found/internal/model"
)

const lostColumns = `id, title, description, location, color, tags, course, image_key,
	name, email, phone, phone_private, disabled, disabled_reason, requested, requested_reason,
	stage, version, created_at, updated_at`

// lostStatuses are the flag conditions behind the status filter.
var lostStatuses = map[model.Stage]string{
	model.StageActive:   "disabled = FALSE",
	model.StageDisabled: "disabled = TRUE",
}

func scanLost(s scanner) (*model.LostItem, error) {
	it := &model.LostItem{}
	err := s.Scan(&it.ID, &it.Title, &it.Description, &it.Location, &it.Color, &it.Tags, &it.Course,
		&it.ImageKey, &it.Name, &it.Email, &it.Phone, &it.PhonePrivate, &it.Disabled, &it.DisabledReason,
		&it.Requested, &it.RequestedReason, &it.Stage, &it.Version, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// CreateLostItem inserts a lost item. The id, stage, version and timestamps
// are assigned here.
func CreateLostItem(ctx context.Context, db *db.DB, it *model.LostItem) (*model.LostItem, error) {
	prepareListing(&it.Listing, uuid.NewString(), now())
	it.Stage = lifecycle.LostStage(it)

	_, err := db.ExecContext(ctx,
		`INSERT INTO lost_items (`+lostColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.Title, it.Description, it.Location, it.Color, it.Tags, it.Course, nullable(it.ImageKey),
		it.Name, it.Email, it.Phone, it.PhonePrivate, it.Disabled, it.DisabledReason,
		it.Requested, it.RequestedReason, string(it.Stage), it.Version, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating lost item: %w", err)
	}
	return GetLostItem(ctx, db, it.ID)
}

// GetLostItem returns a lost item by ID, or nil if it does not exist.
func GetLostItem(ctx context.Context, db *db.DB, id string) (*model.LostItem, error) {
	it, err := scanLost(db.QueryRowContext(ctx,
		`SELECT `+lostColumns+` FROM lost_items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting lost item: %w", err)
	}
	return it, nil
}

// ListLostItems returns one page of lost items, newest first, and the total
// number of matches.
func ListLostItems(ctx context.Context, db *db.DB, f model.ItemFilter) ([]model.LostItem, int, error) {
	f.Normalize()
	where, args, err := itemWhere(f, lostStatuses)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lost_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting lost items: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+lostColumns+` FROM lost_items`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, int64(f.PerPage), int64((f.Page-1)*f.PerPage))...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing lost items: %w", err)
	}
	defer rows.Close()

	var items []model.LostItem
	for rows.Next() {
		it, err := scanLost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning lost item: %w", err)
		}
		items = append(items, *it)
	}
	return items, total, rows.Err()
}

// UpdateLostItem writes it if the stored version still equals version. The
// stage is recomputed and the version bumped. A stale version yields
// ErrConflict; a missing row yields ErrNotFound.
func UpdateLostItem(ctx context.Context, db *db.DB, it *model.LostItem, version int64) (*model.LostItem, error) {
	it.Stage = lifecycle.LostStage(it)
	res, err := db.ExecContext(ctx,
		`UPDATE lost_items SET title = ?, description = ?, location = ?, color = ?, tags = ?, course = ?,
		     image_key = ?, phone = ?, phone_private = ?, disabled = ?, disabled_reason = ?,
		     requested = ?, requested_reason = ?, stage = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		it.Title, it.Description, it.Location, it.Color, it.Tags, it.Course,
		nullable(it.ImageKey), it.Phone, it.PhonePrivate, it.Disabled, it.DisabledReason,
		it.Requested, it.RequestedReason, string(it.Stage), now(),
		it.ID, version,
	)
	if err != nil {
		return nil, fmt.Errorf("updating lost item: %w", err)
	}
	if err := checkVersioned(ctx, db, res, "lost_items", it.ID); err != nil {
		return nil, err
	}
	return GetLostItem(ctx, db, it.ID)
}

// DeleteLostItem removes a lost item and its comments in one transaction and
// returns the deleted item so callers can clean up its image.
func DeleteLostItem(ctx context.Context, db *db.DB, id string) (*model.LostItem, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	it, err := scanLost(tx.QueryRowContext(ctx,
		`SELECT `+lostColumns+` FROM lost_items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting lost item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE product_id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting comments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lost_items WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting lost item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing lost item delete: %w", err)
	}
	return it, nil
}

// checkVersioned turns a zero-row versioned update into ErrConflict or
// ErrNotFound.
func checkVersioned(ctx context.Context, db *db.DB, res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking %s row: %w", table, err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
