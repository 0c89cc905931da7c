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

const foundColumns = `id, title, description, location, color, tags, course, image_key,
	name, email, phone, phone_private, guard_received, owner_received, guard_remarks, disabled,
	is_active, stage, version, created_at, updated_at`

const (
	foundActiveCond   = "(disabled = FALSE AND (is_active IS NULL OR is_active = TRUE))"
	foundDisabledCond = "(disabled = TRUE OR is_active = FALSE)"
)

// foundStatuses are the flag conditions behind the status filter. Unlike
// stages they overlap: a returned item that was then disabled matches
// owner_received, guard_received and disabled.
var foundStatuses = map[model.Stage]string{
	model.StageActive:        foundActiveCond,
	model.StageDisabled:      foundDisabledCond,
	model.StageGuardReceived: "guard_received = TRUE",
	model.StageOwnerReceived: "owner_received = TRUE",
}

func scanFound(s scanner) (*model.FoundItem, error) {
	it := &model.FoundItem{}
	err := s.Scan(&it.ID, &it.Title, &it.Description, &it.Location, &it.Color, &it.Tags, &it.Course,
		&it.ImageKey, &it.Name, &it.Email, &it.Phone, &it.PhonePrivate, &it.GuardReceived,
		&it.OwnerReceived, &it.GuardRemarks, &it.Disabled, &it.IsActive, &it.Stage, &it.Version,
		&it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// CreateFoundItem inserts a found item.
func CreateFoundItem(ctx context.Context, db *db.DB, it *model.FoundItem) (*model.FoundItem, error) {
	prepareListing(&it.Listing, uuid.NewString(), now())
	it.Stage = lifecycle.FoundStage(it)

	_, err := db.ExecContext(ctx,
		`INSERT INTO found_items (`+foundColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.Title, it.Description, it.Location, it.Color, it.Tags, it.Course, nullable(it.ImageKey),
		it.Name, it.Email, it.Phone, it.PhonePrivate, it.GuardReceived, it.OwnerReceived,
		it.GuardRemarks, it.Disabled, nullable(it.IsActive), string(it.Stage), it.Version, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating found item: %w", err)
	}
	return GetFoundItem(ctx, db, it.ID)
}

// GetFoundItem returns a found item by ID, or nil if it does not exist.
func GetFoundItem(ctx context.Context, db *db.DB, id string) (*model.FoundItem, error) {
	it, err := scanFound(db.QueryRowContext(ctx,
		`SELECT `+foundColumns+` FROM found_items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting found item: %w", err)
	}
	return it, nil
}

// ListFoundItems returns one page of found items, newest first, and the
// total number of matches.
func ListFoundItems(ctx context.Context, db *db.DB, f model.ItemFilter) ([]model.FoundItem, int, error) {
	f.Normalize()
	where, args, err := itemWhere(f, foundStatuses)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM found_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting found items: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+foundColumns+` FROM found_items`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, int64(f.PerPage), int64((f.Page-1)*f.PerPage))...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing found items: %w", err)
	}
	defer rows.Close()

	var items []model.FoundItem
	for rows.Next() {
		it, err := scanFound(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning found item: %w", err)
		}
		items = append(items, *it)
	}
	return items, total, rows.Err()
}

// CountFoundByStatus returns how many found items match each status
// filter. The counts overlap the same way the filters do.
func CountFoundByStatus(ctx context.Context, db *db.DB) (map[model.Stage]int, error) {
	var active, disabled, guard, owner int
	err := db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(CASE WHEN `+foundActiveCond+` THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN `+foundDisabledCond+` THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN guard_received = TRUE THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN owner_received = TRUE THEN 1 ELSE 0 END), 0)
		FROM found_items`,
	).Scan(&active, &disabled, &guard, &owner)
	if err != nil {
		return nil, fmt.Errorf("counting found items by status: %w", err)
	}
	return map[model.Stage]int{
		model.StageActive:        active,
		model.StageDisabled:      disabled,
		model.StageGuardReceived: guard,
		model.StageOwnerReceived: owner,
	}, nil
}

// UpdateFoundItem writes it if the stored version still equals version.
func UpdateFoundItem(ctx context.Context, db *db.DB, it *model.FoundItem, version int64) (*model.FoundItem, error) {
	it.Stage = lifecycle.FoundStage(it)
	res, err := db.ExecContext(ctx,
		`UPDATE found_items SET title = ?, description = ?, location = ?, color = ?, tags = ?, course = ?,
		     image_key = ?, phone = ?, phone_private = ?, guard_received = ?, owner_received = ?,
		     guard_remarks = ?, disabled = ?, is_active = ?, stage = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		it.Title, it.Description, it.Location, it.Color, it.Tags, it.Course,
		nullable(it.ImageKey), it.Phone, it.PhonePrivate, it.GuardReceived, it.OwnerReceived,
		it.GuardRemarks, it.Disabled, nullable(it.IsActive), string(it.Stage), now(),
		it.ID, version,
	)
	if err != nil {
		return nil, fmt.Errorf("updating found item: %w", err)
	}
	if err := checkVersioned(ctx, db, res, "found_items", it.ID); err != nil {
		return nil, err
	}
	return GetFoundItem(ctx, db, it.ID)
}

// DeleteFoundItem removes a found item and returns it.
func DeleteFoundItem(ctx context.Context, db *db.DB, id string) (*model.FoundItem, error) {
	it, err := GetFoundItem(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrNotFound
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM found_items WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting found item: %w", err)
	}
	return it, nil
}
