package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/model"
)

const abuseColumns = `id, reporter_email, item_id, item_kind, reason, status, admin_response, created_at, updated_at`

func scanAbuse(s scanner) (*model.AbuseReport, error) {
	r := &model.AbuseReport{}
	err := s.Scan(&r.ID, &r.ReporterEmail, &r.ItemID, &r.ItemKind, &r.Reason, &r.Status,
		&r.AdminResponse, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateAbuseReport files a pending report against an item.
func CreateAbuseReport(ctx context.Context, db *db.DB, reporter string, kind model.ItemKind, itemID, reason string) (*model.AbuseReport, error) {
	at := now()
	r := &model.AbuseReport{
		ID:            uuid.NewString(),
		ReporterEmail: model.NormalizeEmail(reporter),
		ItemID:        itemID,
		ItemKind:      kind,
		Reason:        strings.TrimSpace(reason),
		Status:        model.ReportPending,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO abuse_reports (`+abuseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ReporterEmail, r.ItemID, string(r.ItemKind), r.Reason, r.Status, r.AdminResponse,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating abuse report: %w", err)
	}
	return r, nil
}

// GetAbuseReport returns a report by ID, or nil if not found.
func GetAbuseReport(ctx context.Context, db *db.DB, id string) (*model.AbuseReport, error) {
	r, err := scanAbuse(db.QueryRowContext(ctx,
		`SELECT `+abuseColumns+` FROM abuse_reports WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting abuse report: %w", err)
	}
	return r, nil
}

// ListAbuseReports returns reports newest first, optionally filtered by
// status and a case-insensitive search over reporter and reason.
func ListAbuseReports(ctx context.Context, db *db.DB, status, search string) ([]model.AbuseReport, error) {
	query := `SELECT ` + abuseColumns + ` FROM abuse_reports WHERE 1 = 1`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if s := strings.TrimSpace(search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		query += ` AND (LOWER(reporter_email) LIKE ? ESCAPE '\' OR LOWER(reason) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing abuse reports: %w", err)
	}
	defer rows.Close()

	reports := []model.AbuseReport{}
	for rows.Next() {
		r, err := scanAbuse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning abuse report: %w", err)
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// RespondAbuseReport records an admin response. A non-empty response
// resolves the report; an empty one reopens it.
func RespondAbuseReport(ctx context.Context, db *db.DB, id, response string) (*model.AbuseReport, error) {
	response = strings.TrimSpace(response)
	status := model.ReportPending
	if response != "" {
		status = model.ReportResolved
	}
	res, err := db.ExecContext(ctx,
		`UPDATE abuse_reports SET admin_response = ?, status = ?, updated_at = ? WHERE id = ?`,
		response, status, now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("responding to abuse report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return GetAbuseReport(ctx, db, id)
}
