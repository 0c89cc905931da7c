package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/model"
)

// AddComment appends a comment to a lost item. Returns ErrNotFound if the
// item does not exist.
func AddComment(ctx context.Context, db *db.DB, itemID, name, email, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("adding comment: empty text")
	}

	var exists int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lost_items WHERE id = ?`, itemID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking comment item: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	c := &model.Comment{
		ID:        uuid.NewString(),
		ProductID: itemID,
		Name:      name,
		Email:     model.NormalizeEmail(email),
		Text:      text,
		CreatedAt: now(),
	}
	err := db.QueryRowContext(ctx,
		`INSERT INTO comments (id, product_id, name, email, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING seq`,
		c.ID, c.ProductID, c.Name, c.Email, c.Text, c.CreatedAt,
	).Scan(&c.Seq)
	if err != nil {
		return nil, fmt.Errorf("adding comment: %w", err)
	}
	return c, nil
}

// ListComments returns the comments of one lost item, newest first. Comments
// with equal timestamps are ordered by insertion, latest first.
func ListComments(ctx context.Context, db *db.DB, itemID string) ([]model.Comment, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT seq, id, product_id, name, email, text, created_at
		 FROM comments WHERE product_id = ?
		 ORDER BY created_at DESC, seq DESC`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.Seq, &c.ID, &c.ProductID, &c.Name, &c.Email, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
