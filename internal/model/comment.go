package model

import "time"

// Comment is a remark attached to a lost item. Comments are append-only.
type Comment struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
