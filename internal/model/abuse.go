package model

import "time"

// AbuseReport is a user complaint about a listing, answered by an admin.
type AbuseReport struct {
	ID            string    `json:"id"`
	ReporterEmail string    `json:"reporter_email"`
	ItemID        string    `json:"item_id"`
	ItemKind      ItemKind  `json:"item_kind"`
	Reason        string    `json:"reason"`
	Status        string    `json:"status"`
	AdminResponse string    `json:"admin_response,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Abuse report statuses.
const (
	ReportPending  = "pending"
	ReportResolved = "resolved"
)
