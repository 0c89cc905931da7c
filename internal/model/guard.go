package model

import "time"

// GuardRegistration grants the security guard role to SecurityEmail.
type GuardRegistration struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	SecurityEmail string    `json:"security_email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
