package model

import (
	"errors"
	"strings"
	"time"
)

// Account is a local password account, used where OAuth is not available.
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles are the privileges resolved for a viewer on a single request.
type Roles struct {
	Admin bool `json:"is_admin"`
	Guard bool `json:"is_security_guard"`
}

// Actor is the authenticated viewer performing an operation.
type Actor struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Roles Roles  `json:"roles"`
}

// Owns reports whether the actor reported the item.
func (a Actor) Owns(l *Listing) bool {
	return a.Email != "" && strings.EqualFold(a.Email, l.Email)
}

// NormalizeEmail lower-cases and trims an email for comparisons and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MinPasswordLength is the minimum accepted local password length.
const MinPasswordLength = 8

// ValidatePassword checks a new local account password.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
