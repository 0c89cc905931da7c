package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/manujcode/lose-and-found/internal/db"
)

// GetSetting returns a stored setting, or "" if it is unset.
func GetSetting(ctx context.Context, db *db.DB, key string) (string, error) {
	var value string
	rows, err := db.QueryContext(ctx, `SELECT value FROM settings WHERE key = ?`, key)
	if err != nil {
		return "", fmt.Errorf("querying setting %s: %w", key, err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&value); err != nil {
			return "", fmt.Errorf("scanning setting %s: %w", key, err)
		}
	}
	return value, rows.Err()
}

// GetJWTSecret returns the session signing secret, creating one on first use.
// Concurrent first calls agree on a single value: the insert is a no-op when
// a secret exists and the value is always read back.
func GetJWTSecret(ctx context.Context, db *db.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ('jwt_secret', ?) ON CONFLICT (key) DO NOTHING`,
		hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	secret, err := GetSetting(ctx, db, "jwt_secret")
	if err != nil {
		return "", err
	}
	return secret, nil
}
