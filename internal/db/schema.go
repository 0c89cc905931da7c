package db

import (
	"context"
	"fmt"
	"strings"
)

// schema is the full database schema. {{serial}} and {{ts}} are replaced per
// dialect.
const schema = `
CREATE TABLE IF NOT EXISTS lost_items (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL,
    description      TEXT NOT NULL,
    location         TEXT NOT NULL,
    color            TEXT NOT NULL DEFAULT '',
    tags             TEXT NOT NULL DEFAULT '',
    course           TEXT NOT NULL DEFAULT '',
    image_key        TEXT,
    name             TEXT NOT NULL,
    email            TEXT NOT NULL,
    phone            TEXT NOT NULL DEFAULT '',
    phone_private    BOOLEAN NOT NULL DEFAULT FALSE,
    disabled         BOOLEAN NOT NULL DEFAULT FALSE,
    disabled_reason  TEXT NOT NULL DEFAULT '',
    requested        BOOLEAN NOT NULL DEFAULT FALSE,
    requested_reason TEXT NOT NULL DEFAULT '',
    stage            TEXT NOT NULL DEFAULT 'active'
                     CHECK (stage IN ('active', 'disabled')),
    version          INTEGER NOT NULL DEFAULT 1,
    created_at       {{ts}} NOT NULL,
    updated_at       {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS found_items (
    id             TEXT PRIMARY KEY,
    title          TEXT NOT NULL,
    description    TEXT NOT NULL,
    location       TEXT NOT NULL,
    color          TEXT NOT NULL DEFAULT '',
    tags           TEXT NOT NULL DEFAULT '',
    course         TEXT NOT NULL DEFAULT '',
    image_key      TEXT,
    name           TEXT NOT NULL,
    email          TEXT NOT NULL,
    phone          TEXT NOT NULL DEFAULT '',
    phone_private  BOOLEAN NOT NULL DEFAULT FALSE,
    guard_received BOOLEAN NOT NULL DEFAULT FALSE,
    owner_received BOOLEAN NOT NULL DEFAULT FALSE,
    guard_remarks  TEXT NOT NULL DEFAULT '',
    disabled       BOOLEAN NOT NULL DEFAULT FALSE,
    is_active      BOOLEAN,
    stage          TEXT NOT NULL DEFAULT 'active'
                   CHECK (stage IN ('active', 'disabled', 'guard_received', 'owner_received')),
    version        INTEGER NOT NULL DEFAULT 1,
    created_at     {{ts}} NOT NULL,
    updated_at     {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
    seq        {{serial}},
    id         TEXT NOT NULL UNIQUE,
    product_id TEXT NOT NULL REFERENCES lost_items(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    email      TEXT NOT NULL,
    text       TEXT NOT NULL,
    created_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS guard_registrations (
    id             TEXT PRIMARY KEY,
    email          TEXT NOT NULL,
    security_email TEXT NOT NULL UNIQUE,
    created_at     {{ts}} NOT NULL,
    updated_at     {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS abuse_reports (
    id             TEXT PRIMARY KEY,
    reporter_email TEXT NOT NULL,
    item_id        TEXT NOT NULL,
    item_kind      TEXT NOT NULL CHECK (item_kind IN ('lost', 'found')),
    reason         TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'resolved')),
    admin_response TEXT NOT NULL DEFAULT '',
    created_at     {{ts}} NOT NULL,
    updated_at     {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL,
    name          TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    created_at    {{ts}} NOT NULL,
    deleted_at    {{ts}}
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at {{ts}} NOT NULL
);
`

func schemaFor(d Dialect) string {
	r := strings.NewReplacer(
		"{{serial}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ts}}", "DATETIME",
	)
	if d == Postgres {
		r = strings.NewReplacer(
			"{{serial}}", "BIGSERIAL PRIMARY KEY",
			"{{ts}}", "TIMESTAMPTZ",
		)
	}
	return r.Replace(schema)
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(ctx context.Context, d *DB) error {
	if _, err := d.DB.ExecContext(ctx, schemaFor(d.Dialect)); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return migrate(ctx, d)
}
