package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{SQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{Postgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{Postgres, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{Postgres, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		d := &DB{Dialect: tt.dialect}
		if got := d.Rebind(tt.in); got != tt.want {
			t.Errorf("Rebind(%s, %q) = %q, want %q", tt.dialect, tt.in, got, tt.want)
		}
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	database := NewTestDB(t)
	if err := EnsureSchema(context.Background(), database); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	var n int
	err := database.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, "lost_items",
	).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if n != 1 {
		t.Errorf("expected lost_items table, got count %d", n)
	}
}

func TestConnectUnknownDriver(t *testing.T) {
	if _, err := Connect(context.Background(), "oracle", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestSQLiteDSN(t *testing.T) {
	got := sqliteDSN("data.sqlite3")
	want := "data.sqlite3?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	if got != want {
		t.Errorf("sqliteDSN = %q, want %q", got, want)
	}
	if got := sqliteDSN("file:data.sqlite3?mode=rwc"); !strings.HasPrefix(got, "file:data.sqlite3?mode=rwc&_pragma=") {
		t.Errorf("sqliteDSN kept existing query badly: %q", got)
	}
}

func TestPragmasOnEveryConnection(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "pragmas.sqlite3"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	// Holding the first connection forces the pool to open a second one.
	var conns []*sql.Conn
	for range 2 {
		c, err := database.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn: %v", err)
		}
		defer c.Close()
		conns = append(conns, c)
	}
	for i, c := range conns {
		var fk, timeout int
		if err := c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("conn %d foreign_keys: %v", i, err)
		}
		if err := c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("conn %d busy_timeout: %v", i, err)
		}
		if fk != 1 || timeout != 5000 {
			t.Errorf("conn %d: foreign_keys=%d busy_timeout=%d", i, fk, timeout)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	database := NewTestDB(t)
	ctx := context.Background()

	insert := `INSERT INTO guard_registrations (id, email, security_email, created_at, updated_at)
		VALUES (?, 'admin@campus.edu', 'gate@campus.edu', '2026-01-01', '2026-01-01')`
	if _, err := database.ExecContext(ctx, insert, "g1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := database.ExecContext(ctx, insert, "g2")
	if err == nil {
		t.Fatal("expected duplicate security_email to fail")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false", err)
	}
	if IsUniqueViolation(errors.New("boom")) || IsUniqueViolation(nil) {
		t.Error("plain errors are not unique violations")
	}
}
