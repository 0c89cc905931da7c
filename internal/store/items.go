// Package store implements record storage for items, comments, guard
// registrations, abuse reports, accounts and sessions.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/manujcode/lose-and-found/internal/model"
)

var (
	// ErrNotFound is returned by writes that target a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an update carries a stale version.
	ErrConflict = errors.New("record was modified concurrently")
	// ErrDuplicate is returned when a unique value is already taken.
	ErrDuplicate = errors.New("record already exists")
)

type scanner interface {
	Scan(dest ...any) error
}

// now is the store clock. Timestamps are always UTC so text ordering in
// SQLite matches time ordering.
var now = func() time.Time { return time.Now().UTC() }

// ErrUnsupportedStatus is returned when a status filter has no meaning for
// the listed item kind.
var ErrUnsupportedStatus = errors.New("unsupported status filter")

// itemWhere builds the WHERE clause shared by both item tables. statuses
// maps each supported status filter to its flag condition.
func itemWhere(f model.ItemFilter, statuses map[model.Stage]string) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	if f.Stage != "" {
		conds = append(conds, "stage = ?")
		args = append(args, string(f.Stage))
	}
	if f.Status != "" {
		cond, ok := statuses[f.Status]
		if !ok {
			return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedStatus, f.Status)
		}
		conds = append(conds, cond)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		conds = append(conds, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`+
			` OR LOWER(location) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if f.Tags != "" {
		conds = append(conds, "tags = ?")
		args = append(args, f.Tags)
	}
	if f.Course != "" {
		conds = append(conds, "course = ?")
		args = append(args, f.Course)
	}
	if f.Email != "" {
		conds = append(conds, "email = ?")
		args = append(args, model.NormalizeEmail(f.Email))
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// nullable unwraps optional columns into driver values.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// prepareListing fills in the fields the store owns on insert.
func prepareListing(l *model.Listing, id string, at time.Time) {
	l.ID = id
	l.Email = model.NormalizeEmail(l.Email)
	l.Version = 1
	l.CreatedAt = at
	l.UpdatedAt = at
}
