// Package access resolves the roles of an authenticated viewer.
package access

import (
	"context"
	"log/slog"

	"github.com/manujcode/lose-and-found/internal/model"
)

// GuardLookup reports whether an email is a registered security guard.
type GuardLookup func(ctx context.Context, email string) (bool, error)

// Gate decides admin membership from a configured allow-list and guard
// membership from the registration store. Guard membership is looked up on
// every call.
type Gate struct {
	admins map[string]struct{}
	guards GuardLookup
}

// NewGate builds a gate from the admin allow-list and a guard lookup.
func NewGate(adminEmails []string, guards GuardLookup) *Gate {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = model.NormalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &Gate{admins: admins, guards: guards}
}

// IsAdmin reports whether email is on the admin allow-list.
func (g *Gate) IsAdmin(email string) bool {
	email = model.NormalizeEmail(email)
	if email == "" {
		return false
	}
	_, ok := g.admins[email]
	return ok
}

// IsGuard reports whether email is a registered guard. Lookup failures deny
// the role.
func (g *Gate) IsGuard(ctx context.Context, email string) bool {
	email = model.NormalizeEmail(email)
	if email == "" || g.guards == nil {
		return false
	}
	ok, err := g.guards(ctx, email)
	if err != nil {
		slog.Warn("guard lookup failed, denying role", "user", email, "error", err)
		return false
	}
	return ok
}

// Resolve returns the roles held by email.
func (g *Gate) Resolve(ctx context.Context, email string) model.Roles {
	return model.Roles{
		Admin: g.IsAdmin(email),
		Guard: g.IsGuard(ctx, email),
	}
}

// Actor builds an actor with resolved roles.
func (g *Gate) Actor(ctx context.Context, email, name string) model.Actor {
	return model.Actor{
		Email: model.NormalizeEmail(email),
		Name:  name,
		Roles: g.Resolve(ctx, email),
	}
}
