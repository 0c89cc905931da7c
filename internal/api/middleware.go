package api

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/manujcode/lose-and-found/internal/access"
	"github.com/manujcode/lose-and-found/internal/auth"
	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/metrics"
	"github.com/manujcode/lose-and-found/internal/model"
	"github.com/manujcode/lose-and-found/internal/store"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	actorKey  contextKey = "actor"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "session"

// tokenFromRequest reads a Bearer header, falling back to the session cookie.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// authenticator validates session tokens and resolves the viewer's roles.
type authenticator struct {
	secret string
	db     *db.DB
	gate   *access.Gate
}

// authenticate returns nil claims when no usable token is present.
func (a *authenticator) authenticate(r *http.Request) (*auth.Claims, model.Actor, bool) {
	tokenStr := tokenFromRequest(r)
	if tokenStr == "" {
		return nil, model.Actor{}, false
	}
	claims, err := auth.ValidateToken(a.secret, tokenStr)
	if err != nil {
		return nil, model.Actor{}, false
	}
	revoked, err := store.IsTokenRevoked(r.Context(), a.db, claims.ID)
	if err != nil {
		slog.Error("checking token revocation", "error", err)
		return nil, model.Actor{}, false
	}
	if revoked {
		return nil, model.Actor{}, false
	}
	return claims, a.gate.Actor(r.Context(), claims.Email, claims.Name), true
}

func withSession(r *http.Request, claims *auth.Claims, actor model.Actor) *http.Request {
	ctx := context.WithValue(r.Context(), claimsKey, claims)
	ctx = context.WithValue(ctx, actorKey, actor)
	return r.WithContext(ctx)
}

// AuthMiddleware rejects requests without a valid, unrevoked session token.
func (a *authenticator) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, actor, ok := a.authenticate(r)
		if !ok {
			jsonError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, withSession(r, claims, actor))
	})
}

// OptionalAuth attaches the session when there is one and never rejects.
func (a *authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, actor, ok := a.authenticate(r); ok {
			r = withSession(r, claims, actor)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows only admins through.
func RequireAdmin(next http.Handler) http.Handler {
	return requireRole("admin", func(r model.Roles) bool { return r.Admin }, next)
}

// RequireGuard allows only registered security guards through.
func RequireGuard(next http.Handler) http.Handler {
	return requireRole("security guard", func(r model.Roles) bool { return r.Guard }, next)
}

func requireRole(name string, has func(model.Roles) bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			jsonError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !has(actor.Roles) {
			slog.Warn("role check failed", "user", actor.Email, "role", name, "path", r.URL.Path)
			jsonError(w, http.StatusForbidden, name+" role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClaims retrieves the session claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// GetActor retrieves the authenticated viewer from the context.
func GetActor(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes connection takeover through for the WebSocket feed.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

// MetricsMiddleware records request counts and latency by route pattern.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.ObserveRequest(r.Pattern, r.Method, rec.status, time.Since(start))
		})
	}
}
