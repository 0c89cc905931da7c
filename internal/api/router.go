package api

import (
	"net/http"
	"time"

	"github.com/manujcode/lose-and-found/internal/access"
	"github.com/manujcode/lose-and-found/internal/auth"
	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/events"
	"github.com/manujcode/lose-and-found/internal/metrics"
	"github.com/manujcode/lose-and-found/internal/model"
	"github.com/manujcode/lose-and-found/internal/service"
)

// Options wires the router to its collaborators.
type Options struct {
	DB        *db.DB
	Service   *service.Service
	Gate      *access.Gate
	Hub       *events.Hub
	Metrics   *metrics.Metrics
	JWTSecret string

	SessionTTL   time.Duration
	CookieSecure bool

	// OAuth may be nil, which disables provider login.
	OAuth      *auth.OAuth
	SuccessURL string
	FailureURL string
}

// NewRouter creates the HTTP router with all endpoints registered.
func NewRouter(o Options) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{
		DB:           o.DB,
		JWTSecret:    o.JWTSecret,
		SessionTTL:   o.SessionTTL,
		CookieSecure: o.CookieSecure,
		OAuth:        o.OAuth,
		SuccessURL:   orDefault(o.SuccessURL, "/"),
		FailureURL:   orDefault(o.FailureURL, "/?login=failed"),
	}
	itemsHandler := &ItemsHandler{DB: o.DB, Service: o.Service}
	commentsHandler := &CommentsHandler{Service: o.Service}
	guardsHandler := &GuardsHandler{DB: o.DB}
	reportsHandler := &ReportsHandler{DB: o.DB, Service: o.Service}
	statsHandler := &StatsHandler{DB: o.DB}

	a := &authenticator{secret: o.JWTSecret, db: o.DB, gate: o.Gate}
	authMW := a.AuthMiddleware
	optAuth := a.OptionalAuth
	admin := func(h http.HandlerFunc) http.Handler { return authMW(RequireAdmin(h)) }
	guard := func(h http.HandlerFunc) http.Handler { return authMW(RequireGuard(h)) }

	// Public.
	mux.HandleFunc("GET /healthz", statsHandler.Health)
	if o.Metrics != nil {
		mux.Handle("GET /metrics", o.Metrics.Handler())
	}
	if o.Hub != nil {
		mux.Handle("GET /api/events", o.Hub)
	}
	mux.HandleFunc("GET /api/stats", statsHandler.Public)

	// Sessions.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/oauth/{provider}", authHandler.OAuthBegin)
	mux.HandleFunc("GET /api/auth/oauth/{provider}/callback", authHandler.OAuthCallback)
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("GET /api/session", optAuth(http.HandlerFunc(authHandler.Session)))

	// Lost items: browse (anyone), write (signed in).
	mux.Handle("GET /api/lost", optAuth(http.HandlerFunc(itemsHandler.ListLost)))
	mux.Handle("POST /api/lost", authMW(http.HandlerFunc(itemsHandler.CreateLost)))
	mux.Handle("GET /api/lost/{id}", optAuth(http.HandlerFunc(itemsHandler.GetLost)))
	mux.Handle("DELETE /api/lost/{id}", authMW(http.HandlerFunc(itemsHandler.DeleteLost)))
	mux.Handle("POST /api/lost/{id}/actions/{action}", authMW(http.HandlerFunc(itemsHandler.LostAction)))
	mux.Handle("GET /api/lost/{id}/comments", optAuth(http.HandlerFunc(commentsHandler.List)))
	mux.Handle("POST /api/lost/{id}/comments", authMW(http.HandlerFunc(commentsHandler.Create)))

	// Found items: actions need the guard role, checked per action.
	mux.Handle("GET /api/found", optAuth(http.HandlerFunc(itemsHandler.ListFound)))
	mux.Handle("POST /api/found", authMW(http.HandlerFunc(itemsHandler.CreateFound)))
	mux.Handle("GET /api/found/{id}", optAuth(http.HandlerFunc(itemsHandler.GetFound)))
	mux.Handle("DELETE /api/found/{id}", authMW(http.HandlerFunc(itemsHandler.DeleteFound)))
	mux.Handle("POST /api/found/{id}/actions/{action}", authMW(http.HandlerFunc(itemsHandler.FoundAction)))

	mux.HandleFunc("GET /api/lost/{id}/image", itemsHandler.Image(model.KindLost))
	mux.HandleFunc("GET /api/found/{id}/image", itemsHandler.Image(model.KindFound))
	mux.Handle("GET /api/me/uploads", authMW(http.HandlerFunc(itemsHandler.MyUploads)))
	mux.Handle("POST /api/reports", authMW(http.HandlerFunc(reportsHandler.Create)))

	// Security guards.
	mux.Handle("GET /api/security/items", guard(itemsHandler.SecurityItems))

	// Admin.
	mux.Handle("GET /api/admin/guards", admin(guardsHandler.List))
	mux.Handle("POST /api/admin/guards", admin(guardsHandler.Create))
	mux.Handle("PUT /api/admin/guards/{id}", admin(guardsHandler.Update))
	mux.Handle("DELETE /api/admin/guards/{id}", admin(guardsHandler.Delete))
	mux.Handle("GET /api/admin/items", admin(itemsHandler.AdminItems))
	mux.Handle("DELETE /api/admin/{kind}/{id}", admin(itemsHandler.AdminDelete))
	mux.Handle("GET /api/admin/analytics", admin(statsHandler.Analytics))
	mux.Handle("GET /api/admin/reports", admin(reportsHandler.List))
	mux.Handle("PUT /api/admin/reports/{id}", admin(reportsHandler.Respond))

	var h http.Handler = mux
	if o.Metrics != nil {
		h = MetricsMiddleware(o.Metrics)(h)
	}
	return LoggingMiddleware(h)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
