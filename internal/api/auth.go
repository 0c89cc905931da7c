package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/manujcode/lose-and-found/internal/auth"
	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/model"
	"github.com/manujcode/lose-and-found/internal/store"
)

// AuthHandler handles login, logout and session endpoints.
type AuthHandler struct {
	DB           *db.DB
	JWTSecret    string
	SessionTTL   time.Duration
	CookieSecure bool

	// OAuth is nil when no provider is configured.
	OAuth      *auth.OAuth
	SuccessURL string
	FailureURL string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  model.Actor `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *model.Actor `json:"user,omitempty"`
	Provider      string       `json:"provider,omitempty"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.ttl().Seconds()),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) ttl() time.Duration {
	if h.SessionTTL > 0 {
		return h.SessionTTL
	}
	return auth.TokenExpiry
}

// Login handles POST /api/auth/login for local accounts.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = model.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	account, err := store.GetAccountByEmail(r.Context(), h.DB, req.Email)
	if err != nil {
		writeError(w, r, "log in", err)
		return
	}
	if account == nil || account.DeletedAt != nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !auth.CheckPassword(account.PasswordHash, req.Password) {
		slog.Warn("login failed", "user", req.Email, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, account.Email, account.Name, auth.ProviderPassword, h.ttl())
	if err != nil {
		writeError(w, r, "generate token", err)
		return
	}

	h.setSessionCookie(w, token)
	slog.Info("user logged in", "user", account.Email, "provider", auth.ProviderPassword)
	jsonResponse(w, http.StatusOK, loginResponse{
		Token: token,
		User:  model.Actor{Email: account.Email, Name: account.Name},
	})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := store.GetAccountByEmail(r.Context(), h.DB, claims.Email)
	if err != nil {
		writeError(w, r, "update password", err)
		return
	}
	if account == nil || account.DeletedAt != nil {
		jsonError(w, http.StatusBadRequest, "no local account for this user")
		return
	}

	if !auth.CheckPassword(account.PasswordHash, req.CurrentPassword) {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, r, "hash password", err)
		return
	}

	if err := store.UpdateAccountPassword(r.Context(), h.DB, account.ID, hash); err != nil {
		writeError(w, r, "update password", err)
		return
	}

	slog.Info("user changed own password", "user", account.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// Logout handles POST /api/auth/logout. The token stays revoked until it
// would have expired anyway.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		writeError(w, r, "log out", err)
		return
	}

	h.clearSessionCookie(w)
	slog.Info("user logged out", "user", claims.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Session handles GET /api/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		jsonResponse(w, http.StatusOK, sessionResponse{})
		return
	}
	resp := sessionResponse{Authenticated: true, User: &actor}
	if claims := GetClaims(r.Context()); claims != nil {
		resp.Provider = claims.Provider
		if claims.ExpiresAt != nil {
			resp.ExpiresAt = &claims.ExpiresAt.Time
		}
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (h *AuthHandler) oauthFor(r *http.Request) *auth.OAuth {
	if h.OAuth == nil || !strings.EqualFold(r.PathValue("provider"), h.OAuth.Provider) {
		return nil
	}
	return h.OAuth
}

// OAuthBegin handles GET /api/auth/oauth/{provider}.
func (h *AuthHandler) OAuthBegin(w http.ResponseWriter, r *http.Request) {
	o := h.oauthFor(r)
	if o == nil {
		jsonError(w, http.StatusNotFound, "unknown login provider")
		return
	}
	target, err := o.Begin(w, r)
	if err != nil {
		slog.Error("starting oauth login", "error", err)
		http.Redirect(w, r, h.FailureURL, http.StatusFound)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// OAuthCallback handles GET /api/auth/oauth/{provider}/callback. Any failure
// sends the browser to the failure URL.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	o := h.oauthFor(r)
	if o == nil {
		jsonError(w, http.StatusNotFound, "unknown login provider")
		return
	}

	id, err := o.Complete(w, r)
	if err != nil {
		slog.Warn("oauth login failed", "provider", o.Provider, "error", err)
		http.Redirect(w, r, h.FailureURL, http.StatusFound)
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, id.Email, id.Name, o.Provider, h.ttl())
	if err != nil {
		slog.Error("issuing session token", "user", id.Email, "error", err)
		http.Redirect(w, r, h.FailureURL, http.StatusFound)
		return
	}

	h.setSessionCookie(w, token)
	slog.Info("user logged in", "user", id.Email, "provider", o.Provider)
	http.Redirect(w, r, h.SuccessURL, http.StatusFound)
}
