package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/model"
	"github.com/manujcode/lose-and-found/internal/store"
)

// GuardsHandler handles security guard registrations (admin only).
type GuardsHandler struct {
	DB *db.DB
}

type guardRequest struct {
	SecurityEmail string `json:"security_email"`
}

func (req *guardRequest) validate() (string, bool) {
	email := model.NormalizeEmail(req.SecurityEmail)
	at := strings.IndexByte(email, '@')
	return email, at > 0 && at < len(email)-1
}

// List handles GET /api/admin/guards.
func (h *GuardsHandler) List(w http.ResponseWriter, r *http.Request) {
	guards, err := store.ListGuards(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, "list guards", err)
		return
	}
	jsonResponse(w, http.StatusOK, guards)
}

// Create handles POST /api/admin/guards.
func (h *GuardsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req guardRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email, ok := req.validate()
	if !ok {
		jsonError(w, http.StatusBadRequest, "a valid security_email is required")
		return
	}

	actor, _ := GetActor(r.Context())
	g, err := store.CreateGuard(r.Context(), h.DB, actor.Email, email)
	if err != nil {
		writeError(w, r, "register guard", err)
		return
	}

	slog.Info("guard registered", "guard", g.SecurityEmail, "user", actor.Email)
	jsonResponse(w, http.StatusCreated, g)
}

// Update handles PUT /api/admin/guards/{id}.
func (h *GuardsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req guardRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email, ok := req.validate()
	if !ok {
		jsonError(w, http.StatusBadRequest, "a valid security_email is required")
		return
	}

	g, err := store.UpdateGuard(r.Context(), h.DB, r.PathValue("id"), email)
	if err != nil {
		writeError(w, r, "update guard", err)
		return
	}
	actor, _ := GetActor(r.Context())
	slog.Info("guard updated", "guard", g.SecurityEmail, "user", actor.Email)
	jsonResponse(w, http.StatusOK, g)
}

// Delete handles DELETE /api/admin/guards/{id}.
func (h *GuardsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := store.DeleteGuard(r.Context(), h.DB, id); err != nil {
		writeError(w, r, "delete guard", err)
		return
	}
	actor, _ := GetActor(r.Context())
	slog.Info("guard removed", "id", id, "user", actor.Email)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "guard removed"})
}
