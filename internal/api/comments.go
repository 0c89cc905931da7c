package api

import (
	"net/http"

	"github.com/manujcode/lose-and-found/internal/service"
)

// CommentsHandler handles the comment thread of lost items.
type CommentsHandler struct {
	Service *service.Service
}

type createCommentRequest struct {
	Text string `json:"text"`
}

// List handles GET /api/lost/{id}/comments.
func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	comments, err := h.Service.Comments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "list comments", err)
		return
	}
	jsonResponse(w, http.StatusOK, comments)
}

// Create handles POST /api/lost/{id}/comments.
func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor, _ := GetActor(r.Context())
	c, err := h.Service.AddComment(r.Context(), actor, r.PathValue("id"), req.Text)
	if err != nil {
		writeError(w, r, "add comment", err)
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}
