package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/manujcode/lose-and-found/internal/lifecycle"
	"github.com/manujcode/lose-and-found/internal/service"
	"github.com/manujcode/lose-and-found/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// rejectionStatus maps a rejection code to an HTTP status.
func rejectionStatus(code string) int {
	switch code {
	case lifecycle.CodeForbidden:
		return http.StatusForbidden
	case lifecycle.CodeReasonRequired, lifecycle.CodePreconditionFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// writeError translates service and store errors. Unexpected errors are
// logged and reported as "failed to <what>".
func writeError(w http.ResponseWriter, r *http.Request, what string, err error) {
	var rej *lifecycle.Rejection
	switch {
	case errors.As(err, &rej):
		jsonResponse(w, rejectionStatus(rej.Code), map[string]string{
			"error": rej.Message,
			"code":  rej.Code,
		})
	case errors.Is(err, service.ErrInvalid):
		jsonError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), service.ErrInvalid.Error()+": "))
	case errors.Is(err, store.ErrUnsupportedStatus):
		jsonError(w, http.StatusBadRequest, "status filter not supported for this item kind")
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		jsonResponse(w, http.StatusConflict, map[string]string{
			"error": "item was changed by someone else, reload and try again",
			"code":  "conflict",
		})
	case errors.Is(err, store.ErrDuplicate):
		jsonError(w, http.StatusConflict, "already exists")
	default:
		slog.Error("request failed", "op", what, "path", r.URL.Path, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to "+what)
	}
}
