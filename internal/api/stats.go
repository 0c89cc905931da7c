package api

import (
	"net/http"
	"time"

	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/store"
)

// StatsHandler serves the public summary and the admin analytics.
type StatsHandler struct {
	DB *db.DB
}

// Public handles GET /api/stats.
func (h *StatsHandler) Public(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetPublicStats(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, "load stats", err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// Analytics handles GET /api/admin/analytics.
func (h *StatsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := store.GetAnalytics(r.Context(), h.DB, time.Now().UTC())
	if err != nil {
		writeError(w, r, "load analytics", err)
		return
	}
	jsonResponse(w, http.StatusOK, a)
}

// Health handles GET /healthz.
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		jsonError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
