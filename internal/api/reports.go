package api

import (
	"net/http"
	"strings"

	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/model"
	"github.com/manujcode/lose-and-found/internal/service"
	"github.com/manujcode/lose-and-found/internal/store"
)

// ReportsHandler handles user reports against listings.
type ReportsHandler struct {
	DB      *db.DB
	Service *service.Service
}

type createReportRequest struct {
	ItemID   string `json:"item_id"`
	ItemKind string `json:"item_kind"`
	Reason   string `json:"reason"`
}

type respondReportRequest struct {
	Response string `json:"response"`
}

// Create handles POST /api/reports.
func (h *ReportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, ok := model.ParseItemKind(req.ItemKind)
	if !ok {
		jsonError(w, http.StatusBadRequest, "item_kind must be lost or found")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		jsonError(w, http.StatusBadRequest, "reason required")
		return
	}

	var err error
	if kind == model.KindLost {
		_, err = h.Service.GetLost(r.Context(), req.ItemID)
	} else {
		_, err = h.Service.GetFound(r.Context(), req.ItemID)
	}
	if err != nil {
		writeError(w, r, "file report", err)
		return
	}

	actor, _ := GetActor(r.Context())
	report, err := store.CreateAbuseReport(r.Context(), h.DB, actor.Email, kind, req.ItemID, req.Reason)
	if err != nil {
		writeError(w, r, "file report", err)
		return
	}
	jsonResponse(w, http.StatusCreated, report)
}

// List handles GET /api/admin/reports.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	if status != "" && status != model.ReportPending && status != model.ReportResolved {
		jsonError(w, http.StatusBadRequest, "status must be pending or resolved")
		return
	}
	reports, err := store.ListAbuseReports(r.Context(), h.DB, status, q.Get("q"))
	if err != nil {
		writeError(w, r, "list reports", err)
		return
	}
	jsonResponse(w, http.StatusOK, reports)
}

// Respond handles PUT /api/admin/reports/{id}.
func (h *ReportsHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req respondReportRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	report, err := store.RespondAbuseReport(r.Context(), h.DB, r.PathValue("id"), req.Response)
	if err != nil {
		writeError(w, r, "respond to report", err)
		return
	}
	jsonResponse(w, http.StatusOK, report)
}
