package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/manujcode/lose-and-found/internal/blob"
	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/imaging"
	"github.com/manujcode/lose-and-found/internal/lifecycle"
	"github.com/manujcode/lose-and-found/internal/model"
	"github.com/manujcode/lose-and-found/internal/service"
	"github.com/manujcode/lose-and-found/internal/store"
)

// ItemsHandler handles lost and found item endpoints.
type ItemsHandler struct {
	DB      *db.DB
	Service *service.Service
}

type createItemRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	Color        string `json:"color"`
	Tags         string `json:"tags"`
	Course       string `json:"course"`
	Phone        string `json:"phone"`
	PhonePrivate bool   `json:"phone_private"`
}

type actionRequest struct {
	Reason  string `json:"reason"`
	Version int64  `json:"version"`
}

type actionResponse struct {
	Message string `json:"message"`
	Item    any    `json:"item"`
}

// maxUploadBytes bounds multipart bodies: the image limit plus form fields.
const maxUploadBytes = imaging.DefaultMaxBytes + 1<<20

// parseFilter reads listing filters from the query string.
func parseFilter(r *http.Request) (model.ItemFilter, error) {
	q := r.URL.Query()
	f := model.ItemFilter{
		Stage:  model.Stage(q.Get("stage")),
		Status: model.Stage(q.Get("status")),
		Query:  q.Get("q"),
		Tags:   q.Get("tags"),
		Course: q.Get("course"),
		Email:  q.Get("email"),
	}
	if f.Stage != "" && !lifecycle.ValidStage(f.Stage) {
		return f, errors.New("unknown stage")
	}
	if f.Status != "" && !lifecycle.ValidStage(f.Status) {
		return f, errors.New("unknown status")
	}
	var err error
	if v := q.Get("page"); v != "" {
		if f.Page, err = strconv.Atoi(v); err != nil {
			return f, errors.New("invalid page")
		}
	}
	if v := q.Get("per_page"); v != "" {
		if f.PerPage, err = strconv.Atoi(v); err != nil {
			return f, errors.New("invalid per_page")
		}
	}
	f.Normalize()
	return f, nil
}

// ifMatch reads an expected version from the If-Match header.
func ifMatch(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	if v == "" {
		return 0, nil
	}
	v = strings.Trim(strings.TrimPrefix(v, "W/"), `"`)
	return strconv.ParseInt(v, 10, 64)
}

func setETag(w http.ResponseWriter, version int64) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(version, 10)))
}

// readNewItem accepts either a multipart form with an optional "image" file
// or a JSON body. The returned closer releases the uploaded file.
func readNewItem(w http.ResponseWriter, r *http.Request) (service.NewItem, io.Reader, func(), error) {
	noop := func() {}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req createItemRequest
		if err := decodeJSON(r, &req); err != nil {
			return service.NewItem{}, nil, noop, errors.New("invalid request body")
		}
		return service.NewItem(req), nil, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return service.NewItem{}, nil, noop, errors.New("file too large or invalid multipart form")
	}
	private, _ := strconv.ParseBool(r.FormValue("phone_private"))
	in := service.NewItem{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		Location:     r.FormValue("location"),
		Color:        r.FormValue("color"),
		Tags:         r.FormValue("tags"),
		Course:       r.FormValue("course"),
		Phone:        r.FormValue("phone"),
		PhonePrivate: private,
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, noop, nil
	}
	if err != nil {
		return in, nil, noop, errors.New("invalid image upload")
	}
	return in, file, func() { file.Close() }, nil
}

// ListLost handles GET /api/lost.
func (h *ItemsHandler) ListLost(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, total, err := store.ListLostItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, "list lost items", err)
		return
	}
	actor, _ := GetActor(r.Context())
	jsonResponse(w, http.StatusOK, lostPage(items, total, f, actor))
}

// ListFound handles GET /api/found.
func (h *ItemsHandler) ListFound(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, total, err := store.ListFoundItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, "list found items", err)
		return
	}
	actor, _ := GetActor(r.Context())
	jsonResponse(w, http.StatusOK, foundPage(items, total, f, actor))
}

// CreateLost handles POST /api/lost.
func (h *ItemsHandler) CreateLost(w http.ResponseWriter, r *http.Request) {
	actor, _ := GetActor(r.Context())
	in, img, done, err := readNewItem(w, r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer done()

	it, err := h.Service.CreateLost(r.Context(), actor, in, img)
	if err != nil {
		writeError(w, r, "create lost item", err)
		return
	}
	setETag(w, it.Version)
	jsonResponse(w, http.StatusCreated, viewLost(*it, actor))
}

// CreateFound handles POST /api/found.
func (h *ItemsHandler) CreateFound(w http.ResponseWriter, r *http.Request) {
	actor, _ := GetActor(r.Context())
	in, img, done, err := readNewItem(w, r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer done()

	it, err := h.Service.CreateFound(r.Context(), actor, in, img)
	if err != nil {
		writeError(w, r, "create found item", err)
		return
	}
	setETag(w, it.Version)
	jsonResponse(w, http.StatusCreated, viewFound(*it, actor))
}

// GetLost handles GET /api/lost/{id}.
func (h *ItemsHandler) GetLost(w http.ResponseWriter, r *http.Request) {
	it, err := h.Service.GetLost(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "get lost item", err)
		return
	}
	actor, _ := GetActor(r.Context())
	setETag(w, it.Version)
	jsonResponse(w, http.StatusOK, viewLost(*it, actor))
}

// GetFound handles GET /api/found/{id}.
func (h *ItemsHandler) GetFound(w http.ResponseWriter, r *http.Request) {
	it, err := h.Service.GetFound(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "get found item", err)
		return
	}
	actor, _ := GetActor(r.Context())
	setETag(w, it.Version)
	jsonResponse(w, http.StatusOK, viewFound(*it, actor))
}

// readAction combines the JSON body with an If-Match version. The header
// wins when both are present.
func readAction(r *http.Request) (service.ActionRequest, error) {
	var req actionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			return service.ActionRequest{}, errors.New("invalid request body")
		}
	}
	version, err := ifMatch(r)
	if err != nil {
		return service.ActionRequest{}, errors.New("invalid If-Match header")
	}
	if version == 0 {
		version = req.Version
	}
	return service.ActionRequest{
		ID:      r.PathValue("id"),
		Action:  lifecycle.Action(r.PathValue("action")),
		Reason:  req.Reason,
		Version: version,
	}, nil
}

// LostAction handles POST /api/lost/{id}/actions/{action}.
func (h *ItemsHandler) LostAction(w http.ResponseWriter, r *http.Request) {
	req, err := readAction(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor, _ := GetActor(r.Context())
	it, plan, err := h.Service.ApplyLost(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, actionVerb(req.Action)+" item", err)
		return
	}
	setETag(w, it.Version)
	jsonResponse(w, http.StatusOK, actionResponse{Message: plan.Message, Item: viewLost(*it, actor)})
}

// FoundAction handles POST /api/found/{id}/actions/{action}.
func (h *ItemsHandler) FoundAction(w http.ResponseWriter, r *http.Request) {
	req, err := readAction(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor, _ := GetActor(r.Context())
	it, plan, err := h.Service.ApplyFound(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, actionVerb(req.Action)+" item", err)
		return
	}
	setETag(w, it.Version)
	jsonResponse(w, http.StatusOK, actionResponse{Message: plan.Message, Item: viewFound(*it, actor)})
}

// actionVerb turns an action name into words for error messages.
func actionVerb(a lifecycle.Action) string {
	return strings.ReplaceAll(string(a), "_", " ")
}

// DeleteLost handles DELETE /api/lost/{id}.
func (h *ItemsHandler) DeleteLost(w http.ResponseWriter, r *http.Request) {
	actor, _ := GetActor(r.Context())
	if err := h.Service.DeleteLost(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, r, "delete lost item", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Item deleted successfully!"})
}

// DeleteFound handles DELETE /api/found/{id}.
func (h *ItemsHandler) DeleteFound(w http.ResponseWriter, r *http.Request) {
	actor, _ := GetActor(r.Context())
	if err := h.Service.DeleteFound(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, r, "delete found item", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Item deleted successfully!"})
}

// Image serves GET /api/lost/{id}/image and GET /api/found/{id}/image.
func (h *ItemsHandler) Image(kind model.ItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, rc, err := h.Service.Image(r.Context(), kind, r.PathValue("id"))
		if err != nil {
			writeError(w, r, "get image", err)
			return
		}
		defer rc.Close()
		serveImage(w, info, rc)
	}
}

func serveImage(w http.ResponseWriter, info blob.Info, rc io.Reader) {
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	io.Copy(w, rc)
}

// MyUploads handles GET /api/me/uploads. Paging applies to the merged list.
func (h *ItemsHandler) MyUploads(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor, _ := GetActor(r.Context())
	uploads, err := h.Service.MyUploads(r.Context(), actor.Email, f.Page, f.PerPage)
	if err != nil {
		writeError(w, r, "list uploads", err)
		return
	}

	type upload struct {
		Kind  model.ItemKind `json:"kind"`
		Lost  *lostView      `json:"lost,omitempty"`
		Found *foundView     `json:"found,omitempty"`
	}
	out := make([]upload, 0, len(uploads.Items))
	for _, u := range uploads.Items {
		item := upload{Kind: u.Kind}
		if u.Lost != nil {
			v := viewLost(*u.Lost, actor)
			item.Lost = &v
		} else {
			v := viewFound(*u.Found, actor)
			item.Found = &v
		}
		out = append(out, item)
	}
	jsonResponse(w, http.StatusOK, page[upload]{
		Items:   out,
		Total:   uploads.Total,
		Page:    uploads.Page,
		PerPage: uploads.PerPage,
	})
}

type securityItemsResponse struct {
	page[foundView]
	Counts map[model.Stage]int `json:"counts"`
}

// SecurityItems handles GET /api/security/items: found items with the
// overlapping status counts shown on the guard dashboard. Guards filter with
// ?status=, which matches on flags rather than the display stage.
func (h *ItemsHandler) SecurityItems(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, total, err := store.ListFoundItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, "list found items", err)
		return
	}
	counts, err := store.CountFoundByStatus(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, "count found items", err)
		return
	}
	actor, _ := GetActor(r.Context())
	jsonResponse(w, http.StatusOK, securityItemsResponse{
		page:   foundPage(items, total, f, actor),
		Counts: counts,
	})
}

// AdminItems handles GET /api/admin/items?kind=lost|found.
func (h *ItemsHandler) AdminItems(w http.ResponseWriter, r *http.Request) {
	kind := model.KindLost
	if v := r.URL.Query().Get("kind"); v != "" {
		var ok bool
		if kind, ok = model.ParseItemKind(v); !ok {
			jsonError(w, http.StatusBadRequest, "kind must be lost or found")
			return
		}
	}
	if kind == model.KindFound {
		h.ListFound(w, r)
		return
	}
	h.ListLost(w, r)
}

// AdminDelete handles DELETE /api/admin/{kind}/{id}.
func (h *ItemsHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := model.ParseItemKind(r.PathValue("kind"))
	if !ok {
		jsonError(w, http.StatusNotFound, "not found")
		return
	}
	actor, _ := GetActor(r.Context())
	if err := h.Service.Delete(r.Context(), actor, kind, r.PathValue("id")); err != nil {
		writeError(w, r, "delete item", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "Item deleted successfully!"})
}
