package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/lostfound/internal/imaging"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/search"
	"github.com/erazemk/lostfound/internal/service"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Service *service.LostFound
}

// List handles GET /api/items. It accepts q, category, status, page and
// page_size; a missing status lists lost items only.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := search.Query{
		Text:     values.Get("q"),
		Category: values.Get("category"),
		Page:     1,
		PageSize: search.DefaultPageSize,
	}
	if values.Has("status") {
		q.Status = search.Status(strings.TrimSpace(values.Get("status")))
	}
	if v := values.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid page")
			return
		}
		q.Page = n
	}
	if v := values.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			jsonError(w, http.StatusBadRequest, "invalid page_size")
			return
		}
		q.PageSize = n
	}

	page, err := h.Service.Search(r.Context(), q)
	if err != nil {
		serviceError(w, err, "items")
		return
	}
	jsonResponse(w, http.StatusOK, page)
}

// Create handles POST /api/items. Subscribers are notified before the
// response is written; the delivery report is only logged, so the creator
// never learns who is subscribed.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var draft model.ItemDraft
	if err := decodeJSON(r, &draft); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, _, err := h.Service.ReportItem(r.Context(), claims.Actor(), draft)
	if err != nil {
		serviceError(w, err, "item")
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	item, err := h.Service.GetItem(r.Context(), id)
	if err != nil {
		serviceError(w, err, "item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var draft model.ItemDraft
	if err := decodeJSON(r, &draft); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Service.EditItem(r.Context(), GetClaims(r.Context()).Actor(), id, draft)
	if err != nil {
		serviceError(w, err, "item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Toggle handles POST /api/items/{id}/toggle.
func (h *ItemsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	item, err := h.Service.ToggleStatus(r.Context(), GetClaims(r.Context()).Actor(), id)
	if err != nil {
		serviceError(w, err, "item")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteItem(r.Context(), GetClaims(r.Context()).Actor(), id); err != nil {
		serviceError(w, err, "item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large (max 5MB)")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	if err := h.Service.SetItemImage(r.Context(), GetClaims(r.Context()).Actor(), id, file); err != nil {
		serviceError(w, err, "item")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	data, mime, err := h.Service.ItemImage(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}
	if err != nil {
		serviceError(w, err, "image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
