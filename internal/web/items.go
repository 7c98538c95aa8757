package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/lostfound/internal/imaging"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/search"
	"github.com/erazemk/lostfound/internal/service"
)

// listFilters echoes the listing query back into the page.
type listFilters struct {
	Query    string
	Category string
	Status   string
}

// HomePage handles GET /.
func (s *Server) HomePage(w http.ResponseWriter, r *http.Request) {
	items, err := s.Service.RecentLost(r.Context(), service.RecentCount)
	if err != nil {
		slog.Error("failed to list recent items", "error", err)
	}

	s.Templates.Render(w, "home.html", &struct {
		PageData
		Items []model.Item
	}{
		PageData: s.page(w, r, "Campus Lost & Found"),
		Items:    items,
	})
}

// ItemsPage handles GET /items.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r)

	page, err := s.Service.Search(r.Context(), q)
	if err != nil {
		slog.Error("failed to search items", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	filters := listFilters{Query: strings.TrimSpace(q.Text), Category: strings.TrimSpace(q.Category), Status: model.ItemStatusLost}
	if q.Status != nil {
		filters.Status = *q.Status
	}

	s.Templates.Render(w, "items.html", &struct {
		PageData
		Page       *search.Page
		Filters    listFilters
		Categories []model.Choice
		Statuses   []model.Choice
	}{
		PageData:   s.page(w, r, "Browse items"),
		Page:       page,
		Filters:    filters,
		Categories: model.Categories,
		Statuses:   model.Statuses,
	})
}

// parseQuery reads the listing parameters. A missing status parameter is
// kept distinct from an empty one.
func parseQuery(r *http.Request) search.Query {
	values := r.URL.Query()
	q := search.Query{
		Text:     values.Get("q"),
		Category: values.Get("category"),
		PageSize: search.DefaultPageSize,
		Page:     1,
	}
	if values.Has("status") {
		q.Status = search.Status(strings.TrimSpace(values.Get("status")))
	}
	if n, err := strconv.Atoi(values.Get("page")); err == nil {
		q.Page = n
	}
	if n, err := strconv.Atoi(values.Get("page_size")); err == nil && n > 0 && n <= 100 {
		q.PageSize = n
	}
	return q
}

// ItemDetailPage handles GET /items/{id}.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadItem(w, r)
	if !ok {
		return
	}
	s.renderDetail(w, r, http.StatusOK, item, "", nil)
}

func (s *Server) renderDetail(w http.ResponseWriter, r *http.Request, status int, item *model.Item, email string, errs map[string]string) {
	data := &struct {
		PageData
		Item  *model.Item
		Email string
	}{
		PageData: s.page(w, r, item.Title),
		Item:     item,
		Email:    email,
	}
	data.Errors = errs
	s.Templates.RenderStatus(w, status, "item_detail.html", data)
}

// ItemSubscribeSubmit handles POST /items/{id}, the subscribe form on the
// detail page.
func (s *Server) ItemSubscribeSubmit(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadItem(w, r)
	if !ok {
		return
	}

	email := r.FormValue("email")
	sub, created, err := s.Service.Subscribe(r.Context(), email)
	if fields := model.FieldErrors(err); fields != nil {
		s.renderDetail(w, r, http.StatusBadRequest, item, email, fields)
		return
	}
	if err != nil {
		slog.Error("failed to subscribe", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	target := itemPath(item.ID)
	if created {
		redirectWithFlash(w, r, target, FlashSuccess, "You'll be notified at "+sub.Email+" when new items are reported.")
	} else {
		redirectWithFlash(w, r, target, FlashInfo, sub.Email+" is already subscribed to notifications.")
	}
}

type itemFormData struct {
	PageData
	Item       *model.Item
	Draft      model.ItemDraft
	Categories []model.Choice
	Statuses   []model.Choice
}

func (s *Server) renderItemForm(w http.ResponseWriter, r *http.Request, status int, title string, item *model.Item, draft model.ItemDraft, errs map[string]string) {
	data := &itemFormData{
		PageData:   s.page(w, r, title),
		Item:       item,
		Draft:      draft,
		Categories: model.Categories,
		Statuses:   model.Statuses,
	}
	data.Errors = errs
	s.Templates.RenderStatus(w, status, "item_form.html", data)
}

// ReportPage handles GET /report.
func (s *Server) ReportPage(w http.ResponseWriter, r *http.Request) {
	draft := model.ItemDraft{
		Category: model.CategoryOther,
		Status:   model.ItemStatusLost,
		DateLost: time.Now(),
	}
	if user, err := s.currentUser(r); err == nil && user != nil {
		draft.ContactEmail = user.Email
	}
	s.renderItemForm(w, r, http.StatusOK, "Report an item", nil, draft, nil)
}

// ReportSubmit handles POST /report.
func (s *Server) ReportSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	draft, upload, errs := parseItemForm(w, r)
	defer closeUpload(upload)
	if errs != nil {
		s.renderItemForm(w, r, http.StatusBadRequest, "Report an item", nil, draft, errs)
		return
	}

	item, _, err := s.Service.ReportItem(r.Context(), claims.Actor(), draft)
	if fields := model.FieldErrors(err); fields != nil {
		s.renderItemForm(w, r, http.StatusBadRequest, "Report an item", nil, draft, fields)
		return
	}
	if err != nil {
		slog.Error("failed to report item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if upload != nil {
		if err := s.Service.SetItemImage(r.Context(), claims.Actor(), item.ID, upload); err != nil {
			slog.Warn("item image rejected", "item", item.ID, "error", err)
			redirectWithFlash(w, r, itemPath(item.ID), FlashError,
				fmt.Sprintf("%q has been posted, but the image could not be used.", item.Title))
			return
		}
	}

	redirectWithFlash(w, r, itemPath(item.ID), FlashSuccess, fmt.Sprintf("%q has been posted successfully!", item.Title))
}

// EditPage handles GET /items/{id}/edit.
func (s *Server) EditPage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadModifiableItem(w, r, "edit")
	if !ok {
		return
	}
	s.renderItemForm(w, r, http.StatusOK, "Edit "+item.Title, item, model.DraftOf(item), nil)
}

// EditSubmit handles POST /items/{id}/edit.
func (s *Server) EditSubmit(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadModifiableItem(w, r, "edit")
	if !ok {
		return
	}
	claims := GetWebClaims(r.Context())

	draft, upload, errs := parseItemForm(w, r)
	defer closeUpload(upload)
	if errs != nil {
		s.renderItemForm(w, r, http.StatusBadRequest, "Edit "+item.Title, item, draft, errs)
		return
	}

	updated, err := s.Service.EditItem(r.Context(), claims.Actor(), item.ID, draft)
	if !s.handleItemError(w, r, item.ID, err) {
		if fields := model.FieldErrors(err); fields != nil {
			s.renderItemForm(w, r, http.StatusBadRequest, "Edit "+item.Title, item, draft, fields)
		}
		return
	}

	if upload != nil {
		if err := s.Service.SetItemImage(r.Context(), claims.Actor(), item.ID, upload); err != nil {
			slog.Warn("item image rejected", "item", item.ID, "error", err)
			redirectWithFlash(w, r, itemPath(item.ID), FlashError, "Changes saved, but the image could not be used.")
			return
		}
	}

	slog.Info("item updated", "user", claims.Username, "item", updated.ID)
	redirectWithFlash(w, r, itemPath(updated.ID), FlashSuccess, fmt.Sprintf("%q has been updated.", updated.Title))
}

// MarkFoundSubmit handles POST /items/{id}/found.
func (s *Server) MarkFoundSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	claims := GetWebClaims(r.Context())

	item, err := s.Service.ToggleStatus(r.Context(), claims.Actor(), id)
	if !s.handleItemError(w, r, id, err) {
		return
	}

	if item.Status == model.ItemStatusFound {
		redirectWithFlash(w, r, itemPath(id), FlashSuccess, fmt.Sprintf("%q has been marked as found/claimed!", item.Title))
	} else {
		redirectWithFlash(w, r, itemPath(id), FlashInfo, fmt.Sprintf("%q has been marked as still lost.", item.Title))
	}
}

// DeletePage handles GET /items/{id}/delete.
func (s *Server) DeletePage(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadModifiableItem(w, r, "delete")
	if !ok {
		return
	}
	s.Templates.Render(w, "confirm_delete.html", &struct {
		PageData
		Item *model.Item
	}{
		PageData: s.page(w, r, "Delete "+item.Title),
		Item:     item,
	})
}

// DeleteSubmit handles POST /items/{id}/delete.
func (s *Server) DeleteSubmit(w http.ResponseWriter, r *http.Request) {
	item, ok := s.loadModifiableItem(w, r, "delete")
	if !ok {
		return
	}
	claims := GetWebClaims(r.Context())

	err := s.Service.DeleteItem(r.Context(), claims.Actor(), item.ID)
	if !s.handleItemError(w, r, item.ID, err) {
		return
	}
	redirectWithFlash(w, r, "/items", FlashSuccess, fmt.Sprintf("%q has been deleted.", item.Title))
}

// ItemImageGet handles GET /items/{id}/image.
func (s *Server) ItemImageGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	data, mime, err := s.Service.ItemImage(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to get image", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}

// ItemImageSubmit handles POST /items/{id}/image.
func (s *Server) ItemImageSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	claims := GetWebClaims(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1<<20)
	file, _, err := r.FormFile("image")
	if err != nil {
		redirectWithFlash(w, r, itemPath(id), FlashError, "Choose an image to upload.")
		return
	}
	defer file.Close()

	err = s.Service.SetItemImage(r.Context(), claims.Actor(), id, file)
	if fields := model.FieldErrors(err); fields != nil {
		redirectWithFlash(w, r, itemPath(id), FlashError, fields["image"])
		return
	}
	if !s.handleItemError(w, r, id, err) {
		return
	}

	slog.Info("item image uploaded", "user", claims.Username, "item", id)
	redirectWithFlash(w, r, itemPath(id), FlashSuccess, "Image updated.")
}

// parseItemForm reads the item form, including an optional image upload.
// Field errors found while parsing are returned for re-rendering.
func parseItemForm(w http.ResponseWriter, r *http.Request) (model.ItemDraft, multipart.File, map[string]string) {
	var upload multipart.File
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1<<20)
		if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
			return model.ItemDraft{}, nil, map[string]string{"image": "The upload is too large."}
		}
		if f, hdr, err := r.FormFile("image"); err == nil {
			if hdr.Size > 0 {
				upload = f
			} else {
				f.Close()
			}
		}
	}

	draft := model.ItemDraft{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		Category:     r.FormValue("category"),
		Location:     r.FormValue("location"),
		ContactEmail: r.FormValue("contact_email"),
		Status:       r.FormValue("status"),
	}

	if raw := strings.TrimSpace(r.FormValue("date_lost")); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			closeUpload(upload)
			return draft, nil, map[string]string{"date_lost": "Enter a valid date."}
		}
		draft.DateLost = d
	}
	return draft, upload, nil
}

func closeUpload(f io.Closer) {
	if f != nil {
		f.Close()
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func itemPath(id int64) string {
	return "/items/" + strconv.FormatInt(id, 10)
}

// loadItem fetches the item named in the path, redirecting to the listing
// when it does not exist.
func (s *Server) loadItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return nil, false
	}
	item, err := s.Service.GetItem(r.Context(), id)
	if !s.handleItemError(w, r, id, err) {
		return nil, false
	}
	return item, true
}

// loadModifiableItem is loadItem restricted to the reporter and
// administrators.
func (s *Server) loadModifiableItem(w http.ResponseWriter, r *http.Request, action string) (*model.Item, bool) {
	item, ok := s.loadItem(w, r)
	if !ok {
		return nil, false
	}
	if !GetWebClaims(r.Context()).Actor().CanModify(item) {
		redirectWithFlash(w, r, itemPath(item.ID), FlashError, "You do not have permission to "+action+" this item.")
		return nil, false
	}
	return item, true
}

// handleItemError answers not-found and permission errors with a redirect
// and a message. It reports whether err was nil. Validation errors are left
// for the caller.
func (s *Server) handleItemError(w http.ResponseWriter, r *http.Request, id int64, err error) bool {
	switch {
	case err == nil:
		return true
	case model.FieldErrors(err) != nil:
		return false
	case errors.Is(err, model.ErrNotFound):
		redirectWithFlash(w, r, "/items", FlashError, "That item no longer exists.")
	case errors.Is(err, model.ErrForbidden):
		redirectWithFlash(w, r, itemPath(id), FlashError, "You do not have permission to update this item.")
	default:
		slog.Error("item operation failed", "item", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
	return false
}
