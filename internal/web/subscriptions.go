package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/erazemk/lostfound/internal/model"
)

// SubscribeSubmit handles POST /subscribe and returns to the referring page.
func (s *Server) SubscribeSubmit(w http.ResponseWriter, r *http.Request) {
	back := localReferer(r)

	sub, created, err := s.Service.Subscribe(r.Context(), r.FormValue("email"))
	if model.FieldErrors(err) != nil {
		redirectWithFlash(w, r, back, FlashError, "Please enter a valid email address.")
		return
	}
	if err != nil {
		slog.Error("failed to subscribe", "error", err)
		redirectWithFlash(w, r, back, FlashError, "Subscription failed. Try again later.")
		return
	}

	if created {
		redirectWithFlash(w, r, back, FlashSuccess, "Subscribed! You'll receive alerts at "+sub.Email+".")
	} else {
		redirectWithFlash(w, r, back, FlashInfo, sub.Email+" is already subscribed.")
	}
}

// UnsubscribePage handles GET /unsubscribe/{email}, the link sent in every
// notification.
func (s *Server) UnsubscribePage(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")

	data := &struct {
		PageData
		Email string
	}{
		PageData: s.page(w, r, "Unsubscribe"),
		Email:    email,
	}

	err := s.Service.Unsubscribe(r.Context(), email)
	switch {
	case err == nil:
		data.Flash = &Flash{Level: FlashSuccess, Message: "You have been unsubscribed from notifications."}
	case errors.Is(err, model.ErrNotFound):
		data.Flash = &Flash{Level: FlashError, Message: "Subscription not found."}
	default:
		slog.Error("failed to unsubscribe", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.Templates.Render(w, "unsubscribed.html", data)
}

// localReferer returns the path of the referring page when it is on this
// site, or the home page.
func localReferer(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}
	target := ref.EscapedPath()
	if ref.RawQuery != "" {
		target += "?" + ref.RawQuery
	}
	return safeNext(target)
}
