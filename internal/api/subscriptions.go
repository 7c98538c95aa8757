package api

import (
	"net/http"

	"github.com/erazemk/lostfound/internal/service"
)

// SubscriptionsHandler handles new-item notification opt-in and opt-out.
type SubscriptionsHandler struct {
	Service *service.LostFound
}

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe handles POST /api/subscriptions. It answers 201 for a new
// subscription and 200 when the email was already known.
func (h *SubscriptionsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, created, err := h.Service.Subscribe(r.Context(), req.Email)
	if err != nil {
		serviceError(w, err, "subscription")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	jsonResponse(w, status, sub)
}

// Unsubscribe handles DELETE /api/subscriptions/{email}.
func (h *SubscriptionsHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Unsubscribe(r.Context(), r.PathValue("email")); err != nil {
		serviceError(w, err, "subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
