package handlers

import (
	"net/http"
	"time"

	"github.com/freshkeep/hub/internal/api/response"
	"github.com/freshkeep/hub/internal/expiry"
)

// ExpiryRequest is the body of POST /v1/ingredients/expiry. RegisteredAt defaults to now.
type ExpiryRequest struct {
	Category     string     `json:"category"      validate:"max=50,no_null_bytes"`
	RegisteredAt *time.Time `json:"registered_at"`
}

// ExpiryHandler estimates ingredient expiry from its category.
type ExpiryHandler struct {
	now func() time.Time
}

// NewExpiryHandler creates an expiry handler. now defaults to time.Now.
func NewExpiryHandler(now func() time.Time) *ExpiryHandler {
	if now == nil {
		now = time.Now
	}

	return &ExpiryHandler{now: now}
}

// Estimate handles POST /v1/ingredients/expiry.
func (h *ExpiryHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req ExpiryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	now := h.now()

	registeredAt := now
	if req.RegisteredAt != nil {
		registeredAt = *req.RegisteredAt
	}

	response.RespondJSON(w, http.StatusOK, expiry.Evaluate(req.Category, registeredAt, now))
}
