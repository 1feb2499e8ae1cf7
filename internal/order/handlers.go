package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noah-isme/pricing-pipeline/internal/common"
)

// Handler exposes order placement over HTTP.
type Handler struct {
	Svc *Service
}

type placeRequest struct {
	CustomerEmail string `json:"customerEmail"`
}

// Place handles POST /orders.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	var payload placeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	out, err := h.Svc.PlaceOrder(r.Context(), Order{CustomerEmail: payload.CustomerEmail})
	if err != nil {
		if errors.Is(err, ErrInvalidOrder) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "customerEmail must be a valid email", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": out})
}
