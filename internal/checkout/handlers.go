package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/pricing-pipeline/internal/common"
	"github.com/noah-isme/pricing-pipeline/internal/pricing"
)

// Handler exposes quoting endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// NewHandler returns a Handler with a default validator.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New(validator.WithRequiredStructEnabled())}
}

type quoteRequest struct {
	Base     *pricing.Money   `json:"base"`
	Items    []itemRequest    `json:"items" validate:"dive"`
	Customer *customerRequest `json:"customer" validate:"required_with=Items"`
}

type itemRequest struct {
	Name  string        `json:"name" validate:"required"`
	Price pricing.Money `json:"price"`
	Qty   int           `json:"qty" validate:"gte=1"`
}

type customerRequest struct {
	Email string `json:"email" validate:"required,email"`
	Gold  bool   `json:"gold"`
}

// Quote handles POST /quotes. Without an explicit base the cart subtotal is priced.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validator().Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "validation failed", validationDetails(err))
		return
	}
	cart, err := payload.cart()
	if err != nil {
		h.writeError(w, err)
		return
	}
	var base pricing.Money
	switch {
	case payload.Base != nil:
		base = *payload.Base
	case cart != nil:
		base = cart.Subtotal()
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "base or items is required", nil)
		return
	}

	out, err := h.Svc.Quote(r.Context(), base, cart)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

// Rules handles GET /rules.
func (h *Handler) Rules(w http.ResponseWriter, _ *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"discountsEnabled": h.Svc.DiscountsEnabled(),
		"rules":            h.Svc.RuleNames(),
	}})
}

func (p quoteRequest) cart() (*pricing.Cart, error) {
	if p.Customer == nil {
		return nil, nil
	}
	customer, err := pricing.NewCustomer(p.Customer.Email, p.Customer.Gold)
	if err != nil {
		return nil, err
	}
	items := make([]pricing.CartItem, 0, len(p.Items))
	for _, in := range p.Items {
		item, err := pricing.NewCartItem(in.Name, in.Price, in.Qty)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return pricing.NewCart(customer, items...)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, pricing.ErrInvalidInput) {
		common.WriteError(w, common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err))
		return
	}
	common.WriteError(w, common.NewAppError("RULE_FAILED", "pricing rule failed", http.StatusUnprocessableEntity, err))
}

func (h *Handler) validator() *validator.Validate {
	if h.Validate == nil {
		h.Validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return h.Validate
}

func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Namespace()] = fe.Tag()
	}
	return details
}
