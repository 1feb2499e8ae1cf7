package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-pipeline/internal/notify"
)

// ErrInvalidOrder is returned when the order payload fails validation.
var ErrInvalidOrder = errors.New("order: invalid order")

// Order is a placed order.
type Order struct {
	ID            string    `json:"id"`
	CustomerEmail string    `json:"customerEmail" validate:"required,email"`
	PlacedAt      time.Time `json:"placedAt"`
}

// Service places orders and notifies the customer.
type Service struct {
	Notifier notify.Notifier
	Logger   zerolog.Logger
	Validate *validator.Validate
	Now      func() time.Time
}

// NewService wires a Service with its collaborators.
func NewService(n notify.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		Notifier: n,
		Logger:   logger,
		Validate: validator.New(validator.WithRequiredStructEnabled()),
		Now:      time.Now,
	}
}

// PlaceOrder assigns an id and sends a single "order placed" notification to the
// customer. Notification failures are logged and do not fail the order.
func (s *Service) PlaceOrder(ctx context.Context, in Order) (Order, error) {
	if s == nil {
		return Order{}, errors.New("order service not configured")
	}
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	if err := s.validator().Struct(in); err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	placed := Order{
		ID:            uuid.NewString(),
		CustomerEmail: in.CustomerEmail,
		PlacedAt:      s.now().UTC(),
	}
	if s.Notifier != nil {
		if err := s.Notifier.Send(ctx, placed.CustomerEmail, PlacedMessage(placed.ID)); err != nil {
			s.Logger.Warn().Err(err).Str("order_id", placed.ID).Msg("order notification failed")
		}
	}
	s.Logger.Info().Str("order_id", placed.ID).Msg("order placed")
	return placed, nil
}

// PlacedMessage is the notification text for a newly placed order.
func PlacedMessage(orderID string) string {
	return fmt.Sprintf("Order placed (%s)", orderID)
}

func (s *Service) validator() *validator.Validate {
	if s.Validate == nil {
		s.Validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return s.Validate
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
