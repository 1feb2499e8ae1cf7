package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/pricing-pipeline/internal/obs"
	"github.com/noah-isme/pricing-pipeline/internal/pricing"
)

const instrumentationName = "github.com/noah-isme/pricing-pipeline/internal/checkout"

// Quote is the outcome of a pricing request.
type Quote struct {
	Base       pricing.Money  `json:"base"`
	Total      pricing.Money  `json:"total"`
	Discounted bool           `json:"discounted"`
	Steps      []pricing.Step `json:"steps"`
}

// ServiceConfig carries the collaborators of Service.
type ServiceConfig struct {
	Pipeline         *pricing.Pipeline
	DiscountsEnabled bool
	APIBaseURL       string
	Logger           zerolog.Logger
	Metrics          *obs.PricingMetrics
	TracerProvider   trace.TracerProvider
	MeterProvider    metric.MeterProvider
}

// Service computes cart totals through the configured pricing pipeline. When discounts
// are disabled every quote returns its base unchanged and no rule runs.
type Service struct {
	pipeline         *pricing.Pipeline
	discountsEnabled bool
	apiBaseURL       string
	logger           zerolog.Logger
	metrics          *obs.PricingMetrics
	tracer           trace.Tracer
	quotes           metric.Int64Counter
}

// NewService validates cfg and builds a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("checkout: pipeline is required")
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	quotes, err := mp.Meter(instrumentationName).Int64Counter(
		"pricing.quotes",
		metric.WithDescription("Pricing computations by outcome."),
	)
	if err != nil {
		return nil, fmt.Errorf("checkout: create quote counter: %w", err)
	}
	return &Service{
		pipeline:         cfg.Pipeline,
		discountsEnabled: cfg.DiscountsEnabled,
		apiBaseURL:       cfg.APIBaseURL,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		tracer:           tp.Tracer(instrumentationName),
		quotes:           quotes,
	}, nil
}

// DiscountsEnabled reports the feature flag captured at construction.
func (s *Service) DiscountsEnabled() bool { return s.discountsEnabled }

// RuleNames lists the pipeline's rules in application order.
func (s *Service) RuleNames() []string { return s.pipeline.RuleNames() }

// Quote prices base in the context of cart, which may be nil.
func (s *Service) Quote(ctx context.Context, base pricing.Money, cart *pricing.Cart) (Quote, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Quote")
	defer span.End()
	start := time.Now()

	s.logger.Debug().Str("api_base_url", s.apiBaseURL).Str("base", base.String()).Msg("pricing quote")

	if err := pricing.ValidateInput(base, cart); err != nil {
		s.observe(ctx, span, "invalid", start, nil, err)
		return Quote{}, err
	}
	if !s.discountsEnabled {
		s.observe(ctx, span, "bypassed", start, nil, nil)
		return Quote{Base: base, Total: base, Steps: []pricing.Step{}}, nil
	}

	breakdown, err := s.pipeline.Explain(base, cart)
	if err != nil {
		result := "rule_failed"
		if errors.Is(err, pricing.ErrInvalidInput) {
			result = "invalid"
		}
		s.observe(ctx, span, result, start, nil, err)
		return Quote{}, err
	}
	applied := make([]string, 0, len(breakdown.Steps))
	for _, step := range breakdown.Steps {
		applied = append(applied, step.Rule)
	}
	s.observe(ctx, span, "priced", start, applied, nil)
	return Quote{
		Base:       breakdown.Base,
		Total:      breakdown.Total,
		Discounted: true,
		Steps:      breakdown.Steps,
	}, nil
}

// CalculateTotal prices the cart subtotal.
func (s *Service) CalculateTotal(ctx context.Context, cart *pricing.Cart) (pricing.Money, error) {
	q, err := s.Quote(ctx, cart.Subtotal(), cart)
	if err != nil {
		return pricing.Zero, err
	}
	return q.Total, nil
}

func (s *Service) observe(ctx context.Context, span trace.Span, result string, start time.Time, rules []string, err error) {
	span.SetAttributes(
		attribute.String("pricing.result", result),
		attribute.Int("pricing.rules", len(rules)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		s.logger.Warn().Err(err).Str("result", result).Msg("pricing quote failed")
	}
	s.quotes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	s.metrics.ObserveQuote(result, obs.DurationMillis(time.Since(start)), rules)
}
