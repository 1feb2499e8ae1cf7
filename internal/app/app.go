package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-pipeline/internal/checkout"
	"github.com/noah-isme/pricing-pipeline/internal/common"
	"github.com/noah-isme/pricing-pipeline/internal/config"
	"github.com/noah-isme/pricing-pipeline/internal/health"
	"github.com/noah-isme/pricing-pipeline/internal/notify"
	"github.com/noah-isme/pricing-pipeline/internal/obs"
	"github.com/noah-isme/pricing-pipeline/internal/order"
	"github.com/noah-isme/pricing-pipeline/internal/pricing"
	"github.com/noah-isme/pricing-pipeline/internal/ratelimit"
	"github.com/noah-isme/pricing-pipeline/internal/resilience"
	"github.com/noah-isme/pricing-pipeline/internal/security"
)

// Options carries process-level collaborators that differ between the server and tests.
type Options struct {
	// Registry receives metrics; the default Prometheus registry is used when nil.
	Registry *prometheus.Registry
	// Mailer delivers order emails; email notifications are skipped when nil.
	Mailer         common.EmailSender
	TracingEnabled bool
}

// App is the composed object graph of the service.
type App struct {
	Config          *config.Config
	Logger          zerolog.Logger
	Pipeline        *pricing.Pipeline
	Checkout        *checkout.Service
	CheckoutHandler *checkout.Handler
	Orders          *order.Service
	OrderHandler    *order.Handler
	Notifier        notify.Notifier
	Limiter         ratelimit.Limiter
	HTTPMetrics     *obs.HTTPMetrics
	// Redis is nil unless REDIS_URL is configured.
	Redis *redis.Client

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	tracing    bool
}

// New builds every component once from cfg. There is no global rule registry.
func New(cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if opts.Registry != nil {
		registerer, gatherer = opts.Registry, opts.Registry
	}

	registry, err := BuildRegistry(cfg.Pricing)
	if err != nil {
		return nil, err
	}
	pipeline := registry.Build()

	var pricingMetrics *obs.PricingMetrics
	var httpMetrics *obs.HTTPMetrics
	if cfg.Obs.MetricsEnabled {
		pricingMetrics = obs.NewPricingMetrics(cfg.Obs.MetricsNamespace, registerer)
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), registerer)
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceConfig{
		Pipeline:         pipeline,
		DiscountsEnabled: cfg.Features.DiscountsEnabled,
		APIBaseURL:       cfg.APIBaseURL,
		Logger:           logger.With().Str("component", "checkout").Logger(),
		Metrics:          pricingMetrics,
	})
	if err != nil {
		return nil, err
	}

	var breakerMetrics *resilience.Metrics
	if cfg.Obs.MetricsEnabled {
		breakerMetrics = resilience.NewMetrics(cfg.Obs.MetricsNamespace, registerer)
	}
	notifier, err := buildNotifier(cfg.Notify, logger, opts.Mailer, breakerMetrics)
	if err != nil {
		return nil, err
	}
	orderSvc := order.NewService(notifier, logger.With().Str("component", "order").Logger())

	var redisClient *redis.Client
	var limiter *ratelimit.StoreLimiter
	if cfg.RedisURL != "" {
		redisClient, err = newRedisClient(cfg.RedisURL, cfg.Obs.MetricsEnabled, logger)
		if err != nil {
			return nil, err
		}
		limiter, err = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit)
	} else {
		limiter, err = ratelimit.NewMemoryLimiter(cfg.RateLimit)
	}
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, fmt.Errorf("RATE_LIMIT: %w", err)
	}

	logger.Info().
		Strs("rules", pipeline.RuleNames()).
		Bool("discounts_enabled", cfg.Features.DiscountsEnabled).
		Msg("pricing pipeline composed")

	return &App{
		Config:          cfg,
		Logger:          logger,
		Pipeline:        pipeline,
		Checkout:        checkoutSvc,
		CheckoutHandler: checkout.NewHandler(checkoutSvc),
		Orders:          orderSvc,
		OrderHandler:    &order.Handler{Svc: orderSvc},
		Notifier:        notifier,
		Limiter:         limiter,
		HTTPMetrics:     httpMetrics,
		Redis:           redisClient,
		registerer:      registerer,
		gatherer:        gatherer,
		tracing:         opts.TracingEnabled,
	}, nil
}

func newRedisClient(url string, metricsEnabled bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	return client, nil
}

// Close releases external connections.
func (a *App) Close() error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Close()
}

func buildNotifier(cfg config.NotifyConfig, logger zerolog.Logger, mailer common.EmailSender, metrics *resilience.Metrics) (notify.Notifier, error) {
	channels := notify.Multi{notify.LogNotifier{Logger: logger.With().Str("component", "notify").Logger()}}
	if mailer != nil {
		channels = append(channels, notify.EmailNotifier{Mail: mailer, From: cfg.EmailFrom})
	}
	if cfg.WebhookURL != "" {
		if err := notify.ValidateURL(cfg.WebhookURL); err != nil {
			return nil, fmt.Errorf("NOTIFY_WEBHOOK_URL: %w", err)
		}
		breaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
			WithTarget("notify.webhook").
			WithLogger(logger).
			WithMetrics(metrics)
		transport := &resilience.Transport{
			Breaker:     breaker,
			MaxAttempts: cfg.WebhookMaxAttempts,
			BaseBackoff: 200 * time.Millisecond,
			Jitter:      0.2,
		}
		channels = append(channels, notify.WebhookNotifier{
			URL:    cfg.WebhookURL,
			Secret: cfg.WebhookSecret,
			Client: notify.HTTPClient(cfg.WebhookTimeout, transport),
		})
	}
	if len(channels) == 1 {
		return channels[0], nil
	}
	return channels, nil
}

// Routes assembles the HTTP router.
func (a *App) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if a.tracing {
		r.Use(obs.TracingMiddleware)
	}
	if a.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: a.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: a.Logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: a.Config.AppEnv == "production"}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(a.Config),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	if a.Config.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{Registry: a.registerer}))
	}

	checks := map[string]health.Check{"pipeline": a.pipelineReady}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	healthHandler := health.Handler{Checks: checks}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	limit := ratelimit.Handler{
		Limiter: a.Limiter,
		OnError: func(err error) { a.Logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limit.Middleware)
		v.Use(security.BodyLimit{Max: security.DefaultMaxBody}.Middleware)
		v.Post("/quotes", a.CheckoutHandler.Quote)
		v.Get("/rules", a.CheckoutHandler.Rules)
		v.Post("/orders", a.OrderHandler.Place)
	})
	return r
}

func (a *App) pipelineReady(context.Context) error {
	if a.Checkout.DiscountsEnabled() && a.Pipeline.Len() == 0 {
		return errors.New("no pricing rules registered")
	}
	return nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
