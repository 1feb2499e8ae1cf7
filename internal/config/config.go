package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	APIBaseURL         string
	CORSAllowedOrigins []string
	RateLimit          string
	// RedisURL enables the shared Redis rate-limit store when set.
	RedisURL string
	Features Features
	Pricing  PricingConfig
	Notify   NotifyConfig
	Obs      ObsConfig
}

// Features groups boolean feature flags read by the composition root and callers.
type Features struct {
	DiscountsEnabled bool
}

// PricingConfig describes which rules are registered and in what order.
type PricingConfig struct {
	// Rules lists rule names in application order, e.g. ["oem", "gst"].
	Rules      []string
	OEMActive  bool
	FlatAmount string
	// RulesFile points at a YAML rule list and overrides Rules when set.
	RulesFile string
}

// NotifyConfig selects the notification channels used for order placement.
type NotifyConfig struct {
	EmailFrom      string
	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration
	// WebhookMaxAttempts bounds delivery attempts on transport errors and 5xx responses.
	WebhookMaxAttempts int
}

// ObsConfig controls logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsEnabled   bool
	MetricsBuckets   string
	TracingEnabled   bool
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		APIBaseURL:         valueOrDefault(k.String("API_BASE_URL"), "https://api.example.com"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RateLimit:          valueOrDefault(k.String("RATE_LIMIT"), "100-M"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		Features: Features{
			DiscountsEnabled: parseBoolDefault(k.String("FEATURE_DISCOUNTS_ENABLED"), true),
		},
		Pricing: PricingConfig{
			Rules:      lowerAll(splitAndTrim(valueOrDefault(k.String("PRICING_RULES"), "newyear,loyalty"))),
			OEMActive:  parseBoolDefault(k.String("PRICING_OEM_ACTIVE"), true),
			FlatAmount: valueOrDefault(k.String("PRICING_FLAT_AMOUNT"), "0"),
			RulesFile:  strings.TrimSpace(k.String("PRICING_RULES_FILE")),
		},
		Notify: NotifyConfig{
			EmailFrom:          valueOrDefault(k.String("NOTIFY_EMAIL_FROM"), "orders@example.com"),
			WebhookURL:         strings.TrimSpace(k.String("NOTIFY_WEBHOOK_URL")),
			WebhookSecret:      k.String("NOTIFY_WEBHOOK_SECRET"),
			WebhookTimeout:     durationMillisDefault(k.Int("NOTIFY_WEBHOOK_TIMEOUT_MS"), 5000),
			WebhookMaxAttempts: intDefault(k.Int("NOTIFY_WEBHOOK_MAX_ATTEMPTS"), 3),
		},
		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "pricing"),
			MetricsEnabled:   parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			TracingEnabled:   parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    k.Float64("OBS_TRACING_SAMPLING_RATIO"),
		},
	}

	if cfg.Obs.SamplingRatio <= 0 {
		cfg.Obs.SamplingRatio = 1
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, errors.New("API_BASE_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func lowerAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func intDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func durationMillisDefault(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
