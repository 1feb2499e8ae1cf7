package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-pipeline/internal/common"
	"github.com/noah-isme/pricing-pipeline/internal/config"
	"github.com/noah-isme/pricing-pipeline/internal/pricing"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:     "test",
		APIBaseURL: "https://api.example.com",
		RateLimit:  "1000-M",
		Features:   config.Features{DiscountsEnabled: true},
		Pricing: config.PricingConfig{
			Rules:      []string{"oem", "gst"},
			OEMActive:  true,
			FlatAmount: "0",
		},
		Notify: config.NotifyConfig{EmailFrom: "orders@example.com"},
		Obs:    config.ObsConfig{MetricsNamespace: "test", MetricsEnabled: true},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, mailer common.EmailSender) *App {
	t.Helper()
	a, err := New(cfg, zerolog.New(io.Discard), Options{Registry: prometheus.NewRegistry(), Mailer: mailer})
	require.NoError(t, err)
	return a
}

func TestBuildRegistryPreservesConfiguredOrder(t *testing.T) {
	reg, err := BuildRegistry(config.PricingConfig{Rules: []string{"gst", "OEM", " flat "}, OEMActive: true, FlatAmount: "10"})
	require.NoError(t, err)
	require.Equal(t, []string{"gst", "oem-campaign", "flat"}, reg.Build().RuleNames())

	total, err := reg.Build().Compute(pricing.NewMoney(1000), nil)
	require.NoError(t, err)
	require.True(t, pricing.MustParseMoney("1052").Equal(total), "got %s", total)
}

func TestBuildRegistryBillingScenario(t *testing.T) {
	for _, order := range [][]string{{"oem", "gst"}, {"gst", "oem"}} {
		reg, err := BuildRegistry(config.PricingConfig{Rules: order, OEMActive: true})
		require.NoError(t, err)
		total, err := reg.Build().Compute(pricing.NewMoney(1000), nil)
		require.NoError(t, err)
		require.True(t, pricing.NewMoney(1062).Equal(total), "order %v got %s", order, total)
	}
}

func TestBuildRegistryInactiveCampaign(t *testing.T) {
	reg, err := BuildRegistry(config.PricingConfig{Rules: []string{"oem", "gst"}, OEMActive: false})
	require.NoError(t, err)
	total, err := reg.Build().Compute(pricing.NewMoney(1000), nil)
	require.NoError(t, err)
	require.True(t, pricing.NewMoney(1180).Equal(total))
}

func TestBuildRegistryErrors(t *testing.T) {
	_, err := BuildRegistry(config.PricingConfig{Rules: []string{"newyear", "bogus"}})
	require.ErrorContains(t, err, `unknown pricing rule "bogus"`)

	_, err = BuildRegistry(config.PricingConfig{Rules: []string{"flat"}, FlatAmount: "ten"})
	require.ErrorIs(t, err, pricing.ErrInvalidInput)

	_, err = BuildRegistry(config.PricingConfig{Rules: []string{"flat"}, FlatAmount: "-1"})
	require.ErrorIs(t, err, pricing.ErrInvalidInput)
}

func TestBuildRegistryEmpty(t *testing.T) {
	reg, err := BuildRegistry(config.PricingConfig{})
	require.NoError(t, err)
	require.Zero(t, reg.Len())
}

func TestNewRejectsBadWebhookURL(t *testing.T) {
	cfg := testConfig()
	cfg.Notify.WebhookURL = "http://hooks.example.com/orders"
	_, err := New(cfg, zerolog.New(io.Discard), Options{Registry: prometheus.NewRegistry()})
	require.Error(t, err)
}

func TestNewRejectsBadRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = "fast"
	_, err := New(cfg, zerolog.New(io.Discard), Options{Registry: prometheus.NewRegistry()})
	require.ErrorContains(t, err, "RATE_LIMIT")
}

func TestRoutesQuote(t *testing.T) {
	a := newTestApp(t, testConfig(), nil)
	rr := httptest.NewRecorder()
	a.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{"base":"1000"}`)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Data struct {
			Total      pricing.Money `json:"total"`
			Discounted bool          `json:"discounted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, pricing.NewMoney(1062).Equal(resp.Data.Total))
	require.True(t, resp.Data.Discounted)
	require.NotEmpty(t, rr.Header().Get("X-RateLimit-Limit"))
}

func TestRoutesQuoteWithDiscountsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Features.DiscountsEnabled = false
	a := newTestApp(t, cfg, nil)
	rr := httptest.NewRecorder()
	a.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{"base":"1000"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"total":"1000"`)
	require.Contains(t, rr.Body.String(), `"discounted":false`)
}

func TestRoutesRules(t *testing.T) {
	a := newTestApp(t, testConfig(), nil)
	rr := httptest.NewRecorder()
	a.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"rules":["oem-campaign","gst"]`)
}

func TestRoutesPlaceOrderSendsOneEmail(t *testing.T) {
	mail := &common.InMemoryEmail{}
	a := newTestApp(t, testConfig(), mail)
	rr := httptest.NewRecorder()
	a.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"customerEmail":"buyer@example.com"}`)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	sent := mail.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "buyer@example.com", sent[0].To)
}

func TestRoutesHealthAndMetrics(t *testing.T) {
	a := newTestApp(t, testConfig(), nil)
	router := a.Routes()

	for _, path := range []string{"/health/live", "/health/ready"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
	}

	quote := httptest.NewRecorder()
	router.ServeHTTP(quote, httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(`{"base":"10"}`)))
	require.Equal(t, http.StatusOK, quote.Code)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `test_pricing_quotes_total{result="priced"} 1`)
}

func TestReadyFailsWithoutRules(t *testing.T) {
	cfg := testConfig()
	cfg.Pricing.Rules = nil
	a := newTestApp(t, cfg, nil)
	rr := httptest.NewRecorder()
	a.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	cfg.Features.DiscountsEnabled = false
	a = newTestApp(t, cfg, nil)
	rr = httptest.NewRecorder()
	a.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRoutesPlaceOrderDeliversWebhook(t *testing.T) {
	received := make(chan string, 2)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("X-Signature")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	cfg := testConfig()
	cfg.Notify.WebhookURL = hook.URL
	cfg.Notify.WebhookSecret = "s3cret"
	cfg.Notify.WebhookMaxAttempts = 2
	a := newTestApp(t, cfg, nil)

	rr := httptest.NewRecorder()
	a.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"customerEmail":"buyer@example.com"}`)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, received, 1)
	require.NotEmpty(t, <-received)
}

func TestBuildRegistryFromRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := `rules:
  - name: percent_off
    label: spring
    percent: "20"
  - name: oem
    active: false
  - name: flat
    amount: "5"
  - name: surcharge
    label: service
    percent: "10"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	reg, err := BuildRegistry(config.PricingConfig{Rules: []string{"gst"}, OEMActive: true, RulesFile: path})
	require.NoError(t, err)
	pipeline := reg.Build()
	require.Equal(t, []string{"spring", "oem-campaign", "flat", "service"}, pipeline.RuleNames())

	total, err := pipeline.Compute(pricing.NewMoney(100), nil)
	require.NoError(t, err)
	require.True(t, pricing.MustParseMoney("82.5").Equal(total), "got %s", total)
}

func TestBuildRegistryRulesFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := BuildRegistry(config.PricingConfig{RulesFile: filepath.Join(dir, "missing.yaml")})
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rules:\n  - name: percent_off\n    percent: \"-3\"\n"), 0o600))
	_, err = BuildRegistry(config.PricingConfig{RulesFile: bad})
	require.ErrorIs(t, err, pricing.ErrInvalidInput)
}

func TestNewWithRedisRateLimitStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.RateLimit = "1-M"
	a := newTestApp(t, cfg, nil)
	defer func() { require.NoError(t, a.Close()) }()
	router := a.Routes()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"redis":"ok"`)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}
