package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"FEATURE_DISCOUNTS_ENABLED": "",
		"PRICING_RULES":             "",
		"API_BASE_URL":              "",
		"PORT":                      "",
		"NOTIFY_WEBHOOK_TIMEOUT_MS": "",
		"RATE_LIMIT":                "",
	})
	require.NoError(t, err)
	require.True(t, cfg.Features.DiscountsEnabled)
	require.Equal(t, []string{"newyear", "loyalty"}, cfg.Pricing.Rules)
	require.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, float64(1), cfg.Obs.SamplingRatio)
	require.Equal(t, 5*time.Second, cfg.Notify.WebhookTimeout)
	require.Equal(t, "100-M", cfg.RateLimit)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"FEATURE_DISCOUNTS_ENABLED": "false",
		"PRICING_RULES":             " OEM , gst ,",
		"PRICING_OEM_ACTIVE":        "no",
		"API_BASE_URL":              "https://pricing.internal",
		"PORT":                      ":9090",
		"NOTIFY_WEBHOOK_TIMEOUT_MS": "250",
	})
	require.NoError(t, err)
	require.False(t, cfg.Features.DiscountsEnabled)
	require.Equal(t, []string{"oem", "gst"}, cfg.Pricing.Rules)
	require.False(t, cfg.Pricing.OEMActive)
	require.Equal(t, "https://pricing.internal", cfg.APIBaseURL)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 250*time.Millisecond, cfg.Notify.WebhookTimeout)
}
