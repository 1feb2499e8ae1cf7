package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics counts pricing computations and rule applications.
type PricingMetrics struct {
	// QuotesTotal counts quote outcomes: "priced", "bypassed", "invalid" or "rule_failed".
	QuotesTotal *prometheus.CounterVec
	// RuleSteps counts rule applications by rule name.
	RuleSteps *prometheus.CounterVec
	// QuoteDuration records pipeline latency in milliseconds.
	QuoteDuration prometheus.Histogram
}

// NewPricingMetrics registers pricing collectors on reg, or on the default registry when nil.
func NewPricingMetrics(namespace string, reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PricingMetrics{
		QuotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Count of pricing computations by outcome.",
		}, []string{"result"}),
		RuleSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_rule_steps_total",
			Help:      "Count of pricing rule applications by rule.",
		}, []string{"rule"}),
		QuoteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_quote_duration_ms",
			Help:      "Pricing pipeline latency in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
	m.QuotesTotal = register(reg, m.QuotesTotal)
	m.RuleSteps = register(reg, m.RuleSteps)
	m.QuoteDuration = register(reg, m.QuoteDuration)
	return m
}

// ObserveQuote records a single computation. A nil receiver is a no-op.
func (m *PricingMetrics) ObserveQuote(result string, durationMs float64, rules []string) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues(result).Inc()
	m.QuoteDuration.Observe(durationMs)
	for _, rule := range rules {
		m.RuleSteps.WithLabelValues(rule).Inc()
	}
}
