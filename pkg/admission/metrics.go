package admission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for admission decisions.
type Metrics struct {
	decisions     *prometheus.CounterVec
	storeErrors   prometheus.Counter
	scalingFactor prometheus.Gauge
	checkDuration prometheus.Histogram
}

// NewMetrics creates admission collectors registered with reg.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh
// registry to avoid duplicate registration across cases.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turnstile_admission_decisions_total",
				Help: "Total number of admission decisions by tier and outcome",
			},
			[]string{"tier", "result", "reason"},
		),

		storeErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "turnstile_admission_store_errors_total",
				Help: "Total number of shared store failures during admission checks",
			},
		),

		scalingFactor: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "turnstile_admission_scaling_factor",
				Help: "Current load-adaptive scaling factor applied to window limits",
			},
		),

		checkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "turnstile_admission_check_duration_seconds",
				Help:    "Duration of admission checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.000001, 4, 12), // 1µs to ~4s
			},
		),
	}
}

// RecordDecision records the outcome of one admission check.
func (m *Metrics) RecordDecision(tier Tier, d Decision) {
	result := "allowed"
	if !d.Allowed {
		result = "denied"
	}
	m.decisions.WithLabelValues(string(tier), result, string(d.Reason)).Inc()
}

// RecordStoreError records a shared store failure.
func (m *Metrics) RecordStoreError() {
	m.storeErrors.Inc()
}

// UpdateScalingFactor updates the current scaling factor gauge.
func (m *Metrics) UpdateScalingFactor(factor float64) {
	m.scalingFactor.Set(factor)
}

// RecordCheckDuration records the duration of one admission check.
func (m *Metrics) RecordCheckDuration(seconds float64) {
	m.checkDuration.Observe(seconds)
}
