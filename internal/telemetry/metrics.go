// Package telemetry wires the gateway's operational surface: Prometheus
// metrics and go-sundheit health checks, both served from a listener
// kept separate from the public gateway port (spec.md §1's "delegated
// to a reverse proxy" TLS note extends naturally to keeping ops
// endpoints off the public surface).
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector this gateway registers,
// grounded on dex's cmd/dex/serve.go PrometheusRegistry wiring.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal           *prometheus.CounterVec
	ProviderRequestDuration prometheus.Histogram
	ConfigReloadsTotal      *prometheus.CounterVec
}

// Outcome labels for RequestsTotal.
const (
	OutcomeSuccess       = "success"
	OutcomeProviderError = "provider_error"
	OutcomeBadRequest    = "bad_request"
	OutcomeUnknownTenant = "unknown_tenant"
	OutcomeHostPolicy    = "host_policy"
)

// NewMetrics builds and registers a fresh metrics set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Token-exchange requests handled, by outcome.",
		}, []string{"outcome"}),
		ProviderRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_provider_request_duration_seconds",
			Help:    "Latency of the outbound token-exchange POST to the provider.",
			Buckets: prometheus.DefBuckets,
		}),
		ConfigReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_config_reloads_total",
			Help: "Configuration poll outcomes, by result.",
		}, []string{"result"}),
	}

	registry.MustRegister(m.RequestsTotal, m.ProviderRequestDuration, m.ConfigReloadsTotal)
	return m
}

// ObserveRequest implements the outcome counter the gateway package
// increments after handling every request.
func (m *Metrics) ObserveRequest(outcome string) {
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveProviderRequestDuration records one outbound POST's latency, in
// seconds.
func (m *Metrics) ObserveProviderRequestDuration(seconds float64) {
	m.ProviderRequestDuration.Observe(seconds)
}

// ObserveConfigReload implements loader.Metrics.
func (m *Metrics) ObserveConfigReload(result string) {
	m.ConfigReloadsTotal.WithLabelValues(result).Inc()
}
