// Package metrics owns the Prometheus registry and the counters the
// service reports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for transitions.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Metrics holds the service's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Transitions counts workflow transitions by name and outcome.
	Transitions *prometheus.CounterVec
	// StepFailures counts best-effort steps that failed.
	StepFailures *prometheus.CounterVec
	// RequestDuration observes HTTP request latency.
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them, along with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "casse",
				Name:      "approval_transitions_total",
				Help:      "Approval workflow transitions by name and outcome",
			},
			[]string{"transition", "outcome"},
		),
		StepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "casse",
				Name:      "approval_step_failures_total",
				Help:      "Best-effort workflow steps that failed",
			},
			[]string{"step"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "casse",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
	}
}

// Transition records one workflow transition.
func (m *Metrics) Transition(transition, outcome string) {
	m.Transitions.WithLabelValues(transition, outcome).Inc()
}

// StepFailed records a failed best-effort step.
func (m *Metrics) StepFailed(step string) {
	m.StepFailures.WithLabelValues(step).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
