// Package metrics exposes Prometheus metrics for the one-time handoff.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds handoff metrics.
type Metrics struct {
	RequestsCreated prometheus.Counter
	Completions     *prometheus.CounterVec
	Expirations     prometheus.Counter
}

// New creates and registers handoff metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_handoff_requests_created_total",
			Help: "One-time authorization requests issued",
		}),
		Completions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mintgate_handoff_completions_total",
			Help: "Handoff completion attempts, by outcome",
		}, []string{"outcome"}),
		Expirations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_handoff_requests_expired_total",
			Help: "Authorization requests expired unused",
		}),
	}
}

// IncRequestCreated records one issued request.
func (m *Metrics) IncRequestCreated() {
	if m == nil {
		return
	}
	m.RequestsCreated.Inc()
}

// IncCompletion records one completion attempt outcome.
func (m *Metrics) IncCompletion(outcome string) {
	if m == nil {
		return
	}
	m.Completions.WithLabelValues(outcome).Inc()
}

// AddExpirations records requests expired by one maintenance sweep.
func (m *Metrics) AddExpirations(n int) {
	if m == nil {
		return
	}
	m.Expirations.Add(float64(n))
}
