// Package metrics exposes Prometheus metrics for the reconciliation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds reconciliation metrics.
type Metrics struct {
	Passes       prometheus.Counter
	Transitions  *prometheus.CounterVec
	HolderErrors prometheus.Counter
	PassDuration prometheus.Histogram
}

// New creates and registers reconciliation metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Passes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_reconciliation_passes_total",
			Help: "Total number of per-asset reconciliation passes",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mintgate_reconciliation_transitions_total",
			Help: "Authorization transitions appended by reconciliation, by status",
		}, []string{"status"}),
		HolderErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_reconciliation_holder_errors_total",
			Help: "Per-holder errors collected during reconciliation passes",
		}),
		PassDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mintgate_reconciliation_pass_duration_seconds",
			Help:    "Duration of one per-asset reconciliation pass",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObservePass records one completed pass.
func (m *Metrics) ObservePass(seconds float64, holderErrors int) {
	if m == nil {
		return
	}
	m.Passes.Inc()
	m.PassDuration.Observe(seconds)
	m.HolderErrors.Add(float64(holderErrors))
}

// IncTransition records one appended transition row.
func (m *Metrics) IncTransition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}
