// Package metrics exposes Prometheus metrics for the policy kernel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds policy kernel metrics.
type Metrics struct {
	Evaluations      prometheus.Counter
	TemplatesMatched prometheus.Counter
	TemplatesSkipped prometheus.Counter
	InstancesCreated prometheus.Counter
}

// New creates and registers policy metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Evaluations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_policy_evaluations_total",
			Help: "Total number of policy kernel evaluations",
		}),
		TemplatesMatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_policy_templates_matched_total",
			Help: "Total number of template matches across evaluations",
		}),
		TemplatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_policy_templates_skipped_total",
			Help: "Templates skipped due to malformed applicability expressions",
		}),
		InstancesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_policy_instances_created_total",
			Help: "Requirement instances created by the policy kernel",
		}),
	}
}

// IncEvaluation records one kernel evaluation with its match/skip counts.
func (m *Metrics) IncEvaluation(matched, skipped int) {
	if m == nil {
		return
	}
	m.Evaluations.Inc()
	m.TemplatesMatched.Add(float64(matched))
	m.TemplatesSkipped.Add(float64(skipped))
}

// IncInstancesCreated records instances persisted by one evaluation.
func (m *Metrics) IncInstancesCreated(n int) {
	if m == nil {
		return
	}
	m.InstancesCreated.Add(float64(n))
}
