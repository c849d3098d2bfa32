// Package metrics exposes Prometheus metrics for the requirement lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds requirement and snapshot metrics.
type Metrics struct {
	SnapshotsCreated  prometheus.Counter
	SnapshotRows      prometheus.Counter
	GateChecks        *prometheus.CounterVec
	VerificationMoves *prometheus.CounterVec
}

// New creates and registers requirement metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		SnapshotsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_issuance_snapshots_total",
			Help: "Total number of issuance snapshots created",
		}),
		SnapshotRows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mintgate_issuance_snapshot_rows_total",
			Help: "Total number of requirement rows frozen into snapshots",
		}),
		GateChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mintgate_issuance_gate_checks_total",
			Help: "Issuance gate validations by outcome",
		}, []string{"outcome"}),
		VerificationMoves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mintgate_requirement_verifications_total",
			Help: "Requirement verification actions by resulting status",
		}, []string{"status"}),
	}
}

// IncGateCheck records one gate validation outcome ("valid" or "blocked").
func (m *Metrics) IncGateCheck(outcome string) {
	if m == nil {
		return
	}
	m.GateChecks.WithLabelValues(outcome).Inc()
}

// IncVerification records one verification action.
func (m *Metrics) IncVerification(status string) {
	if m == nil {
		return
	}
	m.VerificationMoves.WithLabelValues(status).Inc()
}

// IncSnapshot records one snapshot batch of n rows.
func (m *Metrics) IncSnapshot(rows int) {
	if m == nil {
		return
	}
	m.SnapshotsCreated.Inc()
	m.SnapshotRows.Add(float64(rows))
}
