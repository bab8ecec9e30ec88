package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reconciliation engine.
type Metrics struct {
	Runs          *prometheus.CounterVec
	GateBlocked   prometheus.Counter
	Resolutions   prometheus.Counter
	Discrepancies *prometheus.CounterVec
}

// New registers and returns the reconciliation metrics.
func New() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stevedore_reconciliations_total",
			Help: "Total reconciliation runs by pair and gate outcome",
		}, []string{"pair", "gate"}),
		GateBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stevedore_reconciliation_gate_blocked_total",
			Help: "Total reconciliation runs that blocked the dependent action",
		}),
		Resolutions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stevedore_reconciliation_resolutions_total",
			Help: "Total manual reconciliation resolutions",
		}),
		Discrepancies: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stevedore_reconciliation_discrepancies_total",
			Help: "Total field discrepancies by severity",
		}, []string{"severity"}),
	}
}

func (m *Metrics) ObserveRun(pair string, canProceed bool) {
	gate := "open"
	if !canProceed {
		gate = "blocked"
		m.GateBlocked.Inc()
	}
	m.Runs.WithLabelValues(pair, gate).Inc()
}

func (m *Metrics) IncDiscrepancy(severity string) {
	m.Discrepancies.WithLabelValues(severity).Inc()
}

func (m *Metrics) IncResolution() { m.Resolutions.Inc() }
