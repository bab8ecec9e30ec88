package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow state registry.
type Metrics struct {
	Accepted  *prometheus.CounterVec
	Rejected  *prometheus.CounterVec
	Overrides prometheus.Counter
}

// New registers and returns the workflow metrics.
func New() *Metrics {
	return &Metrics{
		Accepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stevedore_workflow_transitions_accepted_total",
			Help: "Total accepted workflow state transitions by target state",
		}, []string{"to_state"}),
		Rejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "stevedore_workflow_transitions_rejected_total",
			Help: "Total rejected workflow transition attempts by reason",
		}, []string{"reason"}),
		Overrides: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stevedore_workflow_manual_overrides_total",
			Help: "Total manual workflow state overrides",
		}),
	}
}

func (m *Metrics) IncAccepted(toState string) { m.Accepted.WithLabelValues(toState).Inc() }
func (m *Metrics) IncRejected(reason string)  { m.Rejected.WithLabelValues(reason).Inc() }
func (m *Metrics) IncOverride()               { m.Overrides.Inc() }
