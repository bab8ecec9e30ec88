package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the document registry.
type Metrics struct {
	DocumentsCreated prometheus.Counter
	VersionsCreated  prometheus.Counter
	Duplicates       prometheus.Counter
}

// New registers and returns the document registry metrics.
func New() *Metrics {
	return &Metrics{
		DocumentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stevedore_documents_created_total",
			Help: "Total number of business documents created",
		}),
		VersionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stevedore_document_versions_created_total",
			Help: "Total number of document versions registered",
		}),
		Duplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stevedore_document_duplicates_total",
			Help: "Total number of byte-identical deliveries detected as duplicates",
		}),
	}
}

func (m *Metrics) IncDocumentCreated() { m.DocumentsCreated.Inc() }
func (m *Metrics) IncVersionCreated()  { m.VersionsCreated.Inc() }
func (m *Metrics) IncDuplicate()       { m.Duplicates.Inc() }
