package models

import (
	"time"

	"stevedore/pkg/compare"
	"stevedore/pkg/domain"
)

// Severity grades a field discrepancy. Only critical discrepancies block the
// dependent action; warnings and info are recorded for audit.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// FieldConfig declares one field to reconcile: which comparison strategy to
// apply and how severe a mismatch is. Configs are data; the engine never
// hard-codes a field list.
type FieldConfig struct {
	Name     string       `json:"name"`
	Compare  compare.Type `json:"compare"`
	Severity Severity     `json:"severity"`
}

// FieldResult is the outcome of comparing one configured field.
type FieldResult struct {
	Field    string   `json:"field"`
	ValueA   string   `json:"value_a"`
	ValueB   string   `json:"value_b"`
	Matches  bool     `json:"matches"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message,omitempty"`
}

// Resolution is the record of a human forcing the gate open. It annotates the
// original record; the discrepancy breakdown is never deleted.
type Resolution struct {
	ResolvedBy string    `json:"resolved_by"`
	ResolvedAt time.Time `json:"resolved_at"`
	Note       string    `json:"note"`
}

// ReconciliationRecord is one comparison run between two documents for one
// shipment.
type ReconciliationRecord struct {
	ID         domain.ReconciliationID
	ShipmentID domain.ShipmentID
	// PairKey names the document pair being reconciled, e.g. "si_vs_checklist".
	PairKey    string
	DocAID     domain.DocumentID
	DocBID     domain.DocumentID
	Fields     []FieldResult
	Matches    int
	// Discrepancies counts all mismatches; Critical counts only the
	// critical-severity subset that drives the gate.
	Discrepancies int
	Critical      int
	Warnings      int
	CanProceed    bool
	Resolution    *Resolution
	CreatedAt     time.Time
}

// GateOpen reports whether the dependent action may proceed: either the run
// had no critical discrepancies, or a human resolved it.
func (r *ReconciliationRecord) GateOpen() bool {
	return r.CanProceed || r.Resolution != nil
}
