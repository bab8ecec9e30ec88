package models

import (
	"encoding/json"
	"time"

	"stevedore/pkg/domain"
)

// Kind classifies outbox events for downstream routing.
type Kind string

const (
	KindDocumentRegistered      Kind = "document_registered"
	KindShipmentUpdated         Kind = "shipment_updated"
	KindWorkflowTransitioned    Kind = "workflow_transitioned"
	KindReconciliationCompleted Kind = "reconciliation_completed"
)

// Event is one outbox row. It is written in the same transaction scope as
// the registry write it describes, then drained to the broker by a worker;
// a crash between the two leaves the row unpublished, never lost.
type Event struct {
	ID         domain.EventID
	Kind       Kind
	ShipmentID domain.ShipmentID
	Payload    json.RawMessage
	CreatedAt  time.Time
	// PublishedAt is set by the drain worker once the broker acknowledged.
	PublishedAt *time.Time
}
