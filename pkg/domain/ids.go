package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Typed entity identifiers. Wrapping uuid.UUID per entity keeps registries
// from accidentally crossing id spaces (a PartyID can never be handed to a
// shipment lookup without an explicit conversion).
type (
	EmailID           uuid.UUID
	AttachmentID      uuid.UUID
	DocumentID        uuid.UUID
	DocumentVersionID uuid.UUID
	PartyID           uuid.UUID
	ShipmentID        uuid.UUID
	TransitionID      uuid.UUID
	ReconciliationID  uuid.UUID
	EventID           uuid.UUID
)

func (id EmailID) String() string           { return uuid.UUID(id).String() }
func (id AttachmentID) String() string      { return uuid.UUID(id).String() }
func (id DocumentID) String() string        { return uuid.UUID(id).String() }
func (id DocumentVersionID) String() string { return uuid.UUID(id).String() }
func (id PartyID) String() string           { return uuid.UUID(id).String() }
func (id ShipmentID) String() string        { return uuid.UUID(id).String() }
func (id TransitionID) String() string      { return uuid.UUID(id).String() }
func (id ReconciliationID) String() string  { return uuid.UUID(id).String() }
func (id EventID) String() string           { return uuid.UUID(id).String() }

func (id EmailID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id AttachmentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id DocumentVersionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PartyID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id ShipmentID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id TransitionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id ReconciliationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }

// NewEmailID and friends mint fresh identifiers. Services call these; stores
// never generate ids themselves.
func NewEmailID() EmailID                     { return EmailID(uuid.New()) }
func NewAttachmentID() AttachmentID           { return AttachmentID(uuid.New()) }
func NewDocumentID() DocumentID               { return DocumentID(uuid.New()) }
func NewDocumentVersionID() DocumentVersionID { return DocumentVersionID(uuid.New()) }
func NewPartyID() PartyID                     { return PartyID(uuid.New()) }
func NewShipmentID() ShipmentID               { return ShipmentID(uuid.New()) }
func NewTransitionID() TransitionID           { return TransitionID(uuid.New()) }
func NewReconciliationID() ReconciliationID   { return ReconciliationID(uuid.New()) }
func NewEventID() EventID                     { return EventID(uuid.New()) }

// ParseShipmentID parses a shipment id from its string form (URL path segments).
func ParseShipmentID(s string) (ShipmentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ShipmentID{}, fmt.Errorf("invalid shipment id %q: %w", s, err)
	}
	return ShipmentID(u), nil
}

// ParseReconciliationID parses a reconciliation record id from its string form.
func ParseReconciliationID(s string) (ReconciliationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ReconciliationID{}, fmt.Errorf("invalid reconciliation id %q: %w", s, err)
	}
	return ReconciliationID(u), nil
}
