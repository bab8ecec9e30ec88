package models

import (
	"time"

	"stevedore/pkg/domain"
)

// Transition is one accepted workflow state change. Rows are append-only:
// the history of a shipment is never rewritten, only extended.
type Transition struct {
	ID            domain.TransitionID
	ShipmentID    domain.ShipmentID
	FromState     string
	ToState       string
	DocumentType  domain.DocumentType
	Direction     domain.Direction
	EmailID       domain.EmailID
	DocumentID    domain.DocumentID
	// Reason is set on manual overrides only.
	Reason    string
	CreatedAt time.Time
}

// TransitionResult reports the outcome of a transition attempt.
type TransitionResult struct {
	Accepted     bool
	FromState    string
	ToState      string
	TransitionID domain.TransitionID
	// RejectReason explains a rejection ("no_signal", "not_later", "lost_race").
	RejectReason string
}

// Reject reasons.
const (
	RejectNoSignal = "no_signal"
	RejectNotLater = "not_later"
	RejectLostRace = "lost_race"
)
