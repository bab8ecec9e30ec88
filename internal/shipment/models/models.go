package models

import (
	"strings"
	"time"

	"stevedore/pkg/domain"
)

// Shipment is the converged entity: the single record every upstream signal
// for one booking attaches to.
//
// Invariants:
//   - Exactly one Shipment per normalized booking number
//   - Fields follow first-write-wins unless the triggering input is an
//     amendment
//   - Containers is an append-only set; it never shrinks
type Shipment struct {
	ID            domain.ShipmentID
	BookingNumber string // normalized: trimmed, uppercased, whitespace stripped
	BLNumber      string

	ShipperID     domain.PartyID
	ConsigneeID   domain.PartyID
	NotifyPartyID domain.PartyID
	CarrierID     domain.PartyID
	CarrierName   string

	OriginCode      string
	OriginName      string
	DestinationCode string
	DestinationName string

	VesselName   string
	VoyageNumber string

	// Dates are carried as the extractor supplied them (trimmed); the
	// reconciliation engine compares them as typed dates.
	ETD         string
	ATD         string
	ETA         string
	ATA         string
	CargoCutoff string
	DocCutoff   string

	Containers []string

	AmendmentCount int
	CurrentState   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegisterResult reports one shipment registration outcome.
type RegisterResult struct {
	ShipmentID    domain.ShipmentID
	IsNewShipment bool
	IsAmendment   bool
	FieldsUpdated []string
}

// NormalizeBookingNumber canonicalizes a booking number: trim, uppercase,
// strip interior whitespace. "ABC123" and " abc 123 " converge.
func NormalizeBookingNumber(raw string) string {
	return strings.Join(strings.Fields(strings.ToUpper(raw)), "")
}

// HasContainer reports whether the container number is already in the set.
func (s *Shipment) HasContainer(n string) bool {
	for _, c := range s.Containers {
		if c == n {
			return true
		}
	}
	return false
}
