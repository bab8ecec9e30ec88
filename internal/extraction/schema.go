// Package extraction defines the closed schema for AI-extracted values
// flowing into the registries.
//
// The extractor itself is an external collaborator. What crosses the boundary
// is this tagged record of known field names to optional values, each with the
// extractor's confidence. Registries consume only this schema, so they can
// exhaustively reason about which fields they understand; unknown keys from
// the extractor are dropped at decode time, never smuggled through as
// untyped maps.
package extraction

import (
	"strings"

	"stevedore/pkg/domain"
)

// SchemaVersion identifies the field-set revision. Bump when fields are
// added so stored payloads remain interpretable.
const SchemaVersion = 1

// Value is one extracted field value with the extractor's confidence in it.
type Value struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// IsSet reports whether the value carries usable text.
func (v *Value) IsSet() bool {
	return v != nil && strings.TrimSpace(v.Text) != ""
}

// Get returns the trimmed text, or "" when unset.
func (v *Value) Get() string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v.Text)
}

// ShipmentFields is the closed set of shipment-level fields the extractor
// may supply. All fields are optional; registries must behave correctly with
// a zero value (extraction unavailable is "no new information").
type ShipmentFields struct {
	BookingNumber      *Value `json:"booking_number,omitempty"`
	BillOfLadingNumber *Value `json:"bill_of_lading_number,omitempty"`

	ShipperName     *Value `json:"shipper_name,omitempty"`
	ConsigneeName   *Value `json:"consignee_name,omitempty"`
	NotifyPartyName *Value `json:"notify_party_name,omitempty"`
	CarrierName     *Value `json:"carrier_name,omitempty"`

	OriginCode      *Value `json:"origin_code,omitempty"`
	OriginName      *Value `json:"origin_name,omitempty"`
	DestinationCode *Value `json:"destination_code,omitempty"`
	DestinationName *Value `json:"destination_name,omitempty"`

	VesselName   *Value `json:"vessel_name,omitempty"`
	VoyageNumber *Value `json:"voyage_number,omitempty"`

	ETD         *Value `json:"etd,omitempty"`
	ATD         *Value `json:"atd,omitempty"`
	ETA         *Value `json:"eta,omitempty"`
	ATA         *Value `json:"ata,omitempty"`
	CargoCutoff *Value `json:"cargo_cutoff,omitempty"`
	DocCutoff   *Value `json:"doc_cutoff,omitempty"`

	ContainerNumbers []string `json:"container_numbers,omitempty"`
}

// FieldValue looks up a scalar field by its schema name. ok is false for
// names outside the schema, so callers cannot be handed values the schema
// does not define.
func (f ShipmentFields) FieldValue(name string) (string, bool) {
	byName := map[string]*Value{
		"booking_number":        f.BookingNumber,
		"bill_of_lading_number": f.BillOfLadingNumber,
		"shipper_name":          f.ShipperName,
		"consignee_name":        f.ConsigneeName,
		"notify_party_name":     f.NotifyPartyName,
		"carrier_name":          f.CarrierName,
		"origin_code":           f.OriginCode,
		"origin_name":           f.OriginName,
		"destination_code":      f.DestinationCode,
		"destination_name":      f.DestinationName,
		"vessel_name":           f.VesselName,
		"voyage_number":         f.VoyageNumber,
		"etd":                   f.ETD,
		"atd":                   f.ATD,
		"eta":                   f.ETA,
		"ata":                   f.ATA,
		"cargo_cutoff":          f.CargoCutoff,
		"doc_cutoff":            f.DocCutoff,
	}
	v, ok := byName[name]
	if !ok {
		return "", false
	}
	return v.Get(), true
}

// IsEmpty reports whether no field carries a value.
func (f ShipmentFields) IsEmpty() bool {
	for _, v := range []*Value{
		f.BookingNumber, f.BillOfLadingNumber,
		f.ShipperName, f.ConsigneeName, f.NotifyPartyName, f.CarrierName,
		f.OriginCode, f.OriginName, f.DestinationCode, f.DestinationName,
		f.VesselName, f.VoyageNumber,
		f.ETD, f.ATD, f.ETA, f.ATA, f.CargoCutoff, f.DocCutoff,
	} {
		if v.IsSet() {
			return false
		}
	}
	return len(f.ContainerNumbers) == 0
}

// Classification is the upstream document-type verdict for one attachment
// or email body.
type Classification struct {
	DocumentType domain.DocumentType `json:"document_type"`
	Confidence   float64             `json:"confidence"`
	// IsAmendment is set when the classifier saw an explicit amendment
	// marker (AMENDED / UPDATED / REVISED or an amendment document type).
	IsAmendment bool `json:"is_amendment"`
	// ReferenceCandidates are reference numbers the classifier surfaced, in
	// preference order. The document registry falls back to its own pattern
	// extraction when this is empty.
	ReferenceCandidates []string `json:"reference_candidates,omitempty"`
}
