package models

import "stevedore/pkg/compare"

// PairSIVsChecklist is the shipping-instruction-draft vs carrier-checklist
// reconciliation run before SI submission.
const PairSIVsChecklist = "si_vs_checklist"

// defaultConfigs holds the built-in field sets per document pair. Identity
// fields that would route cargo wrong are critical; schedule fields that the
// carrier may still shift are warnings.
var defaultConfigs = map[string][]FieldConfig{
	PairSIVsChecklist: {
		{Name: "booking_number", Compare: compare.TypeExact, Severity: SeverityCritical},
		{Name: "shipper_name", Compare: compare.TypeFuzzy, Severity: SeverityCritical},
		{Name: "consignee_name", Compare: compare.TypeFuzzy, Severity: SeverityCritical},
		{Name: "notify_party_name", Compare: compare.TypeFuzzy, Severity: SeverityWarning},
		{Name: "origin_code", Compare: compare.TypeCaseInsensitive, Severity: SeverityCritical},
		{Name: "destination_code", Compare: compare.TypeCaseInsensitive, Severity: SeverityCritical},
		{Name: "vessel_name", Compare: compare.TypeFuzzy, Severity: SeverityWarning},
		{Name: "voyage_number", Compare: compare.TypeCaseInsensitive, Severity: SeverityWarning},
		{Name: "etd", Compare: compare.TypeDate, Severity: SeverityWarning},
		{Name: "eta", Compare: compare.TypeDate, Severity: SeverityInfo},
	},
}

// DefaultFieldConfigs returns the built-in config for a pair key, or nil when
// the pair is unknown.
func DefaultFieldConfigs(pairKey string) []FieldConfig {
	cfgs, ok := defaultConfigs[pairKey]
	if !ok {
		return nil
	}
	return append([]FieldConfig(nil), cfgs...)
}
