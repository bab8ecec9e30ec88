package models

import (
	"regexp"
	"strings"
)

// ReferencePattern is one entry in the reference-derivation priority list.
// Each entry is independently testable; extraction runs them in declared
// order and the first match wins.
type ReferencePattern struct {
	Name        string
	CarrierCode string
	Pattern     *regexp.Regexp
}

// referencePatterns is ordered by specificity: carrier-prefixed bill-of-lading
// and booking shapes first, keyword-anchored generic references last. New
// carriers are added as entries, not as code.
var referencePatterns = []ReferencePattern{
	{Name: "maersk_bl", CarrierCode: "MAEU", Pattern: regexp.MustCompile(`\b(MAEU\d{9})\b`)},
	{Name: "msc_bl", CarrierCode: "MSCU", Pattern: regexp.MustCompile(`\b(MEDU[A-Z]{2}\d{6})\b`)},
	{Name: "cma_cgm_bl", CarrierCode: "CMDU", Pattern: regexp.MustCompile(`\b(CMDU[A-Z0-9]{9})\b`)},
	{Name: "hapag_bl", CarrierCode: "HLCU", Pattern: regexp.MustCompile(`\b(HLCU[A-Z]{3}\d{9,10})\b`)},
	{Name: "one_bl", CarrierCode: "ONEY", Pattern: regexp.MustCompile(`\b(ONEY[A-Z0-9]{8,12})\b`)},
	{Name: "evergreen_bl", CarrierCode: "EGLV", Pattern: regexp.MustCompile(`\b(EGLV\d{12})\b`)},
	{Name: "cosco_bl", CarrierCode: "COSU", Pattern: regexp.MustCompile(`\b(COSU\d{10})\b`)},
	{Name: "msc_booking", CarrierCode: "MSCU", Pattern: regexp.MustCompile(`\b(EBKG\d{8})\b`)},
	{Name: "cma_cgm_booking", CarrierCode: "CMDU", Pattern: regexp.MustCompile(`\b(CAD\d{7})\b`)},
	{Name: "generic_booking", Pattern: regexp.MustCompile(`(?i)\bBOOKING\s*(?:NO|NUMBER|REF(?:ERENCE)?)?\s*[.:#-]?\s*([A-Z0-9][A-Z0-9-]{5,19})`)},
	{Name: "generic_bl", Pattern: regexp.MustCompile(`(?i)\b(?:B\s*/\s*L|BL|BILL OF LADING)\s*(?:NO|NUMBER)?\s*[.:#-]?\s*([A-Z0-9][A-Z0-9-]{5,19})`)},
	{Name: "generic_invoice", Pattern: regexp.MustCompile(`(?i)\bINV(?:OICE)?\s*(?:NO|NUMBER)?\s*[.:#-]?\s*([A-Z0-9][A-Z0-9-]{3,19})`)},
}

// ReferenceMatch is the outcome of reference derivation.
type ReferenceMatch struct {
	Reference   string
	CarrierCode string
	PatternName string
}

// DeriveReference picks the primary reference number for a document.
// Candidates supplied by upstream classification take precedence; pattern
// extraction over filename then content is the fallback.
func DeriveReference(candidates []string, filename, content string) (ReferenceMatch, bool) {
	for _, c := range candidates {
		c = normalizeReference(c)
		if c != "" {
			return ReferenceMatch{Reference: c, PatternName: "classifier"}, true
		}
	}
	for _, input := range []string{filename, content} {
		if m, ok := firstMatch(input); ok {
			return m, true
		}
	}
	return ReferenceMatch{}, false
}

// firstMatch evaluates the priority list against one input. Entries are
// tried in declared order; the first submatch wins.
func firstMatch(input string) (ReferenceMatch, bool) {
	if input == "" {
		return ReferenceMatch{}, false
	}
	// Underscore-joined filenames defeat \b anchors.
	upper := strings.ToUpper(strings.ReplaceAll(input, "_", " "))
	for _, p := range referencePatterns {
		groups := p.Pattern.FindStringSubmatch(upper)
		if groups == nil {
			continue
		}
		ref := groups[0]
		if len(groups) > 1 && groups[1] != "" {
			ref = groups[1]
		}
		return ReferenceMatch{
			Reference:   normalizeReference(ref),
			CarrierCode: p.CarrierCode,
			PatternName: p.Name,
		}, true
	}
	return ReferenceMatch{}, false
}

// normalizeReference uppercases and strips whitespace so "maeu 123456789"
// and "MAEU123456789" resolve identically.
func normalizeReference(ref string) string {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	return strings.Join(strings.Fields(ref), "")
}
