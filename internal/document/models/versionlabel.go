package models

import (
	"regexp"
	"strconv"
	"strings"
)

// VersionLabel is the human-readable version marker parsed from a filename
// or subject/body text.
type VersionLabel struct {
	// Text is the canonical label, e.g. "3RD UPDATE", "DRAFT 2", "FINAL".
	Text string
	// Revision is the explicitly stated revision number, 0 when the label
	// carries none.
	Revision int
	// Heuristic is set when only a bare AMENDED/UPDATED/REVISED marker was
	// found. An explicitly numbered label always takes precedence over a
	// heuristic one, and a heuristic bump never lowers a known revision.
	Heuristic bool
}

// Label patterns in precedence order: ordinal+keyword ("3RD UPDATE") and
// keyword+number ("DRAFT 2") beat "FINAL", which beats generic "V2" shapes;
// the bare-keyword heuristic comes last.
var (
	ordinalKeywordRe = regexp.MustCompile(`(?i)\b(\d{1,2})(ST|ND|RD|TH)\s+(UPDATE|AMENDMENT|REVISION|DRAFT)\b`)
	keywordNumberRe  = regexp.MustCompile(`(?i)\b(DRAFT|REV(?:ISION)?|AMEND(?:MENT|ED)|UPDATED?|REVISED|VERSION)\s*[#.:-]?\s*(\d{1,2})\b`)
	finalRe          = regexp.MustCompile(`(?i)\bFINAL\b`)
	genericVRe       = regexp.MustCompile(`(?i)\bV(?:ER)?\.?\s?(\d{1,2})\b`)
	bareAmendedRe    = regexp.MustCompile(`(?i)\b(AMENDED|UPDATED|REVISED)\b`)
)

// ParseVersionLabel extracts a version label from the filename first, then
// the content. Returns ok=false when no marker was found.
func ParseVersionLabel(filename, content string) (VersionLabel, bool) {
	for _, input := range []string{filename, content} {
		if label, ok := parseLabel(input); ok {
			return label, true
		}
	}
	return VersionLabel{}, false
}

// BumpedLabel renders a heuristic label with the revision it was bumped to,
// e.g. ("AMENDED", 3) -> "AMENDED 3".
func BumpedLabel(keyword string, revision int) string {
	return keyword + " " + strconv.Itoa(revision)
}

func parseLabel(input string) (VersionLabel, bool) {
	if input == "" {
		return VersionLabel{}, false
	}
	// Filenames join words with underscores, which defeat \b anchors.
	input = strings.ReplaceAll(input, "_", " ")

	if groups := ordinalKeywordRe.FindStringSubmatch(input); groups != nil {
		n, _ := strconv.Atoi(groups[1])
		text := strings.ToUpper(groups[1] + groups[2] + " " + groups[3])
		return VersionLabel{Text: text, Revision: n}, true
	}
	if groups := keywordNumberRe.FindStringSubmatch(input); groups != nil {
		n, _ := strconv.Atoi(groups[2])
		text := strings.ToUpper(groups[1] + " " + groups[2])
		return VersionLabel{Text: text, Revision: n}, true
	}
	if finalRe.MatchString(input) {
		return VersionLabel{Text: "FINAL"}, true
	}
	if groups := genericVRe.FindStringSubmatch(input); groups != nil {
		n, _ := strconv.Atoi(groups[1])
		return VersionLabel{Text: "V" + groups[1], Revision: n}, true
	}
	if groups := bareAmendedRe.FindStringSubmatch(input); groups != nil {
		return VersionLabel{Text: strings.ToUpper(groups[1]), Heuristic: true}, true
	}
	return VersionLabel{}, false
}
