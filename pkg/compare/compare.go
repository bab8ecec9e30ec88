// Package compare is a stateless library of typed field comparison
// strategies. The reconciliation engine drives it, but nothing here knows
// about shipments or documents: inputs are two string values and a
// comparison type, output is a match verdict with a human-readable message.
//
// Empty values are "null": null/null matches, null/non-null does not.
package compare

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
)

// Type selects a comparison strategy.
type Type string

const (
	TypeExact           Type = "exact"
	TypeCaseInsensitive Type = "case_insensitive"
	TypeContains        Type = "contains"
	TypeNumeric         Type = "numeric"
	TypeDate            Type = "date"
	TypeFuzzy           Type = "fuzzy"
)

// Result is the outcome of one comparison.
type Result struct {
	Matches bool
	Message string
}

// Options tune strategy behavior where the caller context matters.
type Options struct {
	// DateToleranceDays is the calendar-day window within which two dates
	// still match. Zero means same-day only.
	DateToleranceDays int
}

// DefaultOptions allow one day of date drift, which absorbs timezone skew
// between independently-authored documents.
var DefaultOptions = Options{DateToleranceDays: 1}

// fuzzyThreshold is the minimum normalized Levenshtein similarity for a
// fuzzy match.
const fuzzyThreshold = 0.85

// numericTolerance is the allowed relative difference, measured against the
// larger magnitude.
var numericTolerance = decimal.NewFromFloat(0.01)

// Compare runs the strategy for typ with DefaultOptions.
func Compare(a, b string, typ Type) Result {
	return CompareWith(a, b, typ, DefaultOptions)
}

// CompareWith runs the strategy for typ with explicit options.
func CompareWith(a, b string, typ Type, opts Options) Result {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)

	if a == "" && b == "" {
		return Result{Matches: true, Message: "both values empty"}
	}
	if a == "" || b == "" {
		return Result{Matches: false, Message: "one value empty"}
	}

	switch typ {
	case TypeExact:
		return compareExact(a, b)
	case TypeCaseInsensitive:
		return compareCaseInsensitive(a, b)
	case TypeContains:
		return compareContains(a, b)
	case TypeNumeric:
		return compareNumeric(a, b)
	case TypeDate:
		return compareDate(a, b, opts.DateToleranceDays)
	case TypeFuzzy:
		return compareFuzzy(a, b)
	default:
		return Result{Matches: false, Message: fmt.Sprintf("unknown comparison type %q", typ)}
	}
}

func compareExact(a, b string) Result {
	if a == b {
		return Result{Matches: true, Message: "exact match"}
	}
	return Result{Matches: false, Message: fmt.Sprintf("%q != %q", a, b)}
}

func compareCaseInsensitive(a, b string) Result {
	if strings.EqualFold(a, b) {
		return Result{Matches: true, Message: "match (case-insensitive)"}
	}
	return Result{Matches: false, Message: fmt.Sprintf("%q != %q", a, b)}
}

func compareContains(a, b string) Result {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return Result{Matches: true, Message: "substring match"}
	}
	return Result{Matches: false, Message: fmt.Sprintf("neither %q nor %q contains the other", a, b)}
}

func compareNumeric(a, b string) Result {
	da, errA := parseNumeric(a)
	db, errB := parseNumeric(b)
	if errA != nil || errB != nil {
		return Result{Matches: false, Message: fmt.Sprintf("not numeric: %q vs %q", a, b)}
	}
	if da.Equal(db) {
		return Result{Matches: true, Message: "numeric match"}
	}

	larger := decimal.Max(da.Abs(), db.Abs())
	if larger.IsZero() {
		return Result{Matches: false, Message: fmt.Sprintf("%s != %s", da, db)}
	}
	diff := da.Sub(db).Abs()
	ratio := diff.Div(larger)
	if ratio.LessThanOrEqual(numericTolerance) {
		return Result{Matches: true, Message: fmt.Sprintf("within 1%% tolerance (%s vs %s)", da, db)}
	}
	return Result{Matches: false, Message: fmt.Sprintf("%s differs from %s by more than 1%%", da, db)}
}

// parseNumeric strips thousands separators and currency decoration so values
// like "USD 1,250.00" and "1250" compare as numbers.
func parseNumeric(s string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == ',', r == ' ', r == '\'':
			// thousands separators
		case unicode.IsLetter(r), r == '$', r == '€', r == '£', r == '¥':
			// currency decoration
		default:
			b.WriteRune(r)
		}
	}
	return decimal.NewFromString(b.String())
}

// dateLayouts are tried in order; first parse wins.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02/01/2006",
	"2006/01/02",
	"20060102",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func compareDate(a, b string, toleranceDays int) Result {
	ta, okA := parseDate(a)
	tb, okB := parseDate(b)
	if !okA || !okB {
		return Result{Matches: false, Message: fmt.Sprintf("unparseable date: %q vs %q", a, b)}
	}
	// Compare calendar days, not instants.
	da := time.Date(ta.Year(), ta.Month(), ta.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(tb.Year(), tb.Month(), tb.Day(), 0, 0, 0, 0, time.UTC)
	diffDays := int(da.Sub(db).Hours() / 24)
	if diffDays < 0 {
		diffDays = -diffDays
	}
	if diffDays <= toleranceDays {
		return Result{Matches: true, Message: fmt.Sprintf("dates within %d day(s)", toleranceDays)}
	}
	return Result{Matches: false, Message: fmt.Sprintf("dates differ by %d day(s)", diffDays)}
}

func compareFuzzy(a, b string) Result {
	na, nb := normalizeFuzzy(a), normalizeFuzzy(b)
	if na == nb {
		return Result{Matches: true, Message: "match after normalization"}
	}
	if na != "" && nb != "" && (strings.Contains(na, nb) || strings.Contains(nb, na)) {
		return Result{Matches: true, Message: "substring match after normalization"}
	}
	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	if maxLen == 0 {
		return Result{Matches: false, Message: "no comparable content"}
	}
	dist := levenshtein.ComputeDistance(na, nb)
	similarity := 1 - float64(dist)/float64(maxLen)
	if similarity >= fuzzyThreshold {
		return Result{Matches: true, Message: fmt.Sprintf("similarity %.2f", similarity)}
	}
	return Result{Matches: false, Message: fmt.Sprintf("similarity %.2f below threshold", similarity)}
}

// normalizeFuzzy lowercases, strips punctuation, and collapses whitespace.
func normalizeFuzzy(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if inSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			inSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			inSpace = true
		default:
			// punctuation dropped
		}
	}
	return b.String()
}
