package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullHandling(t *testing.T) {
	for _, typ := range []Type{TypeExact, TypeCaseInsensitive, TypeContains, TypeNumeric, TypeDate, TypeFuzzy} {
		assert.True(t, Compare("", "", typ).Matches, "null/null should match for %s", typ)
		assert.False(t, Compare("", "x", typ).Matches, "null/non-null should not match for %s", typ)
		assert.False(t, Compare("x", "  ", typ).Matches, "non-null/blank should not match for %s", typ)
	}
}

func TestExact(t *testing.T) {
	assert.True(t, Compare("MAEU123456789", "MAEU123456789", TypeExact).Matches)
	assert.True(t, Compare(" MAEU123456789 ", "MAEU123456789", TypeExact).Matches, "trims before comparing")
	assert.False(t, Compare("MAEU123456789", "maeu123456789", TypeExact).Matches, "case-sensitive")
}

func TestCaseInsensitive(t *testing.T) {
	assert.True(t, Compare("Rotterdam", "ROTTERDAM", TypeCaseInsensitive).Matches)
	assert.False(t, Compare("Rotterdam", "Antwerp", TypeCaseInsensitive).Matches)
}

func TestContains(t *testing.T) {
	assert.True(t, Compare("MV EVER GIVEN V.034E", "EVER GIVEN", TypeContains).Matches)
	assert.True(t, Compare("EVER GIVEN", "MV EVER GIVEN V.034E", TypeContains).Matches, "either direction")
	assert.False(t, Compare("EVER GIVEN", "EVER GLORY", TypeContains).Matches)
}

func TestNumeric(t *testing.T) {
	t.Run("within one percent tolerance", func(t *testing.T) {
		assert.True(t, Compare("1000", "1005", TypeNumeric).Matches)
	})
	t.Run("beyond tolerance", func(t *testing.T) {
		assert.False(t, Compare("1000", "1200", TypeNumeric).Matches)
	})
	t.Run("permissive parsing", func(t *testing.T) {
		assert.True(t, Compare("USD 1,250.00", "1250", TypeNumeric).Matches)
		assert.True(t, Compare("$12,500", "12500.00", TypeNumeric).Matches)
	})
	t.Run("non-numeric never matches", func(t *testing.T) {
		assert.False(t, Compare("n/a", "1000", TypeNumeric).Matches)
	})
}

func TestDate(t *testing.T) {
	t.Run("one day drift matches by default", func(t *testing.T) {
		assert.True(t, Compare("2024-03-15", "2024-03-16", TypeDate).Matches)
	})
	t.Run("two days does not", func(t *testing.T) {
		assert.False(t, Compare("2024-03-15", "2024-03-17", TypeDate).Matches)
	})
	t.Run("same-day tolerance for the reconciliation gate", func(t *testing.T) {
		opts := Options{DateToleranceDays: 0}
		assert.False(t, CompareWith("2024-03-15", "2024-03-16", TypeDate, opts).Matches)
		assert.True(t, CompareWith("2024-03-15", "15-Mar-2024", TypeDate, opts).Matches)
	})
	t.Run("mixed layouts", func(t *testing.T) {
		assert.True(t, Compare("2024-03-15", "Mar 15, 2024", TypeDate).Matches)
	})
}

func TestFuzzy(t *testing.T) {
	t.Run("punctuation and case variants", func(t *testing.T) {
		assert.True(t, Compare("ACME EXPORTS PVT LTD", "Acme Exports Pvt. Ltd", TypeFuzzy).Matches)
	})
	t.Run("substring short-circuit", func(t *testing.T) {
		assert.True(t, Compare("ACME EXPORTS", "ACME EXPORTS PVT LTD", TypeFuzzy).Matches)
	})
	t.Run("different names rejected", func(t *testing.T) {
		assert.False(t, Compare("ACME EXPORTS PVT LTD", "GLOBEX SHIPPING GMBH", TypeFuzzy).Matches)
	})
	t.Run("near miss below threshold", func(t *testing.T) {
		assert.False(t, Compare("abcdefghij", "abcde12345", TypeFuzzy).Matches)
	})
}

func TestUnknownType(t *testing.T) {
	res := Compare("a", "b", Type("regex"))
	assert.False(t, res.Matches)
	assert.Contains(t, res.Message, "unknown comparison type")
}
