package models

import (
	"strings"
	"time"
	"unicode"

	"stevedore/pkg/domain"
)

// Party is a trading-partner organization.
//
// Invariants:
//   - Uniqueness is (normalized name, role) or a verified contact email
//   - An email domain maps to at most one Party
//   - EmailDomains only ever grows; a Party is never deleted
type Party struct {
	ID             domain.PartyID
	Name           string // normalized
	DisplayName    string
	Role           domain.PartyRole
	EmailDomains   []string
	ContactEmails  []string
	IsCustomer     bool
	ShipmentCount  int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Resolution reports one resolve outcome.
type Resolution struct {
	PartyID domain.PartyID
	IsNew   bool
	// Excluded is set when the party is the operating company itself on a
	// document type where it appears as an intermediary, and must not be
	// registered as a counterparty.
	Excluded bool
}

// NormalizeName canonicalizes a free-text party name: trim, collapse
// whitespace, uppercase, strip punctuation outside ".-&,".
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	inSpace := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsSpace(r):
			inSpace = true
		case unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(".-&,", r):
			if inSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			inSpace = false
			b.WriteRune(unicode.ToUpper(r))
		default:
			// dropped punctuation still separates words
			inSpace = true
		}
	}
	return b.String()
}

// HasDomain reports whether the party already owns the given email domain.
func (p *Party) HasDomain(d string) bool {
	for _, existing := range p.EmailDomains {
		if existing == d {
			return true
		}
	}
	return false
}
