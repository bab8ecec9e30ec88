// Package fingerprint derives deterministic content fingerprints for
// exact-duplicate detection. The same document delivered twice (re-sent
// email, re-forwarded attachment) must hash identically even when incidental
// whitespace or line endings differ, so content is normalized before hashing.
package fingerprint

import (
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is the hex form of a 256-bit content hash.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool { return f == "" }

// Of computes the fingerprint of raw document content.
func Of(content []byte) Fingerprint {
	sum := blake2b.Sum256([]byte(Normalize(string(content))))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// OfText computes the fingerprint of already-decoded text content.
func OfText(content string) Fingerprint {
	sum := blake2b.Sum256([]byte(Normalize(content)))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// Normalize collapses whitespace runs to a single space, trims, and
// case-folds. Two byte streams that differ only in line endings, indentation,
// or letter case normalize to the same string.
func Normalize(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	inSpace := false
	for _, r := range content {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
