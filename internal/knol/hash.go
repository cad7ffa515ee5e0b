package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Normalize lowercases the text, collapses every run of whitespace
// (spaces, tabs, newlines) into a single space, and trims the ends.
// Returns "" when nothing survives.
//
// Reflow, wrapping, casing and repeated whitespace must not change the
// result; word order, punctuation, symbols and digits must.
func Normalize(text string) string {
	lower := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lower))
	lastWasSpace := false
	for _, ch := range lower {
		if unicode.IsSpace(ch) {
			if !lastWasSpace {
				b.WriteByte(' ')
				lastWasSpace = true
			}
			continue
		}
		b.WriteRune(ch)
		lastWasSpace = false
	}

	return strings.TrimSpace(b.String())
}

// Fingerprint returns the SHA-256 hex digest of the normalized text.
// The second return is false when the text normalizes to empty and so
// has no identity.
func Fingerprint(text string) (string, bool) {
	normalized := Normalize(text)
	if normalized == "" {
		return "", false
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:]), true
}
