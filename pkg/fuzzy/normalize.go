// Package fuzzy holds the text canonicalization and edit-distance similarity
// shared by the institution resolver and the candidate scorer.
package fuzzy

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes s for comparison: diacritics folded, lowercased,
// "&" spelled out as "and", everything but [a-z0-9] and whitespace dropped,
// whitespace collapsed to single spaces. The result is idempotent.
func Normalize(s string) string {
	s = strings.ToLower(fold(s))
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "&", "and")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// fold strips combining marks, then transliterates whatever is still
// non-ASCII (ß, æ, ø, non-Latin scripts).
func fold(s string) string {
	if isASCII(s) {
		return s
	}
	stripped, _, err := transform.String(stripAccents, s)
	if err != nil {
		stripped = s
	}
	if isASCII(stripped) {
		return stripped
	}
	return unidecode.Unidecode(stripped)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Words splits a normalized string into its set of distinct words.
func Words(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		set[w] = struct{}{}
	}
	return set
}

// SharedWords counts the words present in both sets.
func SharedWords(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

// Digits keeps only the ASCII digits of s and drops a single leading
// country-code "1", so "+1 (614) 555-0100" and "614.555.0100" compare equal.
func Digits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return strings.TrimPrefix(b.String(), "1")
}
