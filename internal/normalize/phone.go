// Package normalize canonicalizes contact fields so that formatting
// variation never produces duplicate client records.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// countryCode replaces a leading trunk "0". Baked in for the target market;
// this is a normalization heuristic, not an E.164 validator.
const countryCode = "55"

// Phone strips a raw phone string down to digits and applies the trunk-prefix
// rule. Returns ("", false) when no digits remain. Never fails on malformed
// input.
func Phone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", false
	}
	if digits[0] == '0' {
		digits = countryCode + digits[1:]
	}
	return digits, true
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldDiacritics removes combining marks ("atenção" -> "atencao"). Input that
// fails to transform is returned unchanged.
func FoldDiacritics(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return out
}
