// Package slug turns display names into identifier-safe slugs.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// polish maps letters that do not decompose into a base letter plus a
// combining mark.
var polish = strings.NewReplacer("ł", "l", "Ł", "l")

// Make lowercases s, strips diacritics and collapses every run of
// non-alphanumeric characters into a single underscore.
//
//	Make("Zażółć Gęślą Jaźń") == "zazolc_gesla_jazn"
func Make(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, polish.Replace(s))
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	sep := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			sep = false
			continue
		}
		if !sep && b.Len() > 0 {
			b.WriteByte('_')
			sep = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}
