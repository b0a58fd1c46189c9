// Package textnorm holds the Unicode folding shared by the catalog index and the matcher.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold applies NFKC, strips combining marks, lowercases, trims and collapses whitespace.
// "  Crocín  Advance " -> "crocin advance".
func Fold(s string) string {
	s = norm.NFKC.String(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return CollapseSpaces(strings.ToLower(s))
}

// CollapseSpaces trims and replaces every whitespace run with a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripControl drops control characters except newlines and tabs.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// HasLetter reports whether s contains at least one letter.
func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
