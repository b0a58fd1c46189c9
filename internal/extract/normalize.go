package extract

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/medmatch/internal/textnorm"
)

// padded punctuation is always surrounded by spaces.
const padded = "()[]{},:;!?*|\"'"

// Normalize prepares one prescription line for pattern matching:
// a space is inserted at letter/digit transitions and inside lower-to-upper
// letter pairs, isolated punctuation is padded, and whitespace is collapsed.
// Decimal points ("2.5") and intra-word hyphens ("Pan-D") are kept.
func Normalize(line string) string {
	rs := []rune(textnorm.StripControl(line))
	var b strings.Builder
	b.Grow(len(line) + 8)

	for i, r := range rs {
		var prev, next rune
		if i > 0 {
			prev = rs[i-1]
		}
		if i+1 < len(rs) {
			next = rs[i+1]
		}

		switch {
		case strings.ContainsRune(padded, r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
			continue
		case r == '.':
			if unicode.IsDigit(prev) && unicode.IsDigit(next) {
				b.WriteRune(r)
			} else {
				b.WriteString(" . ")
			}
			continue
		case r == '-':
			if unicode.IsLetter(prev) && unicode.IsLetter(next) {
				b.WriteRune(r)
			} else {
				b.WriteString(" - ")
			}
			continue
		}

		if i > 0 && splitBetween(prev, r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return textnorm.CollapseSpaces(b.String())
}

func splitBetween(prev, cur rune) bool {
	switch {
	case unicode.IsLetter(prev) && unicode.IsDigit(cur):
		return true
	case unicode.IsDigit(prev) && unicode.IsLetter(cur):
		return true
	case unicode.IsLower(prev) && unicode.IsUpper(cur):
		return true
	}
	return false
}

// splitLines splits text on any line break, dropping blank lines.
// Literal "\n" sequences (escaped by some OCR clients) count as breaks.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, `\n`, "\n")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// tokens returns whitespace tokens that carry at least one letter or digit.
func tokens(s string) []string {
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		if strings.IndexFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			out = append(out, f)
		}
	}
	return out
}
