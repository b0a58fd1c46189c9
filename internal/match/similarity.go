package match

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Composite similarity on a 0..100 scale.
//
// Comparable-length strings take the best of plain, token-sort and token-set ratios.
// When one string is much longer, partial (best-window) variants are used and scaled
// down, so that "dolo" against "dolo650 paracetamol" scores high without a long
// target dominating every short query.
const (
	tokenScale       = 0.95
	partialScale     = 0.9
	longPartialScale = 0.6
	partialLenRatio  = 1.5
	longLenRatio     = 8.0
)

// WRatio returns the weighted composite similarity of a and b in [0,100].
// Inputs are expected to be normalized already.
func WRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)

	base := Ratio(a, b)
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))

	if lenRatio < partialLenRatio {
		return max(base, TokenSortRatio(a, b)*tokenScale, TokenSetRatio(a, b)*tokenScale)
	}

	scale := partialScale
	if lenRatio > longLenRatio {
		scale = longPartialScale
	}
	return max(base,
		PartialRatio(a, b)*scale,
		partialTokenSortRatio(a, b)*tokenScale*scale,
		partialTokenSetRatio(a, b)*tokenScale*scale,
	)
}

// Ratio is the normalized Levenshtein similarity in [0,100].
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 && lb == 0 {
		return 100
	}
	d := fuzzy.LevenshteinDistance(a, b)
	return 100 * (1 - float64(d)/float64(max(la, lb)))
}

// PartialRatio is the best Ratio of the shorter string against every
// equally long window of the longer one.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	if len(short) == len(long) {
		return Ratio(a, b)
	}

	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := Ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares the strings with their tokens sorted.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared tokens against each side's remainder,
// so that a full subset of tokens scores 100.
func TokenSetRatio(a, b string) float64 {
	sect, onlyA, onlyB := tokenSets(a, b)
	if sect == "" {
		return Ratio(onlyA, onlyB)
	}
	withA := strings.TrimSpace(sect + " " + onlyA)
	withB := strings.TrimSpace(sect + " " + onlyB)
	if onlyA == "" || onlyB == "" {
		return 100
	}
	return max(Ratio(sect, withA), Ratio(sect, withB), Ratio(withA, withB))
}

func partialTokenSortRatio(a, b string) float64 {
	return PartialRatio(sortedTokens(a), sortedTokens(b))
}

func partialTokenSetRatio(a, b string) float64 {
	sect, onlyA, onlyB := tokenSets(a, b)
	if sect != "" {
		return 100
	}
	return PartialRatio(onlyA, onlyB)
}

func sortedTokens(s string) string {
	t := strings.Fields(s)
	sort.Strings(t)
	return strings.Join(t, " ")
}

// tokenSets returns the sorted intersection and the sorted per-side differences, space-joined.
func tokenSets(a, b string) (sect, onlyA, onlyB string) {
	setA := toSet(strings.Fields(a))
	setB := toSet(strings.Fields(b))

	var common, da, db []string
	for t := range setA {
		if _, ok := setB[t]; ok {
			common = append(common, t)
		} else {
			da = append(da, t)
		}
	}
	for t := range setB {
		if _, ok := setA[t]; !ok {
			db = append(db, t)
		}
	}
	sort.Strings(common)
	sort.Strings(da)
	sort.Strings(db)
	return strings.Join(common, " "), strings.Join(da, " "), strings.Join(db, " ")
}

func toSet(ts []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		m[t] = struct{}{}
	}
	return m
}
