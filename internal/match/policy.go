package match

import (
	"regexp"
	"strings"
	"unicode/utf8"

	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
	"github.com/kailas-cloud/medmatch/internal/domain/vocab"
	"github.com/kailas-cloud/medmatch/internal/textnorm"
)

// Confidence policy constants. Scores are on the raw 0..100 scale.
const (
	MinCandidateLen = 3
	DefaultMinScore = 40.0

	shortLen       = 5
	shortThreshold = 75.0
	mediumLen      = 8
	mediumThresh   = 60.0

	boost           = 15.0
	strongScore     = 80.0
	strongMinLength = 4
)

var candidateNoiseRe = regexp.MustCompile(`[^\p{L}\p{N}_\s\-+.]`)

// NormalizeCandidate folds the text and keeps only letters, digits, spaces,
// hyphens, plus signs and dots. It returns "" when the result is shorter than
// three characters or is a stop word.
func NormalizeCandidate(text string) string {
	s := textnorm.Fold(text)
	s = candidateNoiseRe.ReplaceAllString(s, " ")
	s = textnorm.CollapseSpaces(s)
	if utf8.RuneCountInString(s) < MinCandidateLen || vocab.IsStopWord(s) {
		return ""
	}
	return s
}

// Threshold returns the raw score a candidate of n characters must reach.
// Short candidates use fixed, stricter bars; others use the caller's minimum.
func Threshold(n int, minScore float64) float64 {
	switch {
	case n < shortLen:
		return shortThreshold
	case n < mediumLen:
		return mediumThresh
	default:
		return minScore
	}
}

// Boost returns the bonus for a candidate that is a whole brand token or an alias.
func Boost(cand string, e *domcat.Entry) float64 {
	if e.HasBrandToken(cand) || e.HasAlias(cand) {
		return boost
	}
	return 0
}

// Accept applies the acceptance rule to a boosted score: the score must clear the
// length threshold, and the candidate must be textually related to the entry
// (brand containment either way, alias containment) unless the score is strong.
func Accept(cand string, e *domcat.Entry, score, minScore float64) bool {
	n := utf8.RuneCountInString(cand)
	if score < Threshold(n, minScore) {
		return false
	}
	brand := e.BrandForm()
	return strings.Contains(brand, cand) ||
		strings.Contains(cand, brand) ||
		e.AliasContains(cand) ||
		(n >= strongMinLength && score >= strongScore)
}

// Similarity returns the best composite score of cand against the entry's
// combined "brand generic" form and each alias separately.
func Similarity(cand string, e *domcat.Entry) float64 {
	best := WRatio(cand, e.CombinedForm())
	for _, a := range e.AliasForms() {
		if s := WRatio(cand, a); s > best {
			best = s
		}
	}
	return best
}
