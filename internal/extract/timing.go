package extract

import (
	"regexp"

	"github.com/kailas-cloud/medmatch/internal/domain/vocab"
)

type timingMatcher struct {
	re    *regexp.Regexp
	label string
}

var timingMatchers = compileTiming(vocab.Timing)

func compileTiming(rules []vocab.TimingRule) []timingMatcher {
	out := make([]timingMatcher, 0, len(rules))
	for _, r := range rules {
		out = append(out, timingMatcher{
			re:    regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(r.Keyword) + `s?\b`),
			label: r.Label,
		})
	}
	return out
}

// Timing maps free-text instructions to a canonical timing description.
// Keywords match as whole words; the first rule in table order wins.
func Timing(instructions string) string {
	for _, m := range timingMatchers {
		if m.re.MatchString(instructions) {
			return m.label
		}
	}
	return vocab.DefaultTiming
}
