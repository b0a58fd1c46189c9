package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kailas-cloud/medmatch/internal/domain/candidate"
	"github.com/kailas-cloud/medmatch/internal/domain/vocab"
)

const (
	defaultMaxStripWords = 200
	minStripWordLen      = 4
)

var stripNoiseRe = regexp.MustCompile(`[^\w\s\-+/.]`)

// StripSpans holds the two candidate families tried on a medicine-strip label.
type StripSpans struct {
	Groups []candidate.Span
	Words  []candidate.Span
}

// CleanStrip keeps word characters and basic punctuation and joins all lines.
func CleanStrip(text string) string {
	text = stripNoiseRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Strip segments strip-label text: every contiguous 1..4 word group of at least
// three characters (ordered by start word, then group length), followed by single
// alphabetic words of at least four characters that are not strip stop words.
// At most maxWords words are considered.
func Strip(text string, maxWords int) StripSpans {
	if maxWords <= 0 {
		maxWords = defaultMaxStripWords
	}
	words := strings.Fields(CleanStrip(text))
	if len(words) > maxWords {
		words = words[:maxWords]
	}

	var out StripSpans
	for i := range words {
		for j := i + 1; j <= min(i+maxWindow, len(words)); j++ {
			seg := strings.Join(words[i:j], " ")
			if len(seg) >= minSpanLen {
				out.Groups = append(out.Groups, candidate.New(seg, 0, i, candidate.ModeStrip))
			}
		}
	}
	for i, w := range words {
		if len(w) < minStripWordLen || strings.IndexFunc(w, unicode.IsDigit) >= 0 || vocab.IsStripStopWord(w) {
			continue
		}
		out.Words = append(out.Words, candidate.New(w, 0, i, candidate.ModeStrip))
	}
	return out
}
