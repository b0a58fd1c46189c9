// Package extract turns noisy OCR text into candidate medicine-name spans.
package extract

import (
	"iter"
	"regexp"
	"strings"

	"github.com/kailas-cloud/medmatch/internal/domain/candidate"
	"github.com/kailas-cloud/medmatch/internal/domain/vocab"
	"github.com/kailas-cloud/medmatch/internal/textnorm"
)

const (
	defaultMaxLines = 50
	maxWindow       = 4
	minSpanLen      = 3
)

var metadataRe = buildMetadata(vocab.MetadataHeaders)

func buildMetadata(headers []string) *regexp.Regexp {
	alts := make([]string, 0, len(headers))
	for _, h := range headers {
		alts = append(alts, strings.ReplaceAll(regexp.QuoteMeta(h), " ", `\s+`))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

// Extractor scans prescription text line by line.
type Extractor struct {
	strategies []Strategy
	maxLines   int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxLines bounds the number of non-blank lines scanned.
func WithMaxLines(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.maxLines = n
		}
	}
}

// WithStrategies replaces the structured strategies.
func WithStrategies(s ...Strategy) Option {
	return func(x *Extractor) { x.strategies = s }
}

// New creates an Extractor with the default structured strategies.
func New(opts ...Option) *Extractor {
	x := &Extractor{
		strategies: DefaultStrategies(),
		maxLines:   defaultMaxLines,
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Line is one scanned prescription line that survived the metadata filter.
type Line struct {
	Number     int
	Text       string
	Structured []candidate.Span
	Strategy   string
}

// Lines returns candidate lines in input order. Blank lines are ignored;
// every other line counts against the scan bound, including skipped ones.
// Metadata lines and lines without letters are skipped.
func (x *Extractor) Lines(text string) []Line {
	raw := splitLines(text)
	if len(raw) > x.maxLines {
		raw = raw[:x.maxLines]
	}

	out := make([]Line, 0, len(raw))
	for i, r := range raw {
		norm := Normalize(r)
		if len(norm) < minSpanLen || !textnorm.HasLetter(norm) || IsMetadata(norm) {
			continue
		}
		l := Line{Number: i, Text: norm}
		for _, s := range x.strategies {
			if spans := s.Extract(norm, i); len(spans) > 0 {
				l.Structured = spans
				l.Strategy = s.Name()
				break
			}
		}
		out = append(out, l)
	}
	return out
}

// IsMetadata reports whether a line is a prescription header (patient, doctor, date...).
func IsMetadata(line string) bool {
	return metadataRe.MatchString(line)
}

// Windows lazily yields contiguous token groups of the line, window size 4 down to 1,
// left to right within a size. Groups shorter than three characters are skipped.
func (l Line) Windows() iter.Seq[candidate.Span] {
	return func(yield func(candidate.Span) bool) {
		toks := tokens(l.Text)
		for size := min(maxWindow, len(toks)); size > 0; size-- {
			for i := 0; i+size <= len(toks); i++ {
				text := strings.Join(toks[i:i+size], " ")
				if len(text) < minSpanLen {
					continue
				}
				if !yield(candidate.New(text, l.Number, i, candidate.ModeWindow)) {
					return
				}
			}
		}
	}
}
