package match

import (
	"sort"

	"github.com/kailas-cloud/medmatch/internal/domain/candidate"
	"github.com/kailas-cloud/medmatch/internal/domain/catalog"
)

// Result is one catalog entry matched to a candidate (value object).
type Result struct {
	entry   catalog.Entry
	ordinal int
	rank    float64
	score   float64
	fields  *candidate.Fields
}

// New creates a Result. ordinal is the entry's catalog load position and
// breaks score ties. The raw score orders results; Score reports it clamped to [0,1].
func New(entry catalog.Entry, ordinal int, score float64) Result {
	r := Result{entry: entry, ordinal: ordinal, rank: score, score: score}
	switch {
	case score < 0:
		r.score = 0
	case score > 1:
		r.score = 1
	}
	return r
}

// WithFields returns a copy carrying structured fields. A nil or empty f is ignored.
func (r Result) WithFields(f *candidate.Fields) Result {
	if f == nil || f.IsZero() {
		return r
	}
	c := *f
	r.fields = &c
	return r
}

// Entry returns the matched catalog entry.
func (r Result) Entry() catalog.Entry { return r.entry }

// Ordinal returns the catalog load position of the entry.
func (r Result) Ordinal() int { return r.ordinal }

// Score returns the normalized confidence in [0,1].
func (r Result) Score() float64 { return r.score }

// Rank returns the unclamped score, which can exceed 1 after boosts.
func (r Result) Rank() float64 { return r.rank }

// Fields returns structured side-channel fields, or nil.
func (r Result) Fields() *candidate.Fields { return r.fields }

// Key returns the brand identity used for deduplication.
func (r Result) Key() string { return r.entry.Key() }

// Less orders by descending score, then ascending catalog ordinal.
func Less(a, b Result) bool {
	if a.rank != b.rank {
		return a.rank > b.rank
	}
	return a.ordinal < b.ordinal
}

// Rank sorts results in place by descending score with catalog-order ties.
func Rank(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool { return Less(rs[i], rs[j]) })
}

// Dedupe keeps the best result per brand identity. When two results for the same
// brand tie on score, the one seen first wins. The output preserves first-seen order.
func Dedupe(rs []Result) []Result {
	idx := make(map[string]int, len(rs))
	out := make([]Result, 0, len(rs))
	for _, r := range rs {
		i, ok := idx[r.Key()]
		if !ok {
			idx[r.Key()] = len(out)
			out = append(out, r)
			continue
		}
		if r.rank > out[i].rank {
			out[i] = r
		}
	}
	return out
}

// Cap truncates to at most n results. n <= 0 means no limit.
func Cap(rs []Result, n int) []Result {
	if n > 0 && len(rs) > n {
		return rs[:n]
	}
	return rs
}

// Finalize dedupes, ranks and caps a pooled result set.
func Finalize(pool []Result, n int) []Result {
	out := Dedupe(pool)
	Rank(out)
	return Cap(out, n)
}
