// Package match scores candidate text against the catalog index.
package match

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	"github.com/kailas-cloud/medmatch/internal/domain"
	dommatch "github.com/kailas-cloud/medmatch/internal/domain/match"
)

// TopPerCandidate is the number of matches kept for one candidate.
const TopPerCandidate = 5

// minChunk keeps small catalogs on a single goroutine.
const minChunk = 256

// Matcher scores one candidate against every entry of an index.
// It holds no catalog state; the index is passed per call.
type Matcher struct {
	parallelism int
}

// New creates a Matcher. parallelism > 1 splits scoring across goroutines;
// output does not depend on it.
func New(parallelism int) *Matcher {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Matcher{parallelism: parallelism}
}

type scored struct {
	ok    bool
	score float64
}

// Match returns up to TopPerCandidate accepted matches for text, best first,
// catalog order breaking ties. minScore is the caller minimum on the 0..100 scale.
// Rejected or too-short text yields an empty result, not an error.
func (m *Matcher) Match(ctx context.Context, ix *catalog.Index, text string, minScore float64) ([]dommatch.Result, error) {
	cand := NormalizeCandidate(text)
	if cand == "" || ix.IsEmpty() {
		return nil, nil
	}

	scores := make([]scored, ix.Len())
	if err := m.scoreAll(ctx, ix, cand, minScore, scores); err != nil {
		return nil, err
	}

	var out []dommatch.Result
	for i, s := range scores {
		if !s.ok {
			continue
		}
		out = append(out, dommatch.New(ix.At(i), i, s.score/100))
	}
	dommatch.Rank(out)
	return dommatch.Cap(out, TopPerCandidate), nil
}

func (m *Matcher) scoreAll(ctx context.Context, ix *catalog.Index, cand string, minScore float64, dst []scored) error {
	n := ix.Len()
	workers := min(m.parallelism, (n+minChunk-1)/minChunk)
	if workers <= 1 {
		scoreRange(ix, cand, minScore, dst, 0, n)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", domain.ErrCandidateFault, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			scoreRange(ix, cand, minScore, dst, lo, hi)
			return nil
		})
	}
	return g.Wait()
}

// scoreRange writes only dst[lo:hi], so ranges can be scored concurrently.
func scoreRange(ix *catalog.Index, cand string, minScore float64, dst []scored, lo, hi int) {
	for i := lo; i < hi; i++ {
		e := ix.At(i)
		s := Similarity(cand, &e) + Boost(cand, &e)
		if Accept(cand, &e, s, minScore) {
			dst[i] = scored{ok: true, score: s}
		}
	}
}
