package domain

import "context"

type resolveStatsKey struct{}

// ResolveStats collects per-request resolution counters.
// The handler puts a mutable pointer into the context before calling the service;
// the service writes while resolving; the handler reads it for response headers.
type ResolveStats struct {
	LinesScanned    int
	CandidatesTried int
	CandidateFaults int
	CacheHit        bool
}

// NewContextWithStats returns a context with an embedded stats collector.
func NewContextWithStats(ctx context.Context) (context.Context, *ResolveStats) {
	s := &ResolveStats{}
	return context.WithValue(ctx, resolveStatsKey{}, s), s
}

// StatsFromContext extracts the stats collector from context. Returns nil if not set.
func StatsFromContext(ctx context.Context) *ResolveStats {
	s, _ := ctx.Value(resolveStatsKey{}).(*ResolveStats)
	return s
}

// AddLine records one scanned input line.
func (s *ResolveStats) AddLine() {
	if s != nil {
		s.LinesScanned++
	}
}

// AddCandidate records one candidate sent to the matcher.
func (s *ResolveStats) AddCandidate() {
	if s != nil {
		s.CandidatesTried++
	}
}

// AddFault records one candidate that faulted during scoring.
func (s *ResolveStats) AddFault() {
	if s != nil {
		s.CandidateFaults++
	}
}

// MarkCacheHit records that the result was served from cache.
func (s *ResolveStats) MarkCacheHit() {
	if s != nil {
		s.CacheHit = true
	}
}
