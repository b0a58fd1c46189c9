package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	"github.com/kailas-cloud/medmatch/internal/domain"
	"github.com/kailas-cloud/medmatch/internal/domain/candidate"
	dommatch "github.com/kailas-cloud/medmatch/internal/domain/match"
	"github.com/kailas-cloud/medmatch/internal/extract"
	"github.com/kailas-cloud/medmatch/internal/logger"
	"github.com/kailas-cloud/medmatch/internal/metrics"
)

// Config holds the resolution policy knobs. Scores are on the 0..100 scale.
type Config struct {
	MinConfidence           float64
	LookupMaxResults        int
	DocumentMaxResults      int
	MaxCandidatesAccepted   int
	StructuredMinConfidence float64
	WindowMinConfidence     float64
	StripGroupMinConfidence float64
	StripWordMinConfidence  float64
	MaxStripWords           int
}

// DefaultConfig returns the stock resolution policy.
func DefaultConfig() Config {
	return Config{
		MinConfidence:           40,
		LookupMaxResults:        3,
		DocumentMaxResults:      10,
		MaxCandidatesAccepted:   10,
		StructuredMinConfidence: 50,
		WindowMinConfidence:     60,
		StripGroupMinConfidence: 45,
		StripWordMinConfidence:  70,
		MaxStripWords:           200,
	}
}

// Service drives extraction and matching over a text and aggregates the results.
type Service struct {
	index     atomic.Pointer[catalog.Index]
	extractor LineExtractor
	matcher   Matcher
	cfg       Config
	logger    *zap.Logger
}

// New creates a resolution service over ix. A nil ix is treated as an empty catalog.
func New(ix *catalog.Index, extractor LineExtractor, matcher Matcher, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{extractor: extractor, matcher: matcher, cfg: cfg, logger: logger}
	s.SwapIndex(ix)
	return s
}

// Index returns the current catalog snapshot.
func (s *Service) Index() *catalog.Index { return s.index.Load() }

// SwapIndex atomically replaces the catalog. Calls already running keep the snapshot they started with.
func (s *Service) SwapIndex(ix *catalog.Index) {
	if ix == nil {
		ix = catalog.Empty("")
	}
	s.index.Store(ix)
	metrics.CatalogEntries.WithLabelValues(ix.Source()).Set(float64(ix.Len()))
}

// Config returns the resolution policy.
func (s *Service) Config() Config { return s.cfg }

// LookupParams are the effective parameters of a single lookup.
type LookupParams struct {
	MinConfidence float64
	MaxResults    int
}

// LookupOption overrides a lookup parameter.
type LookupOption func(*LookupParams)

// WithMinConfidence overrides the caller minimum score (0..100).
func WithMinConfidence(v float64) LookupOption {
	return func(p *LookupParams) { p.MinConfidence = v }
}

// WithMaxResults overrides the number of matches returned.
func WithMaxResults(n int) LookupOption {
	return func(p *LookupParams) { p.MaxResults = n }
}

// LookupParams applies opts over the configured defaults.
func (s *Service) LookupParams(opts ...LookupOption) LookupParams {
	p := LookupParams{MinConfidence: s.cfg.MinConfidence, MaxResults: s.cfg.LookupMaxResults}
	for _, o := range opts {
		o(&p)
	}
	return p
}

// Lookup resolves a single candidate text (e.g. a typed or scanned medicine name).
func (s *Service) Lookup(ctx context.Context, text string, opts ...LookupOption) (res []dommatch.Result, err error) {
	p := s.LookupParams(opts...)
	if p.MinConfidence < 0 || p.MinConfidence > 100 {
		return nil, fmt.Errorf("%w: min_confidence must be within [0, 100]", domain.ErrInvalidInput)
	}
	if p.MaxResults < 1 {
		return nil, fmt.Errorf("%w: max_results must be positive", domain.ErrInvalidInput)
	}

	defer s.observe(ctx, candidate.ModeLookup, time.Now(), &res, &err)

	ix := s.snapshot(ctx)
	span := candidate.New(text, 0, -1, candidate.ModeLookup)
	rs, err := s.matchSafe(ctx, ix, span, p.MinConfidence)
	if err != nil {
		return nil, err
	}
	return dommatch.Finalize(rs, p.MaxResults), nil
}

// Extract resolves every medicine mentioned in a prescription text.
// Each line tries its structured candidates first; when none of them matches,
// token windows of decreasing size are tried until one matches.
func (s *Service) Extract(ctx context.Context, text string) (res []dommatch.Result, err error) {
	defer s.observe(ctx, candidate.ModeStructured, time.Now(), &res, &err)

	ix := s.snapshot(ctx)
	if ix.IsEmpty() {
		return nil, nil
	}
	stats := domain.StatsFromContext(ctx)

	var pool []dommatch.Result
	accepted := make(map[string]struct{})

	for _, line := range s.extractor.Lines(text) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		if len(accepted) >= s.cfg.MaxCandidatesAccepted {
			break
		}
		stats.AddLine()

		found, err := s.matchStructured(ctx, ix, line, &pool)
		if err != nil {
			return nil, err
		}
		if !found {
			if err := s.matchWindows(ctx, ix, line, &pool); err != nil {
				return nil, err
			}
		}
		for _, r := range pool {
			accepted[r.Key()] = struct{}{}
		}
	}

	return dommatch.Finalize(pool, s.cfg.DocumentMaxResults), nil
}

func (s *Service) matchStructured(
	ctx context.Context, ix *catalog.Index, line extract.Line, pool *[]dommatch.Result,
) (bool, error) {
	found := false
	for _, span := range line.Structured {
		rs, err := s.matchSafe(ctx, ix, span, s.cfg.StructuredMinConfidence)
		if err != nil {
			return false, err
		}
		for _, r := range rs {
			*pool = append(*pool, r.WithFields(span.Fields()))
		}
		found = found || len(rs) > 0
	}
	return found, nil
}

func (s *Service) matchWindows(ctx context.Context, ix *catalog.Index, line extract.Line, pool *[]dommatch.Result) error {
	for span := range line.Windows() {
		rs, err := s.matchSafe(ctx, ix, span, s.cfg.WindowMinConfidence)
		if err != nil {
			return err
		}
		if len(rs) > 0 {
			*pool = append(*pool, rs...)
			return nil
		}
	}
	return nil
}

// Strip resolves the medicine printed on a strip label. Word groups are tried
// at a lenient bar and single words at a strict one; results are pooled.
func (s *Service) Strip(ctx context.Context, text string) (res []dommatch.Result, err error) {
	defer s.observe(ctx, candidate.ModeStrip, time.Now(), &res, &err)

	ix := s.snapshot(ctx)
	if ix.IsEmpty() {
		return nil, nil
	}

	spans := extract.Strip(text, s.cfg.MaxStripWords)
	var pool []dommatch.Result

	passes := []struct {
		spans    []candidate.Span
		minScore float64
	}{
		{spans.Groups, s.cfg.StripGroupMinConfidence},
		{spans.Words, s.cfg.StripWordMinConfidence},
	}
	for _, pass := range passes {
		for _, span := range pass.spans {
			rs, err := s.matchSafe(ctx, ix, span, pass.minScore)
			if err != nil {
				return nil, err
			}
			pool = append(pool, rs...)
		}
	}

	return dommatch.Finalize(pool, s.cfg.DocumentMaxResults), nil
}

// snapshot returns the catalog for this call and warns when it is empty.
func (s *Service) snapshot(ctx context.Context) *catalog.Index {
	ix := s.Index()
	if ix.IsEmpty() {
		s.log(ctx).Warn("catalog is empty, resolution returns no matches",
			zap.String("source", ix.Source()))
	}
	return ix
}

// matchSafe scores one span. A panic or matcher error is logged and counted as zero
// matches for that span; only context cancellation is returned to the caller.
func (s *Service) matchSafe(
	ctx context.Context, ix *catalog.Index, span candidate.Span, minScore float64,
) (rs []dommatch.Result, err error) {
	stats := domain.StatsFromContext(ctx)
	stats.AddCandidate()
	metrics.CandidatesTotal.WithLabelValues(string(span.Mode())).Inc()

	defer func() {
		if r := recover(); r != nil {
			s.candidateFault(ctx, span, fmt.Errorf("%w: %v", domain.ErrCandidateFault, r))
			rs, err = nil, nil
		}
	}()

	rs, err = s.matcher.Match(ctx, ix, span.Text(), minScore)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("match candidate: %w", ctxErr)
		}
		s.candidateFault(ctx, span, err)
		return nil, nil
	}

	if len(rs) > 0 {
		s.log(ctx).Debug("candidate matched",
			zap.String("mode", string(span.Mode())),
			zap.String("candidate", span.Text()),
			zap.Int("line", span.Line()),
			zap.String("top", rs[0].Entry().BrandName()),
			zap.Float64("score", rs[0].Score()),
		)
	}
	return rs, nil
}

func (s *Service) candidateFault(ctx context.Context, span candidate.Span, err error) {
	domain.StatsFromContext(ctx).AddFault()
	metrics.CandidateFaultsTotal.WithLabelValues(string(span.Mode())).Inc()
	s.log(ctx).Warn("candidate skipped after fault",
		zap.String("mode", string(span.Mode())),
		zap.String("candidate", span.Text()),
		zap.Int("line", span.Line()),
		zap.Error(err),
	)
}

func (s *Service) observe(ctx context.Context, mode candidate.Mode, start time.Time, res *[]dommatch.Result, err *error) {
	m := string(mode)
	metrics.ResolveDuration.WithLabelValues(m).Observe(time.Since(start).Seconds())

	status := "matched"
	switch {
	case *err != nil:
		status = "error"
		if !errors.Is(*err, context.Canceled) && !errors.Is(*err, context.DeadlineExceeded) {
			s.log(ctx).Error("resolution failed", zap.String("mode", m), zap.Error(*err))
		}
	case len(*res) == 0:
		status = "empty"
	}
	metrics.ResolveRequestsTotal.WithLabelValues(m, status).Inc()
	if *err == nil {
		metrics.ResolveMatches.WithLabelValues(m).Observe(float64(len(*res)))
	}
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.logger)
}
