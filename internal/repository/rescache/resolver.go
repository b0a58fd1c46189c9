package rescache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	"github.com/kailas-cloud/medmatch/internal/db"
	"github.com/kailas-cloud/medmatch/internal/domain"
	"github.com/kailas-cloud/medmatch/internal/domain/candidate"
	dommatch "github.com/kailas-cloud/medmatch/internal/domain/match"
	"github.com/kailas-cloud/medmatch/internal/usecase/resolve"
)

const cacheKeyPrefix = "medmatch:resolve_cache:"

// store is the consumer interface for the resolution cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// resolver is the decorated resolution service.
type resolver interface {
	Lookup(ctx context.Context, text string, opts ...resolve.LookupOption) ([]dommatch.Result, error)
	Extract(ctx context.Context, text string) ([]dommatch.Result, error)
	Strip(ctx context.Context, text string) ([]dommatch.Result, error)
	LookupParams(opts ...resolve.LookupOption) resolve.LookupParams
	Index() *catalog.Index
}

// CachedResolver caches resolution results in a key-value store.
// Keys include the index fingerprint, so a reload that changes the catalog
// content misses. Results are stored as catalog references and rehydrated
// from the current index.
type CachedResolver struct {
	inner      resolver
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner resolver,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResolver{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Lookup returns cached lookup results or resolves and caches them.
func (c *CachedResolver) Lookup(ctx context.Context, text string, opts ...resolve.LookupOption) ([]dommatch.Result, error) {
	p := c.inner.LookupParams(opts...)
	params := strconv.FormatFloat(p.MinConfidence, 'f', -1, 64) + "|" + strconv.Itoa(p.MaxResults)
	return c.cached(ctx, candidate.ModeLookup, params, text, func() ([]dommatch.Result, error) {
		return c.inner.Lookup(ctx, text, opts...)
	})
}

// Extract returns cached document results or resolves and caches them.
func (c *CachedResolver) Extract(ctx context.Context, text string) ([]dommatch.Result, error) {
	return c.cached(ctx, candidate.ModeStructured, "", text, func() ([]dommatch.Result, error) {
		return c.inner.Extract(ctx, text)
	})
}

// Strip returns cached strip results or resolves and caches them.
func (c *CachedResolver) Strip(ctx context.Context, text string) ([]dommatch.Result, error) {
	return c.cached(ctx, candidate.ModeStrip, "", text, func() ([]dommatch.Result, error) {
		return c.inner.Strip(ctx, text)
	})
}

func (c *CachedResolver) cached(
	ctx context.Context,
	mode candidate.Mode,
	params, text string,
	resolveFn func() ([]dommatch.Result, error),
) ([]dommatch.Result, error) {
	ix := c.inner.Index()
	key := c.cacheKey(mode, params, ix, text)

	if rs, ok := c.getFromCache(ctx, key, ix); ok {
		c.incCache("hit")
		domain.StatsFromContext(ctx).MarkCacheHit()
		return rs, nil
	}

	c.incCache("miss")

	rs, err := resolveFn()
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", mode, err)
	}

	// An empty catalog yields no matches; caching that would outlive a reload.
	if !ix.IsEmpty() {
		c.putToCache(ctx, key, rs)
	}
	return rs, nil
}

func (c *CachedResolver) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedResolver) cacheKey(mode candidate.Mode, params string, ix *catalog.Index, text string) string {
	h := sha256.New()
	for _, part := range []string{string(mode), params, ix.Source(), ix.Fingerprint(), text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// cachedResult references a catalog entry by load position and identity key.
type cachedResult struct {
	Ordinal int               `json:"o"`
	Key     string            `json:"k"`
	Score   float64           `json:"s"`
	Fields  *candidate.Fields `json:"f,omitempty"`
}

func (c *CachedResolver) getFromCache(ctx context.Context, key string, ix *catalog.Index) ([]dommatch.Result, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached resolution", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var stored []cachedResult
	if err := json.Unmarshal(data, &stored); err != nil {
		c.logger.Warn("Failed to parse cached resolution", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	rs := make([]dommatch.Result, 0, len(stored))
	for _, cr := range stored {
		if cr.Ordinal < 0 || cr.Ordinal >= ix.Len() {
			return nil, false
		}
		e := ix.At(cr.Ordinal)
		if e.Key() != cr.Key {
			return nil, false
		}
		rs = append(rs, dommatch.New(e, cr.Ordinal, cr.Score).WithFields(cr.Fields))
	}
	return rs, true
}

func (c *CachedResolver) putToCache(ctx context.Context, key string, rs []dommatch.Result) {
	stored := make([]cachedResult, len(rs))
	for i, r := range rs {
		stored[i] = cachedResult{Ordinal: r.Ordinal(), Key: r.Key(), Score: r.Rank(), Fields: r.Fields()}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		c.logger.Warn("Failed to encode resolution", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache resolution", zap.String("key", key), zap.Error(err))
	}
}
