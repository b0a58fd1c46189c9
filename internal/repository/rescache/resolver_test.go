package rescache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	"github.com/kailas-cloud/medmatch/internal/domain"
	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
	dommatch "github.com/kailas-cloud/medmatch/internal/domain/match"
	"github.com/kailas-cloud/medmatch/internal/usecase/resolve"
)

func TestExtract_MissThenHit(t *testing.T) {
	ix := testIndex(t, "Dolo 650", "Metformin")
	inner := &mockResolver{ix: ix, results: testResults(ix)}
	cr, ms := newTestCachedResolver(t, inner)
	ctx := context.Background()

	first, err := cr.Extract(ctx, "1. Metformin 500mg - Take twice daily")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms.data) != 1 {
		t.Fatalf("expected one cached entry, got %d", len(ms.data))
	}
	for _, ttl := range ms.ttls {
		if ttl != time.Hour {
			t.Errorf("expected ttl 1h, got %v", ttl)
		}
	}

	statsCtx, stats := domain.NewContextWithStats(ctx)
	second, err := cr.Extract(statsCtx, "1. Metformin 500mg - Take twice daily")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stats.CacheHit {
		t.Error("expected the hit to be recorded in request stats")
	}
	if inner.calls != 1 {
		t.Fatalf("expected inner to be called once, got %d", inner.calls)
	}
	if len(second) != len(first) {
		t.Fatalf("expected %d results, got %d", len(first), len(second))
	}
	for i := range first {
		if second[i].Key() != first[i].Key() || second[i].Score() != first[i].Score() {
			t.Errorf("result %d differs: %q %.2f vs %q %.2f",
				i, second[i].Key(), second[i].Score(), first[i].Key(), first[i].Score())
		}
	}
	f := second[0].Fields()
	if f == nil || f.Dosage != "500mg" || f.Timing != "Twice daily" {
		t.Errorf("expected fields to survive the cache, got %+v", f)
	}
	if second[1].Fields() != nil {
		t.Errorf("expected no fields, got %+v", second[1].Fields())
	}
}

func TestCacheKey_SeparatesModesAndParams(t *testing.T) {
	ix := testIndex(t, "Dolo 650", "Metformin")
	inner := &mockResolver{ix: ix, results: testResults(ix)}
	cr, ms := newTestCachedResolver(t, inner)
	ctx := context.Background()

	_, _ = cr.Extract(ctx, "dolo")
	_, _ = cr.Strip(ctx, "dolo")
	_, _ = cr.Lookup(ctx, "dolo")
	_, _ = cr.Lookup(ctx, "dolo", resolve.WithMinConfidence(70))
	_, _ = cr.Lookup(ctx, "dolo", resolve.WithMaxResults(1))

	if len(ms.data) != 5 {
		t.Fatalf("expected 5 distinct keys, got %d", len(ms.data))
	}
	if inner.calls != 5 {
		t.Fatalf("expected 5 inner calls, got %d", inner.calls)
	}
}

func TestCache_StaleAfterCatalogChange(t *testing.T) {
	ix := testIndex(t, "Dolo 650", "Metformin")
	inner := &mockResolver{ix: ix, results: testResults(ix)}
	cr, _ := newTestCachedResolver(t, inner)
	ctx := context.Background()

	if _, err := cr.Extract(ctx, "metformin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same source and size, different entries: references no longer resolve.
	reordered := testIndex(t, "Metformin", "Dolo 650")
	inner.ix = reordered
	inner.results = testResults(reordered)

	rs, err := cr.Extract(ctx, "metformin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected a miss after catalog change, got %d inner calls", inner.calls)
	}
	if rs[0].Entry().BrandName() != "Dolo 650" {
		t.Errorf("expected fresh result, got %q", rs[0].Entry().BrandName())
	}
}

func TestCache_ReloadWithEditedAliasesMisses(t *testing.T) {
	entry := func(alias string) *catalog.Index {
		e, err := domcat.New("Dolo650", "Paracetamol", []string{alias}, nil, nil)
		if err != nil {
			t.Fatalf("new entry: %v", err)
		}
		return catalog.New("csv", []domcat.Entry{e})
	}
	before := entry("calpol")
	inner := &mockResolver{ix: before}
	cr, _ := newTestCachedResolver(t, inner)
	ctx := context.Background()

	rs, err := cr.Lookup(ctx, "crocin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rs) != 0 {
		t.Fatalf("expected no match before reload, got %d", len(rs))
	}

	after := entry("crocin")
	if after.Fingerprint() == before.Fingerprint() {
		t.Fatal("edited aliases must change the fingerprint")
	}
	inner.ix = after
	inner.results = []dommatch.Result{dommatch.New(after.At(0), 0, 1)}

	rs, err = cr.Lookup(ctx, "crocin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected a miss after reload, got %d inner calls", inner.calls)
	}
	if len(rs) != 1 {
		t.Errorf("expected the reloaded match, got %d results", len(rs))
	}
}

func TestCache_EmptyCatalogNotCached(t *testing.T) {
	inner := &mockResolver{ix: catalog.Empty("csv")}
	cr, ms := newTestCachedResolver(t, inner)

	if _, err := cr.Lookup(context.Background(), "dolo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms.data) != 0 {
		t.Fatalf("expected nothing cached, got %d", len(ms.data))
	}
}

func TestCache_InnerErrorNotCached(t *testing.T) {
	ix := testIndex(t, "Dolo 650")
	inner := &mockResolver{ix: ix, err: context.Canceled}
	cr, ms := newTestCachedResolver(t, inner)

	_, err := cr.Extract(context.Background(), "dolo")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(ms.data) != 0 {
		t.Fatalf("expected nothing cached, got %d", len(ms.data))
	}
}

func TestCache_StoreFailuresAreNotFatal(t *testing.T) {
	ix := testIndex(t, "Dolo 650", "Metformin")
	inner := &mockResolver{ix: ix, results: testResults(ix)}
	core, logs := observer.New(zapcore.WarnLevel)
	ms := newMockKVStore()
	ms.getErr = errors.New("connection refused")
	ms.setErr = errors.New("connection refused")
	cr := New(inner, ms, time.Hour, nil, zap.New(core))

	rs, err := cr.Strip(context.Background(), "dolo 650 tablets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rs) != 2 {
		t.Fatalf("expected inner results, got %d", len(rs))
	}
	if logs.FilterMessage("Failed to get cached resolution").Len() != 1 {
		t.Error("expected a warning for the failed read")
	}
	if logs.FilterMessage("Failed to cache resolution").Len() != 1 {
		t.Error("expected a warning for the failed write")
	}
}

func TestCache_CorruptPayloadIsMiss(t *testing.T) {
	ix := testIndex(t, "Dolo 650", "Metformin")
	inner := &mockResolver{ix: ix, results: testResults(ix)}
	cr, ms := newTestCachedResolver(t, inner)
	ctx := context.Background()

	if _, err := cr.Extract(ctx, "dolo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for k := range ms.data {
		ms.data[k] = []byte("{not json")
	}
	if _, err := cr.Extract(ctx, "dolo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected corrupt payload to miss, got %d inner calls", inner.calls)
	}
}

func TestCache_Metrics(t *testing.T) {
	ix := testIndex(t, "Dolo 650", "Metformin")
	inner := &mockResolver{ix: ix, results: testResults(ix)}
	total := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	cr := New(inner, newMockKVStore(), time.Hour, total, nil)
	ctx := context.Background()

	_, _ = cr.Extract(ctx, "dolo")
	_, _ = cr.Extract(ctx, "dolo")
	_, _ = cr.Extract(ctx, "dolo")

	if got := testutil.ToFloat64(total.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(total.WithLabelValues("hit")); got != 2 {
		t.Errorf("expected 2 hits, got %v", got)
	}
}
