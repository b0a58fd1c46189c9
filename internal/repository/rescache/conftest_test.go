package rescache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	"github.com/kailas-cloud/medmatch/internal/db"
	"github.com/kailas-cloud/medmatch/internal/domain/candidate"
	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
	dommatch "github.com/kailas-cloud/medmatch/internal/domain/match"
	"github.com/kailas-cloud/medmatch/internal/usecase/resolve"
)

type mockResolver struct {
	ix      *catalog.Index
	results []dommatch.Result
	err     error
	calls   int
}

func (m *mockResolver) Lookup(_ context.Context, _ string, _ ...resolve.LookupOption) ([]dommatch.Result, error) {
	m.calls++
	return m.results, m.err
}

func (m *mockResolver) Extract(_ context.Context, _ string) ([]dommatch.Result, error) {
	m.calls++
	return m.results, m.err
}

func (m *mockResolver) Strip(_ context.Context, _ string) ([]dommatch.Result, error) {
	m.calls++
	return m.results, m.err
}

func (m *mockResolver) LookupParams(opts ...resolve.LookupOption) resolve.LookupParams {
	p := resolve.LookupParams{MinConfidence: 40, MaxResults: 3}
	for _, o := range opts {
		o(&p)
	}
	return p
}

func (m *mockResolver) Index() *catalog.Index { return m.ix }

// mockKVStore is an in-memory store implementing the consumer interface.
type mockKVStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func testIndex(t *testing.T, brands ...string) *catalog.Index {
	t.Helper()
	entries := make([]domcat.Entry, 0, len(brands))
	for _, b := range brands {
		e, err := domcat.New(b, "generic "+b, nil, nil, nil)
		if err != nil {
			t.Fatalf("new entry: %v", err)
		}
		entries = append(entries, e)
	}
	return catalog.New("csv", entries)
}

func testResults(ix *catalog.Index) []dommatch.Result {
	return []dommatch.Result{
		dommatch.New(ix.At(1), 1, 0.95).WithFields(&candidate.Fields{Dosage: "500mg", Timing: "Twice daily"}),
		dommatch.New(ix.At(0), 0, 0.62),
	}
}

func newTestCachedResolver(t *testing.T, inner *mockResolver) (*CachedResolver, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(inner, ms, time.Hour, nil, zap.NewNop()), ms
}
