package catalogsrc

import (
	"context"
	"path"
	"sort"
	"sync"

	"github.com/kailas-cloud/medmatch/internal/db"
)

// memHashStore is an in-memory db.HashStore for tests.
type memHashStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string

	scanErr  error
	hsetErr  error
	multiErr error
	delCalls int
}

func newMemHashStore() *memHashStore {
	return &memHashStore{hashes: make(map[string]map[string]string)}
}

func (m *memHashStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memHashStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.multiErr != nil {
		return m.multiErr
	}
	for _, it := range items {
		if err := m.HSet(ctx, it.Key, it.Fields); err != nil {
			return err
		}
	}
	return nil
}

func (m *memHashStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memHashStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i], _ = m.HGetAll(ctx, k)
	}
	return out, nil
}

func (m *memHashStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delCalls++
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}

func (m *memHashStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	// SCAN gives no order guarantee; reverse-sort to make ordering bugs visible.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}
