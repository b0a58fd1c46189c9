package main

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/medmatch/internal/config"
	"github.com/kailas-cloud/medmatch/internal/db"
)

const testCatalogCSV = `brand_name,generic,aliases,strength
Dolo 650,Paracetamol,dolo,650 mg
Metformin,Metformin Hydrochloride,glycomet,500 mg
Pan D,Pantoprazole,,40 mg
Azithral 250,Azithromycin,azithral,250 mg
`

// writeFixtures writes a catalog and a config pointing at it; returns the config path.
func writeFixtures(t *testing.T) (configPath, catalogPath string) {
	t.Helper()
	dir := t.TempDir()
	catalogPath = filepath.Join(dir, "catalog.csv")
	if err := os.WriteFile(catalogPath, []byte(testCatalogCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := "catalog:\n  source: csv\n  path: " + catalogPath + "\n" +
		"database:\n  addrs: [\"localhost:6379\"]\n"
	configPath = filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return configPath, catalogPath
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, d deps, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV", "test")
	cmd := newRootCmd(d)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// memStore is an in-memory db.Store.
type memStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	closed bool
}

func newMemStore() *memStore {
	return &memStore{hashes: make(map[string]map[string]string)}
}

func memDeps(s *memStore) deps {
	return deps{openStore: func(context.Context, config.DatabaseConfig) (db.Store, error) { return s, nil }}
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
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

func (m *memStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		_ = m.HSet(ctx, it.Key, it.Fields)
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i], _ = m.HGetAll(ctx, k)
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memStore) Get(context.Context, string) ([]byte, error) { return nil, db.ErrKeyNotFound }

func (m *memStore) SetWithTTL(context.Context, string, []byte, time.Duration) error { return nil }

func (m *memStore) Close() { m.closed = true }

func (m *memStore) WaitForReady(context.Context, time.Duration) error { return nil }
