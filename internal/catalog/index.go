// Package catalog holds the read-only in-memory medicine index shared by all resolution calls.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/domain"
	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
)

// Source reads catalog entries from an external store.
type Source interface {
	Name() string
	Read(ctx context.Context) ([]domcat.Entry, error)
}

// Index is an immutable, load-ordered set of catalog entries.
// Safe for concurrent use without locking.
type Index struct {
	entries     []domcat.Entry
	source      string
	fingerprint string
}

// New builds an Index over entries. Later duplicates of a brand (case-insensitive)
// are kept; deduplication happens on results, not on the catalog.
func New(source string, entries []domcat.Entry) *Index {
	entries = append([]domcat.Entry(nil), entries...)
	return &Index{
		entries:     entries,
		source:      source,
		fingerprint: fingerprint(entries),
	}
}

// Empty returns an index with no entries.
func Empty(source string) *Index {
	return &Index{source: source, fingerprint: fingerprint(nil)}
}

// fingerprint hashes every matchable and reported field in load order.
func fingerprint(entries []domcat.Entry) string {
	h := sha256.New()
	field := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	for _, e := range entries {
		field(e.BrandName())
		field(e.Generic())
		for _, a := range e.Aliases() {
			field(a)
		}
		field("\x1f")
		for _, k := range e.ExtraKeys() {
			field(k)
			field(e.Extra()[k])
		}
		field("\x1e")
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Load reads src into a new Index. On failure it returns an empty, non-nil Index
// together with an error wrapping domain.ErrCatalogLoad, so callers can keep serving.
func Load(ctx context.Context, src Source, logger *zap.Logger) (*Index, error) {
	if src == nil {
		return Empty(""), fmt.Errorf("load catalog: %w", domain.ErrUnknownSource)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := src.Read(ctx)
	if err != nil {
		logger.Warn("catalog load failed, serving empty index",
			zap.String("source", src.Name()), zap.Error(err))
		if !errors.Is(err, domain.ErrCatalogLoad) {
			err = domain.NewCatalogLoadError(src.Name(), 0, err)
		}
		return Empty(src.Name()), err
	}

	logger.Info("catalog loaded",
		zap.String("source", src.Name()), zap.Int("entries", len(entries)))
	return New(src.Name(), entries), nil
}

// Entries returns entries in load order. Callers must not modify the slice.
func (ix *Index) Entries() []domcat.Entry { return ix.entries }

// Len returns the number of entries.
func (ix *Index) Len() int { return len(ix.entries) }

// At returns the i-th entry in load order.
func (ix *Index) At(i int) domcat.Entry { return ix.entries[i] }

// Source returns the name of the store the index was loaded from.
func (ix *Index) Source() string { return ix.source }

// Fingerprint identifies the index content. Two loads with identical entries
// in the same order share a fingerprint.
func (ix *Index) Fingerprint() string { return ix.fingerprint }

// IsEmpty reports whether the index has no entries.
func (ix *Index) IsEmpty() bool { return ix == nil || len(ix.entries) == 0 }
