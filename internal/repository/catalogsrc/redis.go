package catalogsrc

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/medmatch/internal/db"
	"github.com/kailas-cloud/medmatch/internal/domain"
	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
)

// DefaultKeyPrefix namespaces catalog keys in Redis/Valkey.
const DefaultKeyPrefix = "medmatch:catalog:"

const (
	fieldOrdinal = "_ordinal"

	metaColumns    = "columns"
	metaCount      = "count"
	metaImportedAt = "imported_at"

	redisBatch = 500
)

// Meta describes an imported catalog.
type Meta struct {
	Columns    []string
	Count      int
	ImportedAt time.Time
}

// Redis reads a catalog stored as one hash per entry under a key prefix.
type Redis struct {
	store  db.HashStore
	prefix string
}

// NewRedis creates a Redis source. An empty prefix falls back to DefaultKeyPrefix.
func NewRedis(store db.HashStore, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{store: store, prefix: prefix}
}

// Name returns the source kind.
func (s *Redis) Name() string { return KindRedis }

func (s *Redis) entryKey(ordinal int) string { return s.prefix + "entry:" + strconv.Itoa(ordinal) }
func (s *Redis) entryPattern() string        { return s.prefix + "entry:*" }
func (s *Redis) metaKey() string             { return s.prefix + "meta" }

// Meta returns the import metadata. A catalog that was never imported yields a zero Meta.
func (s *Redis) Meta(ctx context.Context) (Meta, error) {
	fields, err := s.store.HGetAll(ctx, s.metaKey())
	if err != nil {
		return Meta{}, fmt.Errorf("read catalog meta: %w", err)
	}
	var m Meta
	if cols := fields[metaColumns]; cols != "" {
		m.Columns = strings.Split(cols, ",")
	}
	if c := fields[metaCount]; c != "" {
		if m.Count, err = strconv.Atoi(c); err != nil {
			return Meta{}, fmt.Errorf("parse catalog meta count %q: %w", c, err)
		}
	}
	if ts := fields[metaImportedAt]; ts != "" {
		if m.ImportedAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return Meta{}, fmt.Errorf("parse catalog meta imported_at %q: %w", ts, err)
		}
	}
	return m, nil
}

type storedEntry struct {
	ordinal int
	fields  map[string]string
}

// Read loads every entry hash and restores import order.
func (s *Redis) Read(ctx context.Context) ([]domcat.Entry, error) {
	meta, err := s.Meta(ctx)
	if err != nil {
		return nil, domain.NewCatalogLoadError(s.prefix, 0, err)
	}

	keys, err := s.store.Scan(ctx, s.entryPattern())
	if err != nil {
		return nil, domain.NewCatalogLoadError(s.prefix, 0, fmt.Errorf("scan entries: %w", err))
	}

	stored := make([]storedEntry, 0, len(keys))
	for start := 0; start < len(keys); start += redisBatch {
		end := min(start+redisBatch, len(keys))
		hashes, err := s.store.HGetAllMulti(ctx, keys[start:end])
		if err != nil {
			return nil, domain.NewCatalogLoadError(s.prefix, 0, fmt.Errorf("fetch entries: %w", err))
		}
		for i, h := range hashes {
			if len(h) == 0 {
				continue // deleted between SCAN and HGETALL
			}
			ord, err := strconv.Atoi(h[fieldOrdinal])
			if err != nil {
				return nil, domain.NewCatalogLoadError(s.prefix, 0,
					fmt.Errorf("key %s: bad %s %q", keys[start+i], fieldOrdinal, h[fieldOrdinal]))
			}
			stored = append(stored, storedEntry{ordinal: ord, fields: h})
		}
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].ordinal < stored[j].ordinal })

	entries := make([]domcat.Entry, 0, len(stored))
	for _, se := range stored {
		extraKeys := meta.Columns
		if extraKeys == nil {
			extraKeys = extraFieldNames(se.fields)
		}
		extra := make(map[string]string, len(extraKeys))
		for _, k := range extraKeys {
			extra[k] = se.fields[k]
		}
		e, err := domcat.New(
			se.fields[domcat.ColumnBrandName],
			se.fields[domcat.ColumnGeneric],
			domcat.ParseAliases(se.fields[domcat.ColumnAliases]),
			extraKeys,
			extra,
		)
		if err != nil {
			return nil, domain.NewCatalogLoadError(s.prefix, se.ordinal+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// extraFieldNames lists passthrough fields of a hash in name order.
func extraFieldNames(fields map[string]string) []string {
	var names []string
	for k := range fields {
		switch k {
		case domcat.ColumnBrandName, domcat.ColumnGeneric, domcat.ColumnAliases, fieldOrdinal:
		default:
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}
