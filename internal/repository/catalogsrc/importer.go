package catalogsrc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/db"
	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
)

// Importer replaces the catalog stored in Redis/Valkey with a new set of entries.
type Importer struct {
	target *Redis
	logger *zap.Logger
	now    func() time.Time
}

// NewImporter creates an importer writing under prefix.
func NewImporter(store db.HashStore, prefix string, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{target: NewRedis(store, prefix), logger: logger, now: time.Now}
}

// Import deletes the previous entries, writes entries in pipelined batches and
// records the metadata. It returns the number of entries written.
func (im *Importer) Import(ctx context.Context, entries []domcat.Entry) (int, error) {
	store := im.target.store

	old, err := store.Scan(ctx, im.target.entryPattern())
	if err != nil {
		return 0, fmt.Errorf("scan previous entries: %w", err)
	}
	for start := 0; start < len(old); start += redisBatch {
		end := min(start+redisBatch, len(old))
		if err := store.Del(ctx, old[start:end]...); err != nil {
			return 0, fmt.Errorf("delete previous entries: %w", err)
		}
	}

	var columns []string
	items := make([]db.HashSetItem, 0, min(len(entries), redisBatch))
	written := 0
	flush := func() error {
		if err := store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("write entries: %w", err)
		}
		written += len(items)
		items = items[:0]
		return nil
	}

	for i := range entries {
		e := &entries[i]
		if columns == nil {
			columns = e.ExtraKeys()
		}
		items = append(items, db.HashSetItem{Key: im.target.entryKey(i), Fields: entryFields(e, i)})
		if len(items) == redisBatch {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if len(items) > 0 {
		if err := flush(); err != nil {
			return written, err
		}
	}

	meta := map[string]string{
		metaColumns:    strings.Join(columns, ","),
		metaCount:      strconv.Itoa(written),
		metaImportedAt: im.now().UTC().Format(time.RFC3339),
	}
	if err := store.HSet(ctx, im.target.metaKey(), meta); err != nil {
		return written, fmt.Errorf("write catalog meta: %w", err)
	}

	im.logger.Info("catalog imported",
		zap.String("prefix", im.target.prefix),
		zap.Int("entries", written),
		zap.Int("replaced", len(old)),
	)
	return written, nil
}

func entryFields(e *domcat.Entry, ordinal int) map[string]string {
	fields := map[string]string{
		domcat.ColumnBrandName: e.BrandName(),
		domcat.ColumnGeneric:   e.Generic(),
		fieldOrdinal:           strconv.Itoa(ordinal),
	}
	if aliases := e.Aliases(); len(aliases) > 0 {
		fields[domcat.ColumnAliases] = strings.Join(aliases, ",")
	}
	extra := e.Extra()
	for _, k := range e.ExtraKeys() {
		fields[k] = extra[k]
	}
	return fields
}
