// Package catalogsrc reads the medicine catalog from files and from Redis/Valkey hashes.
package catalogsrc

import (
	"fmt"
	"strings"

	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
)

// Source kinds accepted by New.
const (
	KindCSV     = "csv"
	KindParquet = "parquet"
	KindRedis   = "redis"
)

// columnLayout maps a header to the required columns and the passthrough extras.
type columnLayout struct {
	brand   int
	generic int
	aliases int
	extra   []int
	header  []string
}

func newColumnLayout(header []string) (columnLayout, error) {
	l := columnLayout{brand: -1, generic: -1, aliases: -1, header: make([]string, len(header))}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		l.header[i] = name
		switch name {
		case domcat.ColumnBrandName:
			l.brand = i
		case domcat.ColumnGeneric:
			l.generic = i
		case domcat.ColumnAliases:
			l.aliases = i
		case "":
		default:
			l.extra = append(l.extra, i)
		}
	}
	if l.brand < 0 {
		return columnLayout{}, fmt.Errorf("missing required column %q", domcat.ColumnBrandName)
	}
	if l.generic < 0 {
		return columnLayout{}, fmt.Errorf("missing required column %q", domcat.ColumnGeneric)
	}
	return l, nil
}

// extraKeys returns passthrough column names in header order.
func (l columnLayout) extraKeys() []string {
	keys := make([]string, len(l.extra))
	for i, idx := range l.extra {
		keys[i] = l.header[idx]
	}
	return keys
}

// entry builds an Entry from one record aligned with the header.
func (l columnLayout) entry(record []string) (domcat.Entry, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return record[i]
	}

	extra := make(map[string]string, len(l.extra))
	for _, idx := range l.extra {
		extra[l.header[idx]] = cell(idx)
	}

	e, err := domcat.New(
		cell(l.brand),
		cell(l.generic),
		domcat.ParseAliases(cell(l.aliases)),
		l.extraKeys(),
		extra,
	)
	if err != nil {
		return domcat.Entry{}, fmt.Errorf("build entry: %w", err)
	}
	return e, nil
}
