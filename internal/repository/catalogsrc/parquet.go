package catalogsrc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/medmatch/internal/domain"
	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
)

const parquetBatch = 1000

// Parquet reads a catalog from a Parquet file. Columns are matched by their
// top-level name; repeated (list) columns are joined with commas.
type Parquet struct {
	path string
}

// NewParquet creates a Parquet source.
func NewParquet(path string) *Parquet {
	return &Parquet{path: filepath.Clean(path)}
}

// Name returns the source kind.
func (s *Parquet) Name() string { return KindParquet }

// Read loads every row group in file order.
func (s *Parquet) Read(ctx context.Context) ([]domcat.Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, domain.NewCatalogLoadError(s.path, 0, fmt.Errorf("open: %w", err))
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, domain.NewCatalogLoadError(s.path, 0, fmt.Errorf("stat: %w", err))
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, domain.NewCatalogLoadError(s.path, 0, fmt.Errorf("open parquet: %w", err))
	}

	header := leafNames(pf.Schema())
	layout, err := newColumnLayout(header)
	if err != nil {
		return nil, domain.NewCatalogLoadError(s.path, 0, err)
	}

	var entries []domcat.Entry
	row := 0
	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		buf := make([]parquet.Row, parquetBatch)

		for {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("read parquet: %w", err)
			}
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				row++
				e, err := layout.entry(rowRecord(buf[i], len(header)))
				if err != nil {
					return nil, domain.NewCatalogLoadError(s.path, row, err)
				}
				entries = append(entries, e)
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, domain.NewCatalogLoadError(s.path, row, fmt.Errorf("read rows: %w", readErr))
			}
		}
	}
	return entries, nil
}

// leafNames returns the top-level name of each leaf column, indexed by column index.
func leafNames(schema *parquet.Schema) []string {
	cols := schema.Columns()
	names := make([]string, len(cols))
	for i, path := range cols {
		if len(path) > 0 {
			names[i] = path[0]
		}
	}
	return names
}

// rowRecord flattens a generic row into one cell per leaf column.
func rowRecord(row parquet.Row, width int) []string {
	parts := make([][]string, width)
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= width || v.IsNull() {
			continue
		}
		parts[col] = append(parts[col], v.String())
	}
	record := make([]string, width)
	for i, p := range parts {
		record[i] = strings.Join(p, ",")
	}
	return record
}
