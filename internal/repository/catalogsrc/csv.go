package catalogsrc

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/medmatch/internal/domain"
	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
)

// CSV reads a catalog from a CSV file with a header row.
type CSV struct {
	path string
}

// NewCSV creates a CSV source.
func NewCSV(path string) *CSV {
	return &CSV{path: filepath.Clean(path)}
}

// Name returns the source kind.
func (s *CSV) Name() string { return KindCSV }

// Read parses the whole file. Any malformed row fails the load.
func (s *CSV) Read(ctx context.Context) ([]domcat.Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, domain.NewCatalogLoadError(s.path, 0, fmt.Errorf("open: %w", err))
	}
	defer func() { _ = f.Close() }()

	return s.decode(ctx, f)
}

func (s *CSV) decode(ctx context.Context, r io.Reader) ([]domcat.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty file")
		}
		return nil, domain.NewCatalogLoadError(s.path, 0, fmt.Errorf("read header: %w", err))
	}
	layout, err := newColumnLayout(header)
	if err != nil {
		return nil, domain.NewCatalogLoadError(s.path, 0, err)
	}

	var entries []domcat.Entry
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewCatalogLoadError(s.path, row, err)
		}
		e, err := layout.entry(record)
		if err != nil {
			return nil, domain.NewCatalogLoadError(s.path, row, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
