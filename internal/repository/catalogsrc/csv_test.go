package catalogsrc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/medmatch/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

func TestCSV_Read(t *testing.T) {
	p := writeFile(t, "catalog.csv", strings.Join([]string{
		"brand_name,generic,aliases,strength,manufacturer",
		`Dolo 650,Paracetamol,"dolo,dolo-650",650 mg,Micro Labs`,
		"Metformin,Metformin Hydrochloride,,500 mg,",
		"",
	}, "\n"))

	entries, err := NewCSV(p).Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	e := entries[0]
	if e.BrandName() != "Dolo 650" || e.Generic() != "Paracetamol" {
		t.Errorf("unexpected entry: %q / %q", e.BrandName(), e.Generic())
	}
	if got := e.Aliases(); len(got) != 2 || got[0] != "dolo" || got[1] != "dolo-650" {
		t.Errorf("unexpected aliases: %v", got)
	}
	if got := e.ExtraKeys(); len(got) != 2 || got[0] != "strength" || got[1] != "manufacturer" {
		t.Errorf("extra keys must keep column order, got %v", got)
	}
	if e.Extra()["strength"] != "650 mg" {
		t.Errorf("unexpected strength: %q", e.Extra()["strength"])
	}
	if len(entries[1].Aliases()) != 0 {
		t.Errorf("expected no aliases, got %v", entries[1].Aliases())
	}
}

func TestCSV_HeaderCaseAndBOM(t *testing.T) {
	p := writeFile(t, "catalog.csv", "\ufeffBrand_Name, Generic\nPan D,Pantoprazole\n")

	entries, err := NewCSV(p).Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].BrandName() != "Pan D" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		row     int
	}{
		{"missing brand column", "name,generic\nDolo,Paracetamol\n", 0},
		{"missing generic column", "brand_name,aliases\nDolo,dolo\n", 0},
		{"empty file", "", 0},
		{"empty brand", "brand_name,generic\nDolo,Paracetamol\n ,Ibuprofen\n", 2},
		{"bad quoting", "brand_name,generic\n\"Dolo,Paracetamol\n", 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := writeFile(t, "catalog.csv", tc.content)
			_, err := NewCSV(p).Read(context.Background())
			if !errors.Is(err, domain.ErrCatalogLoad) {
				t.Fatalf("expected ErrCatalogLoad, got %v", err)
			}
			var le *domain.CatalogLoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected CatalogLoadError, got %T", err)
			}
			if le.Row != tc.row {
				t.Errorf("expected row %d, got %d", tc.row, le.Row)
			}
		})
	}
}

func TestCSV_MissingFile(t *testing.T) {
	_, err := NewCSV(filepath.Join(t.TempDir(), "nope.csv")).Read(context.Background())
	if !errors.Is(err, domain.ErrCatalogLoad) {
		t.Fatalf("expected ErrCatalogLoad, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected the cause to be preserved, got %v", err)
	}
}

func TestCSV_Canceled(t *testing.T) {
	p := writeFile(t, "catalog.csv", "brand_name,generic\nDolo,Paracetamol\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSV(p).Read(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
