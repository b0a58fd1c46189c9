package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCatalogLoad signals an unreadable or malformed catalog source.
	ErrCatalogLoad = errors.New("catalog load failed")
	// ErrUnknownSource signals an unsupported catalog source kind.
	ErrUnknownSource = errors.New("unknown catalog source")
	// ErrInvalidInput signals a request that cannot be processed (e.g. empty text).
	ErrInvalidInput = errors.New("invalid input")
	// ErrCandidateFault signals an internal fault while scoring a single candidate.
	ErrCandidateFault = errors.New("candidate fault")
)

// CatalogLoadError wraps ErrCatalogLoad with the source and the failing row (0 = whole source).
type CatalogLoadError struct {
	Source string
	Row    int
	Err    error
}

func (e *CatalogLoadError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s: %s row %d: %v", ErrCatalogLoad.Error(), e.Source, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCatalogLoad.Error(), e.Source, e.Err)
}

// Unwrap makes errors.Is(err, ErrCatalogLoad) and the underlying cause both match.
func (e *CatalogLoadError) Unwrap() []error { return []error{ErrCatalogLoad, e.Err} }

// NewCatalogLoadError creates a catalog load error.
func NewCatalogLoadError(source string, row int, err error) error {
	return &CatalogLoadError{Source: source, Row: row, Err: err}
}
