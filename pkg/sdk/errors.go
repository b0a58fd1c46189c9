package medmatch

import (
	"errors"

	"github.com/kailas-cloud/medmatch/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrCatalogLoad  = domain.ErrCatalogLoad
	ErrInvalidInput = domain.ErrInvalidInput
)

// ErrNoCatalog is returned by New when neither WithCatalogFile nor WithEntries is given.
var ErrNoCatalog = errors.New("medmatch: catalog required (use WithCatalogFile or WithEntries)")
