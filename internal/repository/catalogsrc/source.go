package catalogsrc

import (
	"fmt"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	"github.com/kailas-cloud/medmatch/internal/db"
	"github.com/kailas-cloud/medmatch/internal/domain"
)

// New returns the catalog source for kind. File kinds need path; the redis kind needs store.
func New(kind, path string, store db.HashStore, prefix string) (catalog.Source, error) {
	switch kind {
	case KindCSV:
		return NewCSV(path), nil
	case KindParquet:
		return NewParquet(path), nil
	case KindRedis:
		if store == nil {
			return nil, fmt.Errorf("%w: redis source requires a database", domain.ErrUnknownSource)
		}
		return NewRedis(store, prefix), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSource, kind)
	}
}
