package health

import "context"

// DBPinger checks cache/catalog store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// CatalogReader reports the size of the loaded catalog index.
type CatalogReader interface {
	Len() int
}

// CatalogProvider returns the current catalog snapshot.
type CatalogProvider func() CatalogReader
