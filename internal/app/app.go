// Package app wires configuration into the resolution stack shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	"github.com/kailas-cloud/medmatch/internal/config"
	"github.com/kailas-cloud/medmatch/internal/db"
	dbRedis "github.com/kailas-cloud/medmatch/internal/db/redis"
	"github.com/kailas-cloud/medmatch/internal/extract"
	"github.com/kailas-cloud/medmatch/internal/match"
	"github.com/kailas-cloud/medmatch/internal/repository/catalogsrc"
	"github.com/kailas-cloud/medmatch/internal/usecase/resolve"
)

// OpenStore connects to Redis/Valkey and waits until it answers.
// Both drivers speak the same protocol and share one client.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "valkey", "redis":
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Addrs,
		Username:   cfg.Username,
		Password:   cfg.Password,
		DB:         cfg.DB,
		Standalone: cfg.Standalone,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}
	return store, nil
}

// CatalogSource returns the configured catalog source. store may be nil for file sources.
func CatalogSource(cfg config.CatalogConfig, store db.HashStore) (catalog.Source, error) {
	src, err := catalogsrc.New(cfg.Source, cfg.Path, store, cfg.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("catalog source: %w", err)
	}
	return src, nil
}

// ResolveConfig maps the resolver section onto the service policy.
func ResolveConfig(cfg config.ResolverConfig) resolve.Config {
	return resolve.Config{
		MinConfidence:           cfg.MinConfidence,
		LookupMaxResults:        cfg.LookupMaxResults,
		DocumentMaxResults:      cfg.DocumentMaxResults,
		MaxCandidatesAccepted:   cfg.MaxCandidatesAccepted,
		StructuredMinConfidence: cfg.StructuredMinConfidence,
		WindowMinConfidence:     cfg.WindowMinConfidence,
		StripGroupMinConfidence: cfg.StripGroupMinConfidence,
		StripWordMinConfidence:  cfg.StripWordMinConfidence,
		MaxStripWords:           cfg.MaxStripWords,
	}
}

// NewResolver builds the resolution service over ix.
func NewResolver(ix *catalog.Index, cfg config.ResolverConfig, logger *zap.Logger) *resolve.Service {
	return resolve.New(
		ix,
		extract.New(extract.WithMaxLines(cfg.MaxLinesScanned)),
		match.New(cfg.Parallelism),
		ResolveConfig(cfg),
		logger,
	)
}
