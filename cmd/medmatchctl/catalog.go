package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	"github.com/kailas-cloud/medmatch/internal/db"
	"github.com/kailas-cloud/medmatch/internal/repository/catalogsrc"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the Redis/Valkey catalog",
	}
	cmd.AddCommand(newCatalogImportCmd(), newCatalogStatsCmd())
	return cmd
}

func newCatalogImportCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored catalog with a CSV or Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cc.withTimeout(cmd.Context())
			defer cancel()

			path, k := args[0], kind
			if k == "" {
				k = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
			}
			if k == catalogsrc.KindRedis {
				return fmt.Errorf("import source must be a file, got %q", k)
			}
			src, err := catalogsrc.New(k, path, nil, "")
			if err != nil {
				return err //nolint:wrapcheck // already names the kind
			}

			ix, err := catalog.Load(ctx, src, cc.logger)
			if err != nil {
				return err //nolint:wrapcheck // carries source and row
			}

			store, err := cc.store(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := catalogsrc.NewImporter(store, cc.cfg.Catalog.KeyPrefix, cc.logger).Import(ctx, ix.Entries())
			if err != nil {
				return fmt.Errorf("import catalog: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries from %s\n", n, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "file format (csv, parquet); default from extension")
	return cmd
}

func newCatalogStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show what the stored catalog holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cc.withTimeout(cmd.Context())
			defer cancel()

			store, err := cc.store(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			meta, err := catalogsrc.NewRedis(store, cc.cfg.Catalog.KeyPrefix).Meta(ctx)
			if err != nil {
				return err //nolint:wrapcheck // already wrapped by the source
			}

			out := cmd.OutOrStdout()
			if meta.ImportedAt.IsZero() {
				fmt.Fprintln(out, "no catalog imported")
				return nil
			}
			fmt.Fprintf(out, "entries:     %d\n", meta.Count)
			fmt.Fprintf(out, "columns:     %s\n", strings.Join(meta.Columns, ", "))
			fmt.Fprintf(out, "imported at: %s\n", meta.ImportedAt.Format(time.RFC3339))
			return nil
		},
	}
}

// store opens the configured database.
func (cc *cliContext) store(cmd *cobra.Command) (db.Store, error) {
	if len(cc.cfg.Database.Addrs) == 0 {
		return nil, fmt.Errorf("database.addrs is required for catalog commands")
	}
	store, err := cc.deps.openStore(cmd.Context(), cc.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	cc.logger.Debug("connected to database",
		zap.String("driver", cc.cfg.Database.Driver),
		zap.Strings("addrs", cc.cfg.Database.Addrs))
	return store, nil
}
