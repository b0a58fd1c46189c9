package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/app"
	"github.com/kailas-cloud/medmatch/internal/config"
	"github.com/kailas-cloud/medmatch/internal/db"
	logpkg "github.com/kailas-cloud/medmatch/internal/logger"
	"github.com/kailas-cloud/medmatch/internal/version"
)

// deps holds the collaborators commands open at run time.
type deps struct {
	openStore func(ctx context.Context, cfg config.DatabaseConfig) (db.Store, error)
}

func defaultDeps() deps {
	return deps{openStore: app.OpenStore}
}

// rootOptions holds global flags.
type rootOptions struct {
	configPath string
	catalog    string
	output     string
	verbose    bool
	timeout    time.Duration
}

// cliContext carries loaded configuration through the command tree.
type cliContext struct {
	cfg    config.Config
	logger *zap.Logger
	opts   *rootOptions
	deps   deps
}

type cliContextKey struct{}

func newRootCmd(d deps) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "medmatchctl",
		Short:   "Resolve medicine names against a catalog",
		Long:    "medmatchctl matches prescription text, strip labels and typed medicine names\nagainst a reference catalog, and imports catalogs into Redis or Valkey.",
		Version: version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, opts, d)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path (default: config/<ENV>.yaml when present)")
	pf.StringVar(&opts.catalog, "catalog", "", "catalog file, overrides catalog.path from config")
	pf.StringVarP(&opts.output, "output", "o", "json", "output format (json, table)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	pf.DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")

	cmd.AddCommand(
		newResolveCmd(),
		newDocumentCmd("extract", "Extract medicines from prescription text"),
		newDocumentCmd("strip", "Identify the medicine on a strip or box label"),
		newCatalogCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *rootOptions, d deps) error {
	if opts.output != "json" && opts.output != "table" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if opts.verbose {
		level = "debug"
	}
	logger, err := logpkg.NewLogger(config.GetEnv(), level)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cc := &cliContext{cfg: cfg, logger: logger, opts: opts, deps: d}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))
	return nil
}

// loadConfig reads an explicit config file, or the ENV config when one exists,
// or falls back to defaults.
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("config initialization failed: %w", err)
		}
		return cfg, nil
	}
	if cfg, err := config.Load(config.GetEnv()); err == nil {
		return cfg, nil
	}
	var cfg config.Config
	cfg.ApplyDefaults()
	return cfg, nil
}

func getCLIContext(cmd *cobra.Command) (*cliContext, error) {
	cc, ok := cmd.Context().Value(cliContextKey{}).(*cliContext)
	if !ok {
		return nil, fmt.Errorf("cli context not initialized")
	}
	return cc, nil
}

// sdkLogger returns a debug slog logger on --verbose, nil otherwise.
func (cc *cliContext) sdkLogger() *slog.Logger {
	if !cc.opts.verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (cc *cliContext) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, cc.opts.timeout)
}
