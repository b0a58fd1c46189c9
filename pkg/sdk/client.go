package medmatch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/medmatch/internal/catalog"
	domcat "github.com/kailas-cloud/medmatch/internal/domain/catalog"
	dommatch "github.com/kailas-cloud/medmatch/internal/domain/match"
	"github.com/kailas-cloud/medmatch/internal/extract"
	"github.com/kailas-cloud/medmatch/internal/match"
	"github.com/kailas-cloud/medmatch/internal/repository/catalogsrc"
	"github.com/kailas-cloud/medmatch/internal/usecase/resolve"
)

// Internal interface for substitution in tests.
type resolveUseCase interface {
	Lookup(ctx context.Context, text string, opts ...resolve.LookupOption) ([]dommatch.Result, error)
	Extract(ctx context.Context, text string) ([]dommatch.Result, error)
	Strip(ctx context.Context, text string) ([]dommatch.Result, error)
	SwapIndex(ix *catalog.Index)
	Index() *catalog.Index
}

// Client is the medmatch SDK entry point. Safe for concurrent use.
type Client struct {
	svc    resolveUseCase
	source catalog.Source
	obs    *observer
}

// New loads the catalog and builds a Client.
// Unlike the server, a catalog that fails to load is an error here.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	src, err := catalogSource(cfg)
	if err != nil {
		return nil, err
	}

	ix, err := catalog.Load(ctx, src, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("medmatch: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var extractOpts []extract.Option
	if cfg.maxLines > 0 {
		extractOpts = append(extractOpts, extract.WithMaxLines(cfg.maxLines))
	}
	svc := resolve.New(ix, extract.New(extractOpts...), match.New(cfg.parallelism), resolveConfig(cfg), zap.NewNop())

	if cfg.logger != nil {
		cfg.logger.Info("catalog loaded", "source", ix.Source(), "entries", ix.Len())
	}
	return &Client{svc: svc, source: src, obs: obs}, nil
}

func resolveConfig(cfg *clientConfig) resolve.Config {
	rc := resolve.DefaultConfig()
	if cfg.minConfidence > 0 {
		rc.MinConfidence = cfg.minConfidence
	}
	if cfg.maxResults > 0 {
		rc.LookupMaxResults = cfg.maxResults
	}
	return rc
}

func catalogSource(cfg *clientConfig) (catalog.Source, error) {
	if cfg.hasEntries {
		entries, err := toDomainEntries(cfg.entries)
		if err != nil {
			return nil, fmt.Errorf("medmatch: invalid entry: %w", err)
		}
		return memorySource(entries), nil
	}
	if cfg.catalogPath == "" {
		return nil, ErrNoCatalog
	}

	kind := strings.TrimPrefix(strings.ToLower(filepath.Ext(cfg.catalogPath)), ".")
	src, err := catalogsrc.New(kind, cfg.catalogPath, nil, "")
	if err != nil {
		return nil, fmt.Errorf("medmatch: catalog file %q: %w", cfg.catalogPath, err)
	}
	return src, nil
}

// memorySource serves entries given through WithEntries.
type memorySource []domcat.Entry

func (memorySource) Name() string { return "memory" }

func (s memorySource) Read(context.Context) ([]domcat.Entry, error) {
	return s, nil
}

// Lookup resolves a single medicine name. Defaults: threshold 40, top 3.
func (c *Client) Lookup(ctx context.Context, text string, opts ...LookupOption) (ms []Match, err error) {
	start := time.Now()
	defer func() { c.obs.observe("lookup", start, len(ms), err) }()

	if err := checkText(text); err != nil {
		return nil, err
	}

	var lc lookupConfig
	for _, o := range opts {
		o(&lc)
	}
	var ro []resolve.LookupOption
	if lc.minConfidence != nil {
		ro = append(ro, resolve.WithMinConfidence(*lc.minConfidence))
	}
	if lc.maxResults != nil {
		ro = append(ro, resolve.WithMaxResults(*lc.maxResults))
	}

	rs, err := c.svc.Lookup(ctx, text, ro...)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	return toMatches(rs), nil
}

// Extract resolves every medicine in a prescription, with dosage, timing and
// instructions where the line carried them.
func (c *Client) Extract(ctx context.Context, text string) (ms []Match, err error) {
	start := time.Now()
	defer func() { c.obs.observe("extract", start, len(ms), err) }()

	if err := checkText(text); err != nil {
		return nil, err
	}
	rs, err := c.svc.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return toMatches(rs), nil
}

// Strip resolves the medicine printed on a strip or box label.
func (c *Client) Strip(ctx context.Context, text string) (ms []Match, err error) {
	start := time.Now()
	defer func() { c.obs.observe("strip", start, len(ms), err) }()

	if err := checkText(text); err != nil {
		return nil, err
	}
	rs, err := c.svc.Strip(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("strip: %w", err)
	}
	return toMatches(rs), nil
}

// Reload re-reads the catalog. On failure the current catalog stays in place.
func (c *Client) Reload(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("reload", start, c.svc.Index().Len(), err) }()

	ix, err := catalog.Load(ctx, c.source, zap.NewNop())
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	c.svc.SwapIndex(ix)
	return nil
}

// Stats describes the catalog currently in use.
func (c *Client) Stats() Stats {
	ix := c.svc.Index()
	return Stats{Source: ix.Source(), Entries: ix.Len()}
}

func checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}
	return nil
}
