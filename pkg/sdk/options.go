package medmatch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	catalogPath string
	entries     []Entry
	hasEntries  bool

	minConfidence float64
	maxResults    int
	parallelism   int
	maxLines      int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCatalogFile loads the catalog from a CSV or Parquet file.
// The format is chosen by extension (.csv, .parquet).
func WithCatalogFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogPath = path
	})
}

// WithEntries uses an in-memory catalog. Takes precedence over WithCatalogFile.
func WithEntries(entries []Entry) Option {
	return optionFunc(func(c *clientConfig) {
		c.entries = append([]Entry(nil), entries...)
		c.hasEntries = true
	})
}

// WithMinConfidence sets the default lookup threshold (0..100).
// Default: 40.
func WithMinConfidence(v float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minConfidence = v
	})
}

// WithMaxResults sets the default number of lookup matches.
// Default: 3.
func WithMaxResults(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxResults = n
	})
}

// WithParallelism scores large catalogs on n goroutines.
// Default: 1.
func WithParallelism(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.parallelism = n
	})
}

// WithMaxLines caps the number of prescription lines scanned by Extract.
// Default: 50.
func WithMaxLines(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxLines = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// LookupOption overrides a parameter of a single Lookup call.
type LookupOption func(*lookupConfig)

type lookupConfig struct {
	minConfidence *float64
	maxResults    *int
}

// MinConfidence overrides the threshold (0..100) for one lookup.
func MinConfidence(v float64) LookupOption {
	return func(c *lookupConfig) { c.minConfidence = &v }
}

// MaxResults overrides the number of matches for one lookup.
func MaxResults(n int) LookupOption {
	return func(c *lookupConfig) { c.maxResults = &n }
}
