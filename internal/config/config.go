package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog source kinds.
const (
	SourceCSV     = "csv"
	SourceParquet = "parquet"
	SourceRedis   = "redis"
)

// Config holds the medmatch configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Resolver ResolverConfig `yaml:"resolver"`
	Cache    CacheConfig    `yaml:"cache"`
	Database DatabaseConfig `yaml:"database"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int `yaml:"max_body_bytes"`
}

// CatalogConfig selects where the reference catalog is read from.
type CatalogConfig struct {
	Source    string `yaml:"source"` // csv, parquet, redis (default: csv)
	Path      string `yaml:"path"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ResolverConfig holds the resolution policy. Confidences are on the 0..100 scale.
type ResolverConfig struct {
	MinConfidence           float64 `yaml:"min_confidence"`
	LookupMaxResults        int     `yaml:"lookup_max_results"`
	DocumentMaxResults      int     `yaml:"document_max_results"`
	MaxLinesScanned         int     `yaml:"max_lines_scanned"`
	MaxCandidatesAccepted   int     `yaml:"max_candidates_accepted"`
	StructuredMinConfidence float64 `yaml:"structured_min_confidence"`
	WindowMinConfidence     float64 `yaml:"window_min_confidence"`
	StripGroupMinConfidence float64 `yaml:"strip_group_min_confidence"`
	StripWordMinConfidence  float64 `yaml:"strip_word_min_confidence"`
	MaxStripWords           int     `yaml:"max_strip_words"`
	Parallelism             int     `yaml:"parallelism"`

	// decoded is set when the section came from YAML; its omitted confidences
	// are already defaulted and an explicit 0 is kept.
	decoded bool
}

func defaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MinConfidence:           40,
		LookupMaxResults:        3,
		DocumentMaxResults:      10,
		MaxLinesScanned:         50,
		MaxCandidatesAccepted:   10,
		StructuredMinConfidence: 50,
		WindowMinConfidence:     60,
		StripGroupMinConfidence: 45,
		StripWordMinConfidence:  70,
		MaxStripWords:           200,
		Parallelism:             1,
	}
}

// UnmarshalYAML decodes the resolver section over the defaults.
func (r *ResolverConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain ResolverConfig
	p := plain(defaultResolverConfig())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = ResolverConfig(p)
	r.decoded = true
	return nil
}

// CacheConfig holds resolution cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	Standalone       bool     `yaml:"standalone"` // skip cluster topology discovery
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// DatabaseRequired reports whether any component needs the database.
func (c *Config) DatabaseRequired() bool {
	return c.Cache.Enabled || c.Catalog.Source == SourceRedis
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 1 << 20
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = SourceCSV
	}
	if c.Catalog.KeyPrefix == "" {
		c.Catalog.KeyPrefix = "medmatch:catalog:"
	}
	c.Resolver.applyDefaults()
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
}

// applyDefaults fills unset limits. Zero confidences count as unset only for
// configs built in code.
func (r *ResolverConfig) applyDefaults() {
	def := defaultResolverConfig()
	setInt := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	setFloat := func(v *float64, d float64) {
		if *v == 0 && !r.decoded {
			*v = d
		}
	}
	setInt(&r.LookupMaxResults, def.LookupMaxResults)
	setInt(&r.DocumentMaxResults, def.DocumentMaxResults)
	setInt(&r.MaxLinesScanned, def.MaxLinesScanned)
	setInt(&r.MaxCandidatesAccepted, def.MaxCandidatesAccepted)
	setInt(&r.MaxStripWords, def.MaxStripWords)
	setInt(&r.Parallelism, def.Parallelism)
	setFloat(&r.MinConfidence, def.MinConfidence)
	setFloat(&r.StructuredMinConfidence, def.StructuredMinConfidence)
	setFloat(&r.WindowMinConfidence, def.WindowMinConfidence)
	setFloat(&r.StripGroupMinConfidence, def.StripGroupMinConfidence)
	setFloat(&r.StripWordMinConfidence, def.StripWordMinConfidence)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Catalog.Source {
	case SourceCSV, SourceParquet:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for source %q", c.Catalog.Source)
		}
	case SourceRedis:
	default:
		return fmt.Errorf("catalog.source must be one of csv, parquet, redis, got %q", c.Catalog.Source)
	}

	r := c.Resolver
	for name, v := range map[string]float64{
		"min_confidence":             r.MinConfidence,
		"structured_min_confidence":  r.StructuredMinConfidence,
		"window_min_confidence":      r.WindowMinConfidence,
		"strip_group_min_confidence": r.StripGroupMinConfidence,
		"strip_word_min_confidence":  r.StripWordMinConfidence,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("resolver.%s must be between 0 and 100, got %v", name, v)
		}
	}

	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Database.DB < 0 {
		return fmt.Errorf("database.db must be non-negative, got %d", c.Database.DB)
	}
	if c.DatabaseRequired() && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required when the cache is enabled or catalog.source is redis")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
