package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/foldops/cache"
	"github.com/jonwraymond/foldops/folding"
	"github.com/jonwraymond/foldops/health"
	"github.com/jonwraymond/foldops/observe"
	"github.com/jonwraymond/foldops/resilience"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FOLDOPS_"

// Cache store names.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

var (
	// ErrInvalidConfig indicates a configuration that failed to parse or validate.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("config: missing required environment variables")
)

// Config is the complete foldctl configuration.
type Config struct {
	Observe    observe.Config    `yaml:"observe"`
	Defaults   folding.Defaults  `yaml:"defaults"`
	Cache      CacheConfig       `yaml:"cache"`
	Resilience resilience.Config `yaml:"resilience"`
	Health     HealthConfig      `yaml:"health"`
	Engines    []EngineConfig    `yaml:"engines" validate:"min=1,dive"`
}

// CacheConfig selects the result store each engine gets.
type CacheConfig struct {
	// Store is "memory" or "badger".
	Store string `yaml:"store" env:"STORE" validate:"oneof=memory badger"`

	// Path is the parent directory for badger stores; each engine gets a
	// subdirectory named after it.
	Path string `yaml:"path" env:"PATH"`

	InMemory   bool `yaml:"in_memory" env:"IN_MEMORY"`
	SyncWrites bool `yaml:"sync_writes" env:"SYNC_WRITES"`
}

// HealthConfig sets the cache size thresholds reported by health checks.
type HealthConfig struct {
	CacheWarnEntries     int `yaml:"cache_warn_entries" env:"CACHE_WARN_ENTRIES" validate:"gte=0"`
	CacheCriticalEntries int `yaml:"cache_critical_entries" env:"CACHE_CRITICAL_ENTRIES" validate:"gte=0"`
}

// EngineConfig declares one engine.
type EngineConfig struct {
	// Name identifies the engine; it defaults to Backend.
	Name string `yaml:"name"`

	// Backend is a name in the backend registry.
	Backend string `yaml:"backend" validate:"required"`

	// Options are handed to the backend factory.
	Options map[string]any `yaml:"options"`

	// ParamsFile is a custom parameter file loaded into the engine at startup.
	ParamsFile string `yaml:"params_file"`

	// Watch reloads ParamsFile whenever it changes.
	Watch bool `yaml:"watch"`
}

// observeEnv holds the observe overrides, which observe.Config does not tag.
type observeEnv struct {
	ServiceName     string `env:"SERVICE_NAME"`
	LogLevel        string `env:"LOG_LEVEL"`
	TracingExporter string `env:"TRACING_EXPORTER"`
	MetricsExporter string `env:"METRICS_EXPORTER"`
}

var validate = validator.New()

// Default returns a configuration with one basepair engine, an in-process
// memory cache, info logging and telemetry export disabled.
func Default() Config {
	return Config{
		Observe: observe.Config{
			ServiceName: "foldops",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1},
			Metrics:     observe.MetricsConfig{Exporter: "none"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
		Defaults: folding.StandardDefaults(),
		Cache:    CacheConfig{Store: StoreMemory},
		Engines:  []EngineConfig{{Name: "basepair", Backend: "basepair"}},
	}
}

// Load reads the file at path. An empty path loads Default with environment
// overrides applied.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		if err := applyEnv(&cfg); err != nil {
			return Config{}, err
		}
		return cfg, cfg.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document over Default. Sections the document omits
// keep their default values; an engines list replaces the default one.
func Parse(raw []byte) (Config, error) {
	expanded, err := expandEnv(string(raw))
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	targets := []struct {
		prefix string
		v      any
	}{
		{EnvPrefix, &cfg.Defaults},
		{EnvPrefix + "CACHE_", &cfg.Cache},
		{EnvPrefix + "RESILIENCE_", &cfg.Resilience},
		{EnvPrefix + "HEALTH_", &cfg.Health},
	}
	for _, t := range targets {
		if err := env.ParseWithOptions(t.v, env.Options{Prefix: t.prefix}); err != nil {
			return fmt.Errorf("%w: parse env: %w", ErrInvalidConfig, err)
		}
	}

	var o observeEnv
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("%w: parse env: %w", ErrInvalidConfig, err)
	}
	if o.ServiceName != "" {
		cfg.Observe.ServiceName = o.ServiceName
	}
	if o.LogLevel != "" {
		cfg.Observe.Logging.Enabled = true
		cfg.Observe.Logging.Level = o.LogLevel
	}
	if o.TracingExporter != "" {
		cfg.Observe.Tracing.Exporter = o.TracingExporter
		cfg.Observe.Tracing.Enabled = o.TracingExporter != "none"
	}
	if o.MetricsExporter != "" {
		cfg.Observe.Metrics.Exporter = o.MetricsExporter
		cfg.Observe.Metrics.Enabled = o.MetricsExporter != "none"
	}
	return nil
}

// Validate checks field bounds, the observe section, the badger path and
// engine name uniqueness. It fills in engine names left empty.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Cache.Store == StoreBadger && !c.Cache.InMemory && c.Cache.Path == "" {
		return fmt.Errorf("%w: cache.path is required for a persistent badger store", ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(c.Engines))
	for i := range c.Engines {
		e := &c.Engines[i]
		if e.Name == "" {
			e.Name = e.Backend
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: duplicate engine name %q", ErrInvalidConfig, e.Name)
		}
		seen[e.Name] = struct{}{}
		if e.Watch && e.ParamsFile == "" {
			return fmt.Errorf("%w: engine %q watches without a params_file", ErrInvalidConfig, e.Name)
		}
	}
	return nil
}

// Engine returns the engine declared under name.
func (c Config) Engine(name string) (EngineConfig, bool) {
	for _, e := range c.Engines {
		if e.Name == name {
			return e, true
		}
	}
	return EngineConfig{}, false
}

// OpenCache creates the result store for the named engine.
func (c CacheConfig) OpenCache(engine string, logger observe.Logger) (cache.Cache, error) {
	switch c.Store {
	case "", StoreMemory:
		return cache.NewMemoryCache(), nil
	case StoreBadger:
		cfg := cache.BadgerConfig{
			InMemory:   c.InMemory,
			SyncWrites: c.SyncWrites,
			Logger:     logger,
		}
		if !c.InMemory {
			cfg.Path = filepath.Join(c.Path, engine)
		}
		return cache.NewBadgerCache(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown cache store %q", ErrInvalidConfig, c.Store)
	}
}

// CacheChecker returns the thresholds for health.NewCacheChecker.
func (h HealthConfig) CacheChecker() health.CacheCheckerConfig {
	return health.CacheCheckerConfig{
		Warn:     h.CacheWarnEntries,
		Critical: h.CacheCriticalEntries,
	}
}
