// Package config loads the retrieval engine's configuration with a clear
// precedence order: environment variables override a YAML/JSON file,
// which overrides built-in defaults. Configuration is validated eagerly
// so the engine never starts in a state it would later fail on.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete retrieval engine configuration.
type Config struct {
	Extraction    ExtractionConfig    `json:"extraction" yaml:"extraction"`
	Embedding     EmbeddingConfig     `json:"embedding" yaml:"embedding"`
	Store         StoreConfig         `json:"store" yaml:"store"`
	Budget        BudgetConfig        `json:"budget" yaml:"budget"`
	Operator      OperatorConfig      `json:"operator" yaml:"operator"`
	Resilience    ResilienceConfig    `json:"resilience" yaml:"resilience"`
	Logging       LoggingConfig       `json:"logging" yaml:"logging"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// ExtractionConfig locates the on-disk extraction output tree.
type ExtractionConfig struct {
	OutputDir      string        `json:"output_dir" yaml:"output_dir"`
	WatchEnabled   bool          `json:"watch_enabled" yaml:"watch_enabled"`
	WatchDebounce  time.Duration `json:"watch_debounce" yaml:"watch_debounce"`
	SchemaVersion  int           `json:"schema_version" yaml:"schema_version"`
}

// EmbeddingConfig selects and configures the EmbeddingProvider.
type EmbeddingConfig struct {
	Provider   string `json:"provider" yaml:"provider"`
	Model      string `json:"model" yaml:"model"`
	Dimensions int    `json:"dimensions" yaml:"dimensions"`
	BatchSize  int    `json:"batch_size" yaml:"batch_size"`
}

// StoreConfig configures the vector/metadata/graph store backends.
type StoreConfig struct {
	Backend  string `json:"backend" yaml:"backend"` // "memory" or "sqlite"
	SQLite   SQLiteConfig `json:"sqlite" yaml:"sqlite"`
	Redis    RedisConfig  `json:"redis" yaml:"redis"`
}

// SQLiteConfig configures the optional sqlite-backed store.
type SQLiteConfig struct {
	Path string `json:"path" yaml:"path"`
}

// RedisConfig configures the optional distributed lock/cache backend.
type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// BudgetConfig holds default token-budget layering parameters (§4.9).
type BudgetConfig struct {
	DefaultTokens     int     `json:"default_tokens" yaml:"default_tokens"`
	StructuralPct     float64 `json:"structural_pct" yaml:"structural_pct"`
	PrimaryPct        float64 `json:"primary_pct" yaml:"primary_pct"`
	SupportingPct     float64 `json:"supporting_pct" yaml:"supporting_pct"`
	FrameworkPct      float64 `json:"framework_pct" yaml:"framework_pct"`
	OverallDeadline   time.Duration `json:"overall_deadline" yaml:"overall_deadline"`
}

// OperatorConfig configures the pipeline lock and cooldown guard.
type OperatorConfig struct {
	LockBackend         string        `json:"lock_backend" yaml:"lock_backend"` // "file" or "redis"
	LockDir             string        `json:"lock_dir" yaml:"lock_dir"`
	LockStaleThreshold  time.Duration `json:"lock_stale_threshold" yaml:"lock_stale_threshold"`
	CooldownDuration    time.Duration `json:"cooldown_duration" yaml:"cooldown_duration"`
	FeedbackDir         string        `json:"feedback_dir" yaml:"feedback_dir"`
}

// ResilienceConfig tunes circuit breakers and retry policy.
type ResilienceConfig struct {
	FailureThreshold int           `json:"failure_threshold" yaml:"failure_threshold"`
	OpenDuration     time.Duration `json:"open_duration" yaml:"open_duration"`
	MaxRetries       int           `json:"max_retries" yaml:"max_retries"`
	BaseBackoff      time.Duration `json:"base_backoff" yaml:"base_backoff"`
	MaxBackoff       time.Duration `json:"max_backoff" yaml:"max_backoff"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// ObservabilityConfig configures metrics, tracing, and error monitoring.
type ObservabilityConfig struct {
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
	Sentry  SentryConfig  `json:"sentry" yaml:"sentry"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// TracingConfig configures OpenTelemetry span export.
type TracingConfig struct {
	Enabled    bool    `json:"enabled" yaml:"enabled"`
	Endpoint   string  `json:"endpoint" yaml:"endpoint"`
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"`
}

// SentryConfig configures the error-monitoring hook on the logger.
type SentryConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	DSN         string  `json:"dsn" yaml:"dsn"`
	Environment string  `json:"environment" yaml:"environment"`
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`
}

// Default values, mirrored into defaults() below.
const (
	DefaultOutputDir          = "./extracted"
	DefaultSchemaVersion      = 1
	DefaultEmbeddingProvider  = "mock"
	DefaultEmbeddingModel     = "text-embedding-3-small"
	DefaultEmbeddingDims      = 768
	DefaultEmbeddingBatch     = 64
	DefaultStoreBackend       = "memory"
	DefaultSQLitePath         = "./data/retrieval.db"
	DefaultBudgetTokens       = 8000
	DefaultStructuralPct      = 0.10
	DefaultPrimaryPct         = 0.50
	DefaultSupportingPct      = 0.30
	DefaultFrameworkPct       = 0.10
	DefaultOverallDeadline    = 30 * time.Second
	DefaultLockBackend        = "file"
	DefaultLockDir            = "./data/locks"
	DefaultLockStaleThreshold = time.Hour
	DefaultCooldownDuration   = 300 * time.Second
	DefaultFeedbackDir        = "./data/feedback"
	DefaultFailureThreshold   = 5
	DefaultOpenDuration       = 30 * time.Second
	DefaultMaxRetries         = 4
	DefaultBaseBackoff        = time.Second
	DefaultMaxBackoff         = 8 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
	DefaultTracingEnabled     = false
	DefaultTracingEndpoint    = ""
	DefaultSampleRate         = 0.1
	DefaultSentryEnabled      = false
)

// ValidLogLevels enumerates the slog levels the engine accepts.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// ValidLogFormats enumerates the supported log encodings.
var ValidLogFormats = []string{"json", "text"}

// ValidStoreBackends enumerates the supported store backends.
var ValidStoreBackends = []string{"memory", "sqlite"}

// ValidLockBackends enumerates the supported pipeline lock backends.
var ValidLockBackends = []string{"file", "redis"}

// envPrefix namespaces every environment variable the engine reads.
const envPrefix = "RETRIEVAL_"

// Load builds a Config from defaults, an optional file named by
// RETRIEVAL_CONFIG_FILE, and environment overrides, in that precedence
// order, then validates the result.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv(envPrefix + "CONFIG_FILE"); path != "" {
		safePath := filepath.Clean(path)
		fileCfg, err := loadFile(safePath)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		cfg = merge(cfg, fileCfg)
	}

	cfg = loadEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config populated entirely with built-in defaults.
func Defaults() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			OutputDir:     DefaultOutputDir,
			SchemaVersion: DefaultSchemaVersion,
		},
		Embedding: EmbeddingConfig{
			Provider:   DefaultEmbeddingProvider,
			Model:      DefaultEmbeddingModel,
			Dimensions: DefaultEmbeddingDims,
			BatchSize:  DefaultEmbeddingBatch,
		},
		Store: StoreConfig{
			Backend: DefaultStoreBackend,
			SQLite:  SQLiteConfig{Path: DefaultSQLitePath},
		},
		Budget: BudgetConfig{
			DefaultTokens:   DefaultBudgetTokens,
			StructuralPct:   DefaultStructuralPct,
			PrimaryPct:      DefaultPrimaryPct,
			SupportingPct:   DefaultSupportingPct,
			FrameworkPct:    DefaultFrameworkPct,
			OverallDeadline: DefaultOverallDeadline,
		},
		Operator: OperatorConfig{
			LockBackend:        DefaultLockBackend,
			LockDir:            DefaultLockDir,
			LockStaleThreshold: DefaultLockStaleThreshold,
			CooldownDuration:   DefaultCooldownDuration,
			FeedbackDir:        DefaultFeedbackDir,
		},
		Resilience: ResilienceConfig{
			FailureThreshold: DefaultFailureThreshold,
			OpenDuration:     DefaultOpenDuration,
			MaxRetries:       DefaultMaxRetries,
			BaseBackoff:      DefaultBaseBackoff,
			MaxBackoff:       DefaultMaxBackoff,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
				Port:    DefaultMetricsPort,
				Path:    DefaultMetricsPath,
			},
			Tracing: TracingConfig{
				Enabled:    DefaultTracingEnabled,
				Endpoint:   DefaultTracingEndpoint,
				SampleRate: DefaultSampleRate,
			},
			Sentry: SentryConfig{
				Enabled: DefaultSentryEnabled,
			},
		},
	}
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator-provided via env, cleaned above
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}
	return cfg, nil
}

// loadEnv overlays RETRIEVAL_*-prefixed environment variables onto cfg.
func loadEnv(cfg *Config) *Config {
	if v := os.Getenv(envPrefix + "OUTPUT_DIR"); v != "" {
		cfg.Extraction.OutputDir = v
	}
	if v := os.Getenv(envPrefix + "SCHEMA_VERSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Extraction.SchemaVersion = n
		}
	}
	if v := os.Getenv(envPrefix + "WATCH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Extraction.WatchEnabled = b
		}
	}

	if v := os.Getenv(envPrefix + "EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv(envPrefix + "EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv(envPrefix + "EMBEDDING_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimensions = n
		}
	}
	if v := os.Getenv(envPrefix + "EMBEDDING_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.BatchSize = n
		}
	}

	if v := os.Getenv(envPrefix + "STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv(envPrefix + "STORE_SQLITE_PATH"); v != "" {
		cfg.Store.SQLite.Path = v
	}
	if v := os.Getenv(envPrefix + "REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Store.Redis.Enabled = b
		}
	}
	if v := os.Getenv(envPrefix + "REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv(envPrefix + "REDIS_PASSWORD"); v != "" {
		cfg.Store.Redis.Password = v
	}

	if v := os.Getenv(envPrefix + "BUDGET_DEFAULT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Budget.DefaultTokens = n
		}
	}
	if v := os.Getenv(envPrefix + "BUDGET_OVERALL_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Budget.OverallDeadline = d
		}
	}

	if v := os.Getenv(envPrefix + "LOCK_BACKEND"); v != "" {
		cfg.Operator.LockBackend = v
	}
	if v := os.Getenv(envPrefix + "LOCK_DIR"); v != "" {
		cfg.Operator.LockDir = v
	}
	if v := os.Getenv(envPrefix + "LOCK_STALE_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Operator.LockStaleThreshold = d
		}
	}
	if v := os.Getenv(envPrefix + "COOLDOWN_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Operator.CooldownDuration = d
		}
	}
	if v := os.Getenv(envPrefix + "FEEDBACK_DIR"); v != "" {
		cfg.Operator.FeedbackDir = v
	}

	if v := os.Getenv(envPrefix + "BREAKER_FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Resilience.FailureThreshold = n
		}
	}
	if v := os.Getenv(envPrefix + "BREAKER_OPEN_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Resilience.OpenDuration = d
		}
	}

	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv(envPrefix + "METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.Metrics.Enabled = b
		}
	}
	if v := os.Getenv(envPrefix + "METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Observability.Metrics.Port = n
		}
	}
	if v := os.Getenv(envPrefix + "TRACING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.Tracing.Enabled = b
		}
	}
	if v := os.Getenv(envPrefix + "TRACING_ENDPOINT"); v != "" {
		cfg.Observability.Tracing.Endpoint = v
	}
	if v := os.Getenv(envPrefix + "SENTRY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.Sentry.Enabled = b
		}
	}
	if v := os.Getenv(envPrefix + "SENTRY_DSN"); v != "" {
		cfg.Observability.Sentry.DSN = v
	}

	return cfg
}

// merge overlays every non-zero field of override onto base, field by
// field, so a partial config file only changes what it names.
func merge(base, override *Config) *Config {
	result := *base

	if override.Extraction.OutputDir != "" {
		result.Extraction.OutputDir = override.Extraction.OutputDir
	}
	if override.Extraction.SchemaVersion != 0 {
		result.Extraction.SchemaVersion = override.Extraction.SchemaVersion
	}
	result.Extraction.WatchEnabled = override.Extraction.WatchEnabled || base.Extraction.WatchEnabled

	if override.Embedding.Provider != "" {
		result.Embedding.Provider = override.Embedding.Provider
	}
	if override.Embedding.Model != "" {
		result.Embedding.Model = override.Embedding.Model
	}
	if override.Embedding.Dimensions != 0 {
		result.Embedding.Dimensions = override.Embedding.Dimensions
	}
	if override.Embedding.BatchSize != 0 {
		result.Embedding.BatchSize = override.Embedding.BatchSize
	}

	if override.Store.Backend != "" {
		result.Store.Backend = override.Store.Backend
	}
	if override.Store.SQLite.Path != "" {
		result.Store.SQLite.Path = override.Store.SQLite.Path
	}
	if override.Store.Redis.Addr != "" {
		result.Store.Redis = override.Store.Redis
	}

	if override.Budget.DefaultTokens != 0 {
		result.Budget.DefaultTokens = override.Budget.DefaultTokens
	}
	if override.Budget.StructuralPct != 0 {
		result.Budget.StructuralPct = override.Budget.StructuralPct
	}
	if override.Budget.PrimaryPct != 0 {
		result.Budget.PrimaryPct = override.Budget.PrimaryPct
	}
	if override.Budget.SupportingPct != 0 {
		result.Budget.SupportingPct = override.Budget.SupportingPct
	}
	if override.Budget.FrameworkPct != 0 {
		result.Budget.FrameworkPct = override.Budget.FrameworkPct
	}
	if override.Budget.OverallDeadline != 0 {
		result.Budget.OverallDeadline = override.Budget.OverallDeadline
	}

	if override.Operator.LockBackend != "" {
		result.Operator.LockBackend = override.Operator.LockBackend
	}
	if override.Operator.LockDir != "" {
		result.Operator.LockDir = override.Operator.LockDir
	}
	if override.Operator.LockStaleThreshold != 0 {
		result.Operator.LockStaleThreshold = override.Operator.LockStaleThreshold
	}
	if override.Operator.CooldownDuration != 0 {
		result.Operator.CooldownDuration = override.Operator.CooldownDuration
	}
	if override.Operator.FeedbackDir != "" {
		result.Operator.FeedbackDir = override.Operator.FeedbackDir
	}

	if override.Resilience.FailureThreshold != 0 {
		result.Resilience.FailureThreshold = override.Resilience.FailureThreshold
	}
	if override.Resilience.OpenDuration != 0 {
		result.Resilience.OpenDuration = override.Resilience.OpenDuration
	}
	if override.Resilience.MaxRetries != 0 {
		result.Resilience.MaxRetries = override.Resilience.MaxRetries
	}
	if override.Resilience.BaseBackoff != 0 {
		result.Resilience.BaseBackoff = override.Resilience.BaseBackoff
	}
	if override.Resilience.MaxBackoff != 0 {
		result.Resilience.MaxBackoff = override.Resilience.MaxBackoff
	}

	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	result.Observability.Metrics.Enabled = override.Observability.Metrics.Enabled || base.Observability.Metrics.Enabled
	if override.Observability.Metrics.Port != 0 {
		result.Observability.Metrics.Port = override.Observability.Metrics.Port
	}
	if override.Observability.Metrics.Path != "" {
		result.Observability.Metrics.Path = override.Observability.Metrics.Path
	}
	result.Observability.Tracing.Enabled = override.Observability.Tracing.Enabled || base.Observability.Tracing.Enabled
	if override.Observability.Tracing.Endpoint != "" {
		result.Observability.Tracing.Endpoint = override.Observability.Tracing.Endpoint
	}
	result.Observability.Sentry.Enabled = override.Observability.Sentry.Enabled || base.Observability.Sentry.Enabled
	if override.Observability.Sentry.DSN != "" {
		result.Observability.Sentry.DSN = override.Observability.Sentry.DSN
	}

	return &result
}

// Validate checks the configuration for internal consistency, failing
// fast before any store or pipeline component is constructed.
func (c *Config) Validate() error {
	if c.Extraction.OutputDir == "" {
		return fmt.Errorf("extraction output dir cannot be empty")
	}
	if c.Extraction.SchemaVersion < 1 {
		return fmt.Errorf("extraction schema version must be positive: %d", c.Extraction.SchemaVersion)
	}

	if c.Embedding.Dimensions < 1 {
		return fmt.Errorf("embedding dimensions must be positive: %d", c.Embedding.Dimensions)
	}
	if c.Embedding.BatchSize < 1 {
		return fmt.Errorf("embedding batch size must be positive: %d", c.Embedding.BatchSize)
	}

	if !contains(ValidStoreBackends, c.Store.Backend) {
		return fmt.Errorf("invalid store backend: %s (valid: %v)", c.Store.Backend, ValidStoreBackends)
	}
	if c.Store.Backend == "sqlite" && c.Store.SQLite.Path == "" {
		return fmt.Errorf("sqlite path cannot be empty when store backend is sqlite")
	}
	if c.Store.Redis.Enabled && c.Store.Redis.Addr == "" {
		return fmt.Errorf("redis addr cannot be empty when redis enabled")
	}

	pctSum := c.Budget.StructuralPct + c.Budget.PrimaryPct + c.Budget.SupportingPct + c.Budget.FrameworkPct
	if pctSum < 0.99 || pctSum > 1.01 {
		return fmt.Errorf("budget layer percentages must sum to 1.0, got %f", pctSum)
	}
	if c.Budget.DefaultTokens < 1 {
		return fmt.Errorf("default budget tokens must be positive: %d", c.Budget.DefaultTokens)
	}
	if c.Budget.OverallDeadline <= 0 {
		return fmt.Errorf("overall deadline must be positive: %s", c.Budget.OverallDeadline)
	}

	if !contains(ValidLockBackends, c.Operator.LockBackend) {
		return fmt.Errorf("invalid lock backend: %s (valid: %v)", c.Operator.LockBackend, ValidLockBackends)
	}
	if c.Operator.LockBackend == "redis" && !c.Store.Redis.Enabled {
		return fmt.Errorf("lock backend redis requires store.redis.enabled")
	}
	if c.Operator.LockStaleThreshold <= 0 {
		return fmt.Errorf("lock stale threshold must be positive: %s", c.Operator.LockStaleThreshold)
	}
	if c.Operator.CooldownDuration < 0 {
		return fmt.Errorf("cooldown duration cannot be negative: %s", c.Operator.CooldownDuration)
	}

	if c.Resilience.FailureThreshold < 1 {
		return fmt.Errorf("failure threshold must be positive: %d", c.Resilience.FailureThreshold)
	}
	if c.Resilience.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %d", c.Resilience.MaxRetries)
	}
	if c.Resilience.BaseBackoff <= 0 {
		return fmt.Errorf("base backoff must be positive: %s", c.Resilience.BaseBackoff)
	}

	if !contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if !contains(ValidLogFormats, c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s (valid: %v)", c.Logging.Format, ValidLogFormats)
	}

	if c.Observability.Metrics.Enabled {
		if c.Observability.Metrics.Port < 1 || c.Observability.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", c.Observability.Metrics.Port)
		}
		if c.Observability.Metrics.Path == "" {
			return fmt.Errorf("metrics path cannot be empty when metrics enabled")
		}
	}
	if c.Observability.Tracing.Enabled {
		if c.Observability.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing endpoint cannot be empty when tracing enabled")
		}
		if c.Observability.Tracing.SampleRate < 0 || c.Observability.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing sample rate must be between 0 and 1: %f", c.Observability.Tracing.SampleRate)
		}
	}
	if c.Observability.Sentry.Enabled && c.Observability.Sentry.DSN == "" {
		return fmt.Errorf("sentry DSN cannot be empty when sentry enabled")
	}

	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
