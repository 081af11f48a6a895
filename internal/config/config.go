// Copyright 2025 James Ross
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PoolConfig selects and configures the Pool backend (spec §4.1, §6).
type PoolConfig struct {
	Backend    string        `mapstructure:"backend"` // "memory" or "ttl-store"
	URL        string        `mapstructure:"url"`
	TTLSeconds time.Duration `mapstructure:"ttl_seconds"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
}

// DefaultRequestConfig is the fallback request template merged under client
// submissions (spec §6's default_request_config).
type DefaultRequestConfig struct {
	Graffiti         string `mapstructure:"graffiti"`
	BlobProofVariant string `mapstructure:"blob_proof_variant"`
}

type CircuitBreaker struct {
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	Window           time.Duration `mapstructure:"window"`
	CooldownPeriod   time.Duration `mapstructure:"cooldown_period"`
	MinSamples       int           `mapstructure:"min_samples"`
}

// TracingConfig optionally enables OTLP span export for the admission and
// dispatch path. Left disabled (the default), MaybeInitTracing is a no-op.
type TracingConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	Endpoint         string  `mapstructure:"endpoint"`
	Environment      string  `mapstructure:"environment"`
	SamplingStrategy string  `mapstructure:"sampling_strategy"` // "always", "never", "probabilistic"
	SamplingRate     float64 `mapstructure:"sampling_rate"`
}

type ObservabilityConfig struct {
	MetricsPort int    `mapstructure:"metrics_port"`
	LogLevel    string `mapstructure:"log_level"`
	// LogFile optionally tees structured logs to a rotated file via
	// lumberjack, in addition to the default stderr sink.
	LogFile         string `mapstructure:"log_file"`
	LogFileMaxSizeMB int   `mapstructure:"log_file_max_size_mb"`
	LogFileMaxAgeDays int  `mapstructure:"log_file_max_age_days"`
	LogFileMaxBackups int  `mapstructure:"log_file_max_backups"`
	Tracing         TracingConfig `mapstructure:"tracing"`
}

// Observability is a backwards-compatible alias.
type Observability = ObservabilityConfig

// RateLimitConfig guards admission of Prove actions only (spec §4.9); Cancel
// is never rate-limited.
type RateLimitConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

// JanitorConfig governs the periodic pool sweep (spec §4.10).
type JanitorConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Schedule   string        `mapstructure:"schedule"` // cron expression
	PruneAfter time.Duration `mapstructure:"prune_after"`
}

type Config struct {
	ConcurrencyLimit      int                   `mapstructure:"concurrency_limit"`
	Pool                  PoolConfig            `mapstructure:"pool"`
	DefaultRequestConfig  DefaultRequestConfig  `mapstructure:"default_request_config"`
	ChainSpecsPath        string                `mapstructure:"chain_specs_path"`
	CircuitBreaker        CircuitBreaker        `mapstructure:"circuit_breaker"`
	Observability         Observability         `mapstructure:"observability"`
	RateLimit             RateLimitConfig       `mapstructure:"rate_limit"`
	Janitor               JanitorConfig         `mapstructure:"janitor"`
}

func defaultConfig() *Config {
	return &Config{
		ConcurrencyLimit: 4,
		Pool: PoolConfig{
			Backend:    "memory",
			URL:        "localhost:6379",
			TTLSeconds: 24 * time.Hour,
			KeyPrefix:  "orch:request:",
		},
		DefaultRequestConfig: DefaultRequestConfig{
			Graffiti: "",
		},
		ChainSpecsPath: "./chain_specs.yaml",
		CircuitBreaker: CircuitBreaker{
			FailureThreshold: 0.5,
			Window:           1 * time.Minute,
			CooldownPeriod:   30 * time.Second,
			MinSamples:       20,
		},
		Observability: Observability{
			MetricsPort: 9090,
			LogLevel:    "info",
			Tracing: TracingConfig{
				Enabled:          false,
				SamplingStrategy: "probabilistic",
				SamplingRate:     0.1,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:   false,
			PerSecond: 50,
			Burst:     100,
		},
		Janitor: JanitorConfig{
			Enabled:    true,
			Schedule:   "@every 1m",
			PruneAfter: 24 * time.Hour,
		},
	}
}

// Load reads configuration from a YAML file and ORCH_-prefixed env overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("orch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("concurrency_limit", def.ConcurrencyLimit)

	v.SetDefault("pool.backend", def.Pool.Backend)
	v.SetDefault("pool.url", def.Pool.URL)
	v.SetDefault("pool.ttl_seconds", def.Pool.TTLSeconds)
	v.SetDefault("pool.key_prefix", def.Pool.KeyPrefix)

	v.SetDefault("default_request_config.graffiti", def.DefaultRequestConfig.Graffiti)
	v.SetDefault("default_request_config.blob_proof_variant", def.DefaultRequestConfig.BlobProofVariant)

	v.SetDefault("chain_specs_path", def.ChainSpecsPath)

	v.SetDefault("circuit_breaker.failure_threshold", def.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuit_breaker.window", def.CircuitBreaker.Window)
	v.SetDefault("circuit_breaker.cooldown_period", def.CircuitBreaker.CooldownPeriod)
	v.SetDefault("circuit_breaker.min_samples", def.CircuitBreaker.MinSamples)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)
	v.SetDefault("observability.log_file", def.Observability.LogFile)
	v.SetDefault("observability.log_file_max_size_mb", def.Observability.LogFileMaxSizeMB)
	v.SetDefault("observability.log_file_max_age_days", def.Observability.LogFileMaxAgeDays)
	v.SetDefault("observability.log_file_max_backups", def.Observability.LogFileMaxBackups)
	v.SetDefault("observability.tracing.enabled", def.Observability.Tracing.Enabled)
	v.SetDefault("observability.tracing.endpoint", def.Observability.Tracing.Endpoint)
	v.SetDefault("observability.tracing.environment", def.Observability.Tracing.Environment)
	v.SetDefault("observability.tracing.sampling_strategy", def.Observability.Tracing.SamplingStrategy)
	v.SetDefault("observability.tracing.sampling_rate", def.Observability.Tracing.SamplingRate)

	v.SetDefault("rate_limit.enabled", def.RateLimit.Enabled)
	v.SetDefault("rate_limit.per_second", def.RateLimit.PerSecond)
	v.SetDefault("rate_limit.burst", def.RateLimit.Burst)

	v.SetDefault("janitor.enabled", def.Janitor.Enabled)
	v.SetDefault("janitor.schedule", def.Janitor.Schedule)
	v.SetDefault("janitor.prune_after", def.Janitor.PruneAfter)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config constraints and returns an error on invalid settings.
func Validate(cfg *Config) error {
	if cfg.ConcurrencyLimit < 1 {
		return fmt.Errorf("concurrency_limit must be >= 1")
	}
	switch cfg.Pool.Backend {
	case "memory", "ttl-store":
	default:
		return fmt.Errorf("pool.backend must be \"memory\" or \"ttl-store\", got %q", cfg.Pool.Backend)
	}
	if cfg.Pool.Backend == "ttl-store" {
		if cfg.Pool.URL == "" {
			return fmt.Errorf("pool.url is required when pool.backend is ttl-store")
		}
		if cfg.Pool.TTLSeconds <= 0 {
			return fmt.Errorf("pool.ttl_seconds must be > 0 when pool.backend is ttl-store")
		}
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("observability.metrics_port must be 1..65535")
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.PerSecond <= 0 {
		return fmt.Errorf("rate_limit.per_second must be > 0 when rate_limit.enabled")
	}
	if cfg.Observability.Tracing.Enabled {
		if cfg.Observability.Tracing.Endpoint == "" {
			return fmt.Errorf("observability.tracing.endpoint is required when observability.tracing.enabled")
		}
		if cfg.Observability.Tracing.SamplingRate < 0 || cfg.Observability.Tracing.SamplingRate > 1 {
			return fmt.Errorf("observability.tracing.sampling_rate must be 0..1")
		}
	}
	return nil
}
