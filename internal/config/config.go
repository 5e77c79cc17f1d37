// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and AFFINITY_* environment variables over New().
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ScoringURL is the base URL of the semantic scoring service.
	// Empty selects the built-in local scorer.
	ScoringURL string `koanf:"scoring_url"`

	// ScoringTimeoutMS bounds a single scoring call.
	ScoringTimeoutMS int `koanf:"scoring_timeout_ms"`

	// CacheTTLSeconds is the lifetime of a cached score.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// RedisAddr enables the shared remote cache tier when set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// HealthRetryAttempts is how many re-checks follow a failed health check.
	HealthRetryAttempts int `koanf:"health_retry_attempts"`

	// HealthRetryIntervalMS is the pause before each re-check.
	HealthRetryIntervalMS int `koanf:"health_retry_interval_ms"`

	// PrewarmQueueSize bounds the prewarm job queue.
	PrewarmQueueSize int `koanf:"prewarm_queue_size"`

	// LocalScorerLatencyMinMS and LocalScorerLatencyMaxMS simulate remote latency
	// for the built-in scorer. Zero disables the simulation.
	LocalScorerLatencyMinMS int `koanf:"local_scorer_latency_min_ms"`
	LocalScorerLatencyMaxMS int `koanf:"local_scorer_latency_max_ms"`

	// MaxRequestClients caps clients accepted by one HTTP request.
	MaxRequestClients int `koanf:"max_request_clients"`

	// RequestTimeoutMS is the deadline of one matching run served over HTTP.
	// The server write timeout is derived from it, so raise it together with
	// MaxRequestClients: a run scores clients x employees pairs.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		ScoringURL:            "",
		ScoringTimeoutMS:      10_000,
		CacheTTLSeconds:       300,
		RedisPrefix:           "affinity:score",
		HealthRetryAttempts:   2,
		HealthRetryIntervalMS: 1_000,
		PrewarmQueueSize:      10_000,
		MaxRequestClients:     5_000,
		RequestTimeoutMS:      300_000,
	}
}

// ScoringTimeout returns ScoringTimeoutMS as a duration.
func (c *Config) ScoringTimeout() time.Duration {
	return time.Duration(c.ScoringTimeoutMS) * time.Millisecond
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// HealthRetryInterval returns HealthRetryIntervalMS as a duration.
func (c *Config) HealthRetryInterval() time.Duration {
	return time.Duration(c.HealthRetryIntervalMS) * time.Millisecond
}

// Validate checks invariants the rest of the service relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.CacheTTLSeconds <= 0:
		return fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	case c.ScoringTimeoutMS < 0:
		return fmt.Errorf("%w: scoring_timeout_ms must not be negative", ErrInvalidConfig)
	case c.HealthRetryAttempts < 0:
		return fmt.Errorf("%w: health_retry_attempts must not be negative", ErrInvalidConfig)
	case c.HealthRetryIntervalMS < 0:
		return fmt.Errorf("%w: health_retry_interval_ms must not be negative", ErrInvalidConfig)
	case c.LocalScorerLatencyMaxMS < c.LocalScorerLatencyMinMS:
		return fmt.Errorf("%w: local scorer latency max below min", ErrInvalidConfig)
	case c.MaxRequestClients <= 0:
		return fmt.Errorf("%w: max_request_clients must be positive", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
