package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"stockmcp/internal/registry"
)

// Config holds the gateway configuration.
type Config struct {
	// Server
	Port             int `env:"MCP_PORT" envDefault:"8080"`
	RequestTimeoutMS int `env:"REQUEST_TIMEOUT_MS" envDefault:"15000"`

	// Upstream provider
	ProviderBaseURL    string  `env:"PROVIDER_BASE_URL" envDefault:"http://localhost:9000"`
	ProviderTimeoutMS  int     `env:"PROVIDER_TIMEOUT_MS" envDefault:"8000"`
	RetryMaxAttempts   int     `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryBaseBackoffMS int     `env:"RETRY_BASE_BACKOFF_MS" envDefault:"500"`
	ProviderRateLimit  float64 `env:"PROVIDER_RATE_LIMIT" envDefault:"5"`
	ProviderRateBurst  int     `env:"PROVIDER_RATE_BURST" envDefault:"10"`
	BreakerMaxFailures uint32  `env:"BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerTimeoutMS   int     `env:"BREAKER_TIMEOUT_MS" envDefault:"30000"`

	// Response cache
	CacheCapacity    int    `env:"CACHE_CAPACITY" envDefault:"1024"`
	CacheSweepSec    int    `env:"CACHE_SWEEP_SEC" envDefault:"60"`
	TTLRealtimeSec   int    `env:"TTL_REALTIME_SEC" envDefault:"30"`
	TTLDailySec      int    `env:"TTL_DAILY_SEC" envDefault:"900"`
	TTLSlowSec       int    `env:"TTL_SLOW_SEC" envDefault:"21600"`
	ToolTTLOverrides string `env:"TOOL_TTL_OVERRIDES"`

	// Optional shared cache tier
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Observability
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	PrometheusPort int    `env:"PROMETHEUS_PORT" envDefault:"9092"`
}

// RequestTimeout returns the per-request timeout as a time.Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// ProviderTimeout bounds each upstream fetch.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}

// RetryBaseBackoff is the first retry delay; later delays double it.
func (c *Config) RetryBaseBackoff() time.Duration {
	return time.Duration(c.RetryBaseBackoffMS) * time.Millisecond
}

// BreakerTimeout is how long the circuit stays open.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutMS) * time.Millisecond
}

// CacheSweepInterval is the janitor period for proactive TTL expiry.
func (c *Config) CacheSweepInterval() time.Duration {
	return time.Duration(c.CacheSweepSec) * time.Second
}

// ClassTTLs returns the per-volatility-class cache TTLs.
func (c *Config) ClassTTLs() map[registry.TTLClass]time.Duration {
	return map[registry.TTLClass]time.Duration{
		registry.TTLRealtime: time.Duration(c.TTLRealtimeSec) * time.Second,
		registry.TTLDaily:    time.Duration(c.TTLDailySec) * time.Second,
		registry.TTLSlow:     time.Duration(c.TTLSlowSec) * time.Second,
	}
}

// TTLOverrides parses TOOL_TTL_OVERRIDES, a comma-separated list of
// tool=duration pairs ("get_etf_spot=10s,list_funds=12h").
func (c *Config) TTLOverrides() (map[string]time.Duration, error) {
	return ParseTTLOverrides(c.ToolTTLOverrides)
}

// ParseTTLOverrides parses a tool=duration list.
func ParseTTLOverrides(s string) (map[string]time.Duration, error) {
	out := make(map[string]time.Duration)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		name, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid TTL override %q (want tool=duration)", pair)
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid TTL override %q: %w", pair, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid TTL override %q: duration must be positive", pair)
		}
		out[name] = d
	}
	return out, nil
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	opts := env.Options{
		Prefix: "",
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.RequestTimeoutMS < 1 {
		return fmt.Errorf("request timeout must be at least 1ms, got %dms", c.RequestTimeoutMS)
	}

	if c.ProviderBaseURL == "" {
		return fmt.Errorf("provider base URL is required")
	}

	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.RetryMaxAttempts)
	}

	if c.CacheCapacity < 1 {
		return fmt.Errorf("cache capacity must be at least 1, got %d", c.CacheCapacity)
	}

	if _, err := c.TTLOverrides(); err != nil {
		return err
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}
