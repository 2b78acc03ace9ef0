package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockmcp/internal/registry"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseBackoff())
	assert.Equal(t, 1024, cfg.CacheCapacity)
	assert.Equal(t, "info", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("MCP_PORT", "9999")
	t.Setenv("TTL_REALTIME_SEC", "5")
	t.Setenv("TOOL_TTL_OVERRIDES", "get_etf_spot=10s,list_funds=12h")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ClassTTLs()[registry.TTLRealtime])

	overrides, err := cfg.TTLOverrides()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, overrides["get_etf_spot"])
	assert.Equal(t, 12*time.Hour, overrides["list_funds"])
}

func TestParseTTLOverrides(t *testing.T) {
	overrides, err := ParseTTLOverrides(" get_daily_quote=90s , get_fund_rating=24h")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, overrides["get_daily_quote"])
	assert.Equal(t, 24*time.Hour, overrides["get_fund_rating"])

	overrides, err = ParseTTLOverrides("")
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestParseTTLOverridesRejectsGarbage(t *testing.T) {
	cases := []string{
		"get_daily_quote",        // no duration
		"=10s",                   // no tool name
		"get_daily_quote=banana", // not a duration
		"get_daily_quote=-5s",    // negative
		"get_daily_quote=0s",     // zero disables caching silently
	}
	for _, in := range cases {
		_, err := ParseTTLOverrides(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.ProviderBaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RetryMaxAttempts = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.ToolTTLOverrides = "not a pair"
	assert.Error(t, cfg.Validate())
}
