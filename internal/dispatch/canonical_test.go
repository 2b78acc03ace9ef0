package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockmcp/internal/models"
	"stockmcp/internal/registry"
)

func mustDescriptor(t *testing.T, name string) *registry.Descriptor {
	t.Helper()
	reg, err := registry.NewWithCatalog()
	require.NoError(t, err)
	desc, err := reg.Resolve(name)
	require.NoError(t, err)
	return desc
}

func TestCanonicalArgsAppliesDefaults(t *testing.T) {
	desc := mustDescriptor(t, "get_stock_history")

	cargs, err := canonicalArgs(desc, map[string]any{
		"symbol":     "600000",
		"start_date": "20240101",
		"end_date":   "2024-06-30",
	})
	require.NoError(t, err)

	assert.Equal(t, "hfq", cargs["adjust"], "omitted enum takes its declared default")
	assert.Equal(t, "2024-01-01", cargs["start_date"])
	assert.Equal(t, "2024-06-30", cargs["end_date"])
}

func TestCanonicalArgsNormalizesDatesAndCase(t *testing.T) {
	desc := mustDescriptor(t, "get_daily_quote")

	a, err := canonicalArgs(desc, map[string]any{"symbol": "600000", "date": "20240102"})
	require.NoError(t, err)
	b, err := canonicalArgs(desc, map[string]any{"symbol": "600000", "date": "2024-01-02"})
	require.NoError(t, err)
	c, err := canonicalArgs(desc, map[string]any{"symbol": "600000", "date": "2024/1/2"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.Equal(t, "2024-01-02", a["date"])

	idx := mustDescriptor(t, "get_index_daily")
	upper, err := canonicalArgs(idx, map[string]any{"symbol": "SH000300"})
	require.NoError(t, err)
	lower, err := canonicalArgs(idx, map[string]any{"symbol": "sh000300"})
	require.NoError(t, err)
	assert.Equal(t, lower, upper, "identifier casing must not split cache entries")
}

func TestCanonicalArgsRejectsImpossibleDate(t *testing.T) {
	desc := mustDescriptor(t, "get_daily_quote")

	// Matches the schema's date pattern but is not a real calendar day.
	_, err := canonicalArgs(desc, map[string]any{"symbol": "600000", "date": "2024-13-01"})
	require.Error(t, err)

	_, err = canonicalArgs(desc, map[string]any{"symbol": "600000", "date": "20240230"})
	require.Error(t, err)
	assert.Equal(t, models.KindInvalidArgument, models.AsToolError(err).Kind)
}

func TestCacheKeyStableAcrossEquivalentRequests(t *testing.T) {
	desc := mustDescriptor(t, "get_daily_quote")

	a, err := canonicalArgs(desc, map[string]any{"symbol": "600000", "date": "20240102"})
	require.NoError(t, err)
	b, err := canonicalArgs(desc, map[string]any{"symbol": " 600000 ", "date": "2024-01-02"})
	require.NoError(t, err)

	assert.Equal(t, cacheKey(desc.Name, a), cacheKey(desc.Name, b))
}

func TestCacheKeySeparatesTools(t *testing.T) {
	args := map[string]string{"symbol": "510300"}
	assert.NotEqual(t, cacheKey("get_etf_history", args), cacheKey("get_index_daily", args))
}

func TestCacheKeySeparatesArguments(t *testing.T) {
	a := cacheKey("get_daily_quote", map[string]string{"symbol": "600000", "date": "2024-01-02"})
	b := cacheKey("get_daily_quote", map[string]string{"symbol": "600000", "date": "2024-01-03"})
	assert.NotEqual(t, a, b)
}
