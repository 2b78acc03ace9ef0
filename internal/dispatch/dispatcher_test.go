package dispatch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockmcp/internal/cache"
	"stockmcp/internal/models"
	"stockmcp/internal/registry"
)

type fakeFetcher struct {
	mu     sync.Mutex
	calls  int
	lastOp string
	args   map[string]string
	rows   []map[string]any
	err    error
}

func (f *fakeFetcher) Fetch(ctx context.Context, op string, args map[string]string) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastOp = op
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) lastArgs() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.args
}

func newTestDispatcher(t *testing.T, fetcher Fetcher) *Dispatcher {
	t.Helper()
	reg, err := registry.NewWithCatalog()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := cache.New(64, time.Second, nil, logger, nil)
	ttl := TTLConfig{
		Class: map[registry.TTLClass]time.Duration{
			registry.TTLRealtime: time.Minute,
			registry.TTLDaily:    time.Minute,
			registry.TTLSlow:     time.Minute,
		},
	}
	return New(reg, store, fetcher, ttl, logger, nil)
}

func dailyBarRow() map[string]any {
	return map[string]any{
		"日期":  "20240102",
		"开盘":  "7.20",
		"最高":  7.35,
		"最低":  "7.10",
		"收盘":  "7.30",
		"成交量": 123456,
		"涨跌幅": "1.25%",
	}
}

func TestHandleUnknownTool(t *testing.T) {
	f := &fakeFetcher{}
	d := newTestDispatcher(t, f)

	res := d.Handle(context.Background(), models.ToolRequest{Tool: "get_weather", RequestID: "r1"})

	require.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, models.KindUnknownTool, res.Error.Kind)
	assert.False(t, res.Error.Retryable)
	assert.Equal(t, "r1", res.RequestID)
	assert.Zero(t, f.callCount(), "rejected before dispatch")
}

func TestHandleMissingRequiredArgument(t *testing.T) {
	f := &fakeFetcher{}
	d := newTestDispatcher(t, f)

	res := d.Handle(context.Background(), models.ToolRequest{
		Tool:      "get_daily_quote",
		Arguments: map[string]any{"symbol": "600000"},
		RequestID: "r2",
	})

	require.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, models.KindInvalidArgument, res.Error.Kind)
	assert.Contains(t, res.Error.Message, "date")
	assert.Zero(t, f.callCount())
}

func TestHandlePatternViolation(t *testing.T) {
	f := &fakeFetcher{}
	d := newTestDispatcher(t, f)

	res := d.Handle(context.Background(), models.ToolRequest{
		Tool:      "get_daily_quote",
		Arguments: map[string]any{"symbol": "PINGAN", "date": "20240102"},
	})

	require.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, models.KindInvalidArgument, res.Error.Kind)
	assert.Zero(t, f.callCount())
}

func TestHandleSuccessNormalizesRows(t *testing.T) {
	f := &fakeFetcher{rows: []map[string]any{dailyBarRow()}}
	d := newTestDispatcher(t, f)

	res := d.Handle(context.Background(), models.ToolRequest{
		Tool:      "get_daily_quote",
		Arguments: map[string]any{"symbol": "600000", "date": "20240102"},
		RequestID: "r3",
	})

	require.Equal(t, models.StatusOK, res.Status)
	require.NotNil(t, res.Payload)
	assert.Equal(t, "r3", res.RequestID)
	assert.Equal(t, "get_daily_quote", res.Payload.Tool)

	require.Len(t, res.Payload.Rows, 1)
	row := res.Payload.Rows[0]
	assert.Equal(t, "2024-01-02", row["date"])
	assert.Equal(t, 7.2, row["open"])
	assert.Equal(t, 7.3, row["close"])
	assert.Equal(t, 1.25, row["change_pct"], "percent strings keep their face value")
	assert.NotContains(t, row, "收盘", "no upstream column names in host-facing rows")
}

func TestHandleDefaultsReachProvider(t *testing.T) {
	f := &fakeFetcher{rows: []map[string]any{dailyBarRow()}}
	d := newTestDispatcher(t, f)

	res := d.Handle(context.Background(), models.ToolRequest{
		Tool: "get_stock_history",
		Arguments: map[string]any{
			"symbol":     "600000",
			"start_date": "20240101",
			"end_date":   "20240630",
		},
	})

	require.Equal(t, models.StatusOK, res.Status)
	args := f.lastArgs()
	assert.Equal(t, "hfq", args["adjust"])
	assert.Equal(t, "2024-01-01", args["start_date"])
	assert.Equal(t, "2024-06-30", args["end_date"])
}

func TestHandleEquivalentRequestsShareCacheEntry(t *testing.T) {
	f := &fakeFetcher{rows: []map[string]any{dailyBarRow()}}
	d := newTestDispatcher(t, f)

	first := d.Handle(context.Background(), models.ToolRequest{
		Tool:      "get_daily_quote",
		Arguments: map[string]any{"symbol": "600000", "date": "20240102"},
		RequestID: "a",
	})
	require.Equal(t, models.StatusOK, first.Status)

	// Same request in a different surface form must hit the cached entry.
	second := d.Handle(context.Background(), models.ToolRequest{
		Tool:      "get_daily_quote",
		Arguments: map[string]any{"symbol": "600000", "date": "2024-01-02"},
		RequestID: "b",
	})
	require.Equal(t, models.StatusOK, second.Status)

	assert.Equal(t, 1, f.callCount(), "one provider call serves both requests")
	assert.Equal(t, "b", second.RequestID, "replayed result carries the new correlation token")
	assert.Equal(t, first.Payload, second.Payload)
}

func TestHandleErrorsAreNotCached(t *testing.T) {
	f := &fakeFetcher{err: models.NewToolError(models.KindUpstreamUnavailable, "provider unreachable or timed out")}
	d := newTestDispatcher(t, f)

	req := models.ToolRequest{
		Tool:      "get_daily_quote",
		Arguments: map[string]any{"symbol": "600000", "date": "20240102"},
	}

	res := d.Handle(context.Background(), req)
	require.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, models.KindUpstreamUnavailable, res.Error.Kind)
	assert.True(t, res.Error.Retryable)

	res = d.Handle(context.Background(), req)
	require.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, 2, f.callCount(), "failed fetches must not poison the cache")
}

func TestHandleMalformedUpstreamRow(t *testing.T) {
	row := dailyBarRow()
	delete(row, "收盘")
	f := &fakeFetcher{rows: []map[string]any{row}}
	d := newTestDispatcher(t, f)

	res := d.Handle(context.Background(), models.ToolRequest{
		Tool:      "get_daily_quote",
		Arguments: map[string]any{"symbol": "600000", "date": "20240102"},
	})

	require.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, models.KindMalformedUpstream, res.Error.Kind)
}

func TestHandleRoutesToDeclaredOperation(t *testing.T) {
	f := &fakeFetcher{rows: []map[string]any{{
		"净值日期": "2024-01-02",
		"单位净值": "1.2345",
	}}}
	d := newTestDispatcher(t, f)

	res := d.Handle(context.Background(), models.ToolRequest{
		Tool:      "get_fund_nav_history",
		Arguments: map[string]any{"fund_code": "110022"},
	})

	require.Equal(t, models.StatusOK, res.Status)
	assert.Equal(t, registry.OpFundNAV, f.lastOp)
	assert.Equal(t, 1.2345, res.Payload.Rows[0]["unit_nav"])
}
