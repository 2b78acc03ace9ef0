// Package dispatch is the gateway's control flow: it resolves a requested
// tool, validates and canonicalizes its arguments, and routes the call
// through the response cache to the provider adapter and normalizer.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"stockmcp/internal/cache"
	"stockmcp/internal/instrumentation"
	"stockmcp/internal/models"
	"stockmcp/internal/normalize"
	"stockmcp/internal/registry"
)

// Fetcher is the provider adapter boundary: one upstream call per
// operation, canonical arguments in, raw rows or a classified error out.
type Fetcher interface {
	Fetch(ctx context.Context, op string, args map[string]string) ([]map[string]any, error)
}

// TTLConfig maps volatility classes and per-tool overrides to durations.
type TTLConfig struct {
	Class     map[registry.TTLClass]time.Duration
	Overrides map[string]time.Duration
}

// Dispatcher is the single entry point for tool invocations.
type Dispatcher struct {
	registry *registry.Registry
	cache    *cache.Store
	fetcher  Fetcher
	ttl      TTLConfig
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// New creates a dispatcher.
func New(reg *registry.Registry, store *cache.Store, fetcher Fetcher, ttl TTLConfig, logger *slog.Logger, metrics *instrumentation.Metrics) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		cache:    store,
		fetcher:  fetcher,
		ttl:      ttl,
		logger:   logger.With("component", "dispatcher"),
		metrics:  metrics,
	}
}

// Handle executes one ToolRequest to completion. Every failure path
// resolves to a ToolResult with status=error; nothing panics past this
// boundary.
func (d *Dispatcher) Handle(ctx context.Context, req models.ToolRequest) (result *models.ToolResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dispatch_panic", "tool", req.Tool, "panic", r)
			result = models.ErrResult(req.RequestID,
				models.NewToolError(models.KindInternal, "internal gateway error"))
		}
		d.metrics.RecordRequest(req.Tool, string(result.Status), time.Since(start).Seconds())
	}()

	desc, err := d.registry.Resolve(req.Tool)
	if err != nil {
		d.logger.Warn("unknown_tool", "tool", req.Tool, "request_id", req.RequestID)
		return models.ErrResult(req.RequestID, err)
	}

	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}

	if err := desc.Validate(args); err != nil {
		d.logger.Warn("invalid_arguments",
			"tool", req.Tool,
			"request_id", req.RequestID,
			"error", err,
		)
		return models.ErrResult(req.RequestID, err)
	}

	cargs, err := canonicalArgs(desc, args)
	if err != nil {
		return models.ErrResult(req.RequestID, err)
	}

	key := cacheKey(desc.Name, cargs)
	ttl := registry.TTLFor(desc, d.ttl.Class, d.ttl.Overrides)

	res, err := d.cache.GetOrFetch(ctx, key, ttl, func(fctx context.Context) (*models.ToolResult, error) {
		return d.fetch(fctx, desc, cargs)
	})
	if err != nil {
		te := models.AsToolError(err)
		d.logger.Error("tool_failed",
			"tool", req.Tool,
			"request_id", req.RequestID,
			"kind", string(te.Kind),
			"error", te.Message,
		)
		return models.ErrResult(req.RequestID, te)
	}

	d.logger.Info("tool_ok",
		"tool", req.Tool,
		"request_id", req.RequestID,
		"rows", len(res.Payload.Rows),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return res.WithRequestID(req.RequestID)
}

// fetch is the cache-miss path: one upstream call, then normalization into
// the tool's canonical result shape.
func (d *Dispatcher) fetch(ctx context.Context, desc *registry.Descriptor, cargs map[string]string) (*models.ToolResult, error) {
	raw, err := d.fetcher.Fetch(ctx, desc.Upstream, cargs)
	if err != nil {
		return nil, err
	}

	rows, warnings, err := normalize.Rows(desc.ResultFields, raw)
	if err != nil {
		return nil, err
	}

	for _, w := range warnings {
		d.logger.Warn("field_dropped", "tool", desc.Name, "warning", w)
	}

	return models.OkResult("", &models.Payload{
		Tool:     desc.Name,
		Rows:     rows,
		Fields:   desc.ResultFields,
		Warnings: warnings,
	}), nil
}
