// Package provider wraps the upstream financial-data HTTP API behind one
// uniform fetch signature. Upstream quirks (rate limits, flaky availability,
// inconsistent envelopes) are absorbed here; only classified errors with
// sanitized messages cross the boundary.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"stockmcp/internal/instrumentation"
	"stockmcp/internal/models"
	"stockmcp/internal/registry"
)

// endpoints maps each upstream operation to its API path. One operation,
// exactly one upstream call.
var endpoints = map[string]string{
	registry.OpStockDaily:     "/api/stock/daily",
	registry.OpIndexDaily:     "/api/index/daily",
	registry.OpIndexPE:        "/api/index/pe",
	registry.OpIndexPB:        "/api/index/pb",
	registry.OpFundNames:      "/api/fund/names",
	registry.OpFundNAV:        "/api/fund/nav",
	registry.OpFundBasic:      "/api/fund/basic",
	registry.OpFundHoldings:   "/api/fund/holdings",
	registry.OpFundIndustry:   "/api/fund/industry",
	registry.OpFundRating:     "/api/fund/rating",
	registry.OpFundManagers:   "/api/fund/managers",
	registry.OpETFSpot:        "/api/etf/spot",
	registry.OpETFDaily:       "/api/etf/daily",
	registry.OpMoneyFund:      "/api/fund/money",
	registry.OpFundEstimation: "/api/fund/estimation",
	registry.OpFundRanking:    "/api/fund/rank",
	registry.OpFundPurchase:   "/api/fund/purchase",
	registry.OpFundFees:       "/api/fund/fees",
	registry.OpFundPosition:   "/api/fund/position",
	registry.OpStockNews:      "/api/stock/news",
}

// envelope is the provider's response wrapper. Business code 0 means ok;
// any other code signals the requested entity does not exist.
type envelope struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Data    []map[string]any `json:"data"`
}

// Config holds the provider client knobs.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	RateLimit   float64 // requests per second to the provider
	RateBurst   int

	// Circuit breaker: consecutive transport failures before the circuit
	// opens, and how long it stays open.
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

// Client issues upstream calls with outbound rate limiting, a circuit
// breaker, and bounded retries for transient failures.
type Client struct {
	http        *http.Client
	baseURL     string
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[[]map[string]any]
	maxAttempts int
	baseBackoff time.Duration
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

// New creates a provider client.
func New(cfg Config, logger *slog.Logger, metrics *instrumentation.Metrics) *Client {
	c := &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		logger:      logger.With("component", "provider"),
		metrics:     metrics,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]map[string]any](gobreaker.Settings{
		Name:        "provider",
		MaxRequests: 1, // one probe in half-open state
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("breaker_state_change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// NotFound and malformed payloads are answers, not outages; only
		// transport-level failures may trip the circuit.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			te := models.AsToolError(err)
			return te.Kind != models.KindUpstreamUnavailable && te.Kind != models.KindRateLimited
		},
	})

	return c
}

// Fetch performs the upstream call for one operation with canonical
// arguments and returns the provider's raw rows. Retries are bounded and
// apply only to rate-limit and availability failures, with exponential
// backoff between attempts.
func (c *Client) Fetch(ctx context.Context, op string, args map[string]string) ([]map[string]any, error) {
	path, ok := endpoints[op]
	if !ok {
		return nil, models.NewToolError(models.KindInternal, "unmapped upstream operation %q", op)
	}

	rows, err := c.breaker.Execute(func() ([]map[string]any, error) {
		return c.fetchWithRetry(ctx, op, path, args)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, models.NewToolError(models.KindUpstreamUnavailable,
				"provider temporarily unavailable (circuit open)")
		}
		return nil, err
	}
	return rows, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, op, path string, args map[string]string) ([]map[string]any, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		rows, err := c.fetchOnce(ctx, path, args)
		if err == nil {
			c.metrics.RecordProviderAttempt(op, "ok")
			if attempt > 1 {
				c.logger.Info("provider_recovered", "operation", op, "attempt", attempt)
			}
			return rows, nil
		}
		lastErr = err

		te := models.AsToolError(err)
		c.metrics.RecordProviderAttempt(op, string(te.Kind))
		if !te.Kind.Retryable() || attempt == c.maxAttempts {
			break
		}

		delay := backoffDelay(c.baseBackoff, attempt)
		c.logger.Warn("provider_retry",
			"operation", op,
			"attempt", attempt,
			"kind", string(te.Kind),
			"backoff_ms", delay.Milliseconds(),
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, models.NewToolError(models.KindUpstreamUnavailable,
				"provider call cancelled while backing off")
		}
	}
	return nil, lastErr
}

// backoffDelay returns the exponential delay before the next attempt:
// base, 2*base, 4*base, ... Non-decreasing by construction.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base << (attempt - 1)
}

func (c *Client) fetchOnce(ctx context.Context, path string, args map[string]string) ([]map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.NewToolError(models.KindUpstreamUnavailable, "provider call cancelled")
	}

	q := url.Values{}
	for k, v := range args {
		q.Set(k, v)
	}

	u := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, models.NewToolError(models.KindInternal, "failed to build provider request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Network error or timeout. No provider detail leaves this layer.
		return nil, models.NewToolError(models.KindUpstreamUnavailable,
			"provider unreachable or timed out")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, classifyStatus(resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, models.NewToolError(models.KindMalformedUpstream,
			"provider response is not valid JSON")
	}

	if env.Code != 0 {
		// Business-level miss: unknown code, no data for the entity.
		return nil, models.NewToolError(models.KindNotFound,
			"requested entity not found upstream")
	}
	if env.Data == nil {
		return nil, models.NewToolError(models.KindMalformedUpstream,
			"provider response missing data payload")
	}

	return env.Data, nil
}

// classifyStatus maps an upstream HTTP status to the error taxonomy.
func classifyStatus(status int) *models.ToolError {
	switch {
	case status == http.StatusNotFound:
		return models.NewToolError(models.KindNotFound, "requested entity not found upstream")
	case status == http.StatusTooManyRequests:
		return models.NewToolError(models.KindRateLimited, "provider rate limit hit")
	case status == http.StatusRequestTimeout || status >= 500:
		return models.NewToolError(models.KindUpstreamUnavailable,
			"provider returned a transient failure")
	default:
		// The gateway validated the request before it got here, so a 4xx
		// rejection means the provider contract shifted underneath us.
		return models.NewToolError(models.KindMalformedUpstream,
			"provider rejected a validated request")
	}
}
