package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"stockmcp/internal/models"
)

// RedisTier is the optional shared cache level. It lets multiple gateway
// instances (or restarts) reuse normalized results within their TTL.
type RedisTier struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisTier connects to Redis and verifies the connection.
func NewRedisTier(redisURL, redisPassword string, logger *slog.Logger) (*RedisTier, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if redisPassword != "" {
		opt.Password = redisPassword
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisTier{
		client: client,
		logger: logger.With("component", "redis_tier"),
	}, nil
}

func tierKey(key string) string {
	return "tool:" + key
}

// Get fetches a cached result. A missing key returns nil with no error.
func (t *RedisTier) Get(ctx context.Context, key string) (*models.ToolResult, error) {
	jsonBytes, err := t.client.Get(ctx, tierKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}

	var result models.ToolResult
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil, fmt.Errorf("json unmarshal failed: %w", err)
	}

	t.logger.Debug("tier_hit", "key", key)
	return &result, nil
}

// Set stores a result with the entry's TTL.
func (t *RedisTier) Set(ctx context.Context, key string, result *models.ToolResult, ttl time.Duration) error {
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}

	if err := t.client.Set(ctx, tierKey(key), jsonBytes, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	t.logger.Debug("tier_stored",
		"key", key,
		"ttl_sec", ttl.Seconds(),
		"size_bytes", len(jsonBytes),
	)
	return nil
}

// Close closes the Redis connection.
func (t *RedisTier) Close() error {
	return t.client.Close()
}
