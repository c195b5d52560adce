package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/patientcare/backend/pkg/config"
	"github.com/zatekoja/patientcare/backend/pkg/retry"
)

// Client represents a Redis client
type Client struct {
	client *redis.Client
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	retryConfig := retry.DefaultConfig("redis")
	retryConfig.MaxAttempts = 3
	retryConfig.MaxTotalTimeout = 10 * time.Second
	retryConfig.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Redis ping failed")
	}

	if err := retry.Do(ctx, retryConfig, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{client: client}, nil
}

// Wrap adapts an existing go-redis client (used by tests)
func Wrap(client *redis.Client) *Client {
	return &Client{client: client}
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping verifies the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
