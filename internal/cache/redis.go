package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pedrovega1/it-helpdesk/internal/domain"
)

const listingKey = "tickets:all"

// RedisCache stores the listing snapshot in Redis with a server-side TTL.
// Any Redis failure degrades to a cache miss; the store stays authoritative.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache builds a Redis-backed listing cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached listing when present and fresh.
func (c *RedisCache) Get(ctx context.Context) ([]domain.Ticket, bool) {
	payload, err := c.client.Get(ctx, listingKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var tickets []domain.Ticket
	if err := json.Unmarshal(payload, &tickets); err != nil {
		c.logger.Warn("redis cache payload corrupt", zap.Error(err))
		return nil, false
	}
	return tickets, true
}

// Set stores the listing with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, tickets []domain.Ticket) {
	payload, err := json.Marshal(tickets)
	if err != nil {
		c.logger.Warn("redis cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, listingKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache write failed", zap.Error(err))
	}
}

// Invalidate deletes the cached listing.
func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, listingKey).Err(); err != nil {
		c.logger.Warn("redis cache invalidate failed", zap.Error(err))
	}
}
