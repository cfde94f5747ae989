package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kickscout/sneaker-tracker/internal/models"
)

// TrendingCache keeps the trending listing in Redis for a short TTL so
// a popular endpoint does not hammer the database.
type TrendingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewTrendingCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *TrendingCache {
	if ttl == 0 {
		ttl = time.Minute
	}
	return &TrendingCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "trending_cache"),
	}
}

type loadFunc func(ctx context.Context) ([]*models.Shoe, error)

// Get serves the cached listing when fresh, otherwise loads and caches
// it. Cache trouble degrades to a direct load, never to an error.
func (c *TrendingCache) Get(ctx context.Context, limit int, load loadFunc) ([]*models.Shoe, error) {
	key := fmt.Sprintf("trending:%d", limit)

	if c.client != nil {
		cached, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var shoes []*models.Shoe
			if err := json.Unmarshal(cached, &shoes); err == nil {
				return shoes, nil
			}
			c.logger.Warn("dropping unreadable cache entry", "key", key)
		} else if err != redis.Nil {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
	}

	shoes, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if c.client != nil {
		encoded, err := json.Marshal(shoes)
		if err == nil {
			if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
				c.logger.Warn("cache write failed", "key", key, "error", err)
			}
		}
	}

	return shoes, nil
}
