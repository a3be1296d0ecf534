package market

import (
	"context"
	"time"

	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
	"github.com/joywufn/portfolio-insight/backend/pkg/redis"
)

// cacheGet reads key into dest; errors are logged and count as a miss
func cacheGet(ctx context.Context, cache *redis.Cache, log *logger.Logger, key string, dest interface{}) bool {
	if cache == nil {
		return false
	}
	found, err := cache.Get(ctx, key, dest)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("Cache read failed")
		return false
	}
	return found
}

func cacheSet(ctx context.Context, cache *redis.Cache, log *logger.Logger, key string, value interface{}, ttl time.Duration) {
	if cache == nil {
		return
	}
	if err := cache.Set(ctx, key, value, ttl); err != nil {
		log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}
