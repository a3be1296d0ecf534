package jobs

import (
	"context"

	"github.com/joywufn/portfolio-insight/backend/internal/realtime/cache"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// CacheCleanupJob cleans stale prices from the realtime cache
type CacheCleanupJob struct {
	cache  *cache.PriceCache
	logger *logger.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job
func NewCacheCleanupJob(priceCache *cache.PriceCache, log *logger.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		cache:  priceCache,
		logger: log.WithField("job", "price_cache_cleanup"),
	}
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "price_cache_cleanup"
}

// Description returns the job summary
func (j *CacheCleanupJob) Description() string {
	return "Drop realtime prices older than the cache TTL"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *CacheCleanupJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run executes the cache cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	if count := j.cache.CleanStale(); count > 0 {
		j.logger.WithField("removed", count).Info("Cache cleanup completed")
	}
	return nil
}
