package cache

import (
	"sync"
	"time"

	"github.com/joywufn/portfolio-insight/backend/internal/realtime"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// PriceCache is an in-memory cache for real-time prices
// ⭐ SSOT: latest tick per symbol is held here only
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]*realtime.PriceTick
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
}

// NewPriceCache creates a new price cache; ticks older than ttl are stale
func NewPriceCache(ttl time.Duration, log *logger.Logger) *PriceCache {
	return &PriceCache{
		prices: make(map[string]*realtime.PriceTick),
		ttl:    ttl,
		logger: log.WithComponent("price_cache"),
		now:    time.Now,
	}
}

// Update stores tick unless the cache already holds newer data, or data
// of the same age from a higher priority source
func (c *PriceCache) Update(tick realtime.PriceTick) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, exists := c.prices[tick.Symbol]; exists {
		if tick.Timestamp.Before(existing.Timestamp) {
			c.logger.WithFields(map[string]interface{}{
				"symbol":     tick.Symbol,
				"new_time":   tick.Timestamp,
				"old_time":   existing.Timestamp,
				"new_source": tick.Source,
				"old_source": existing.Source,
			}).Debug("Rejected older price data")
			return false
		}

		if tick.Timestamp.Equal(existing.Timestamp) &&
			realtime.PriceSource(tick.Source).Priority() <= realtime.PriceSource(existing.Source).Priority() {
			return false
		}
	}

	tick.IsStale = false
	c.prices[tick.Symbol] = &tick
	return true
}

// Get returns a copy of the latest tick for symbol
func (c *PriceCache) Get(symbol string) (realtime.PriceTick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tick, exists := c.prices[symbol]
	if !exists {
		return realtime.PriceTick{}, false
	}
	return c.view(tick), true
}

// GetMany returns the known ticks for symbols, in the order given
func (c *PriceCache) GetMany(symbols []string) []realtime.PriceTick {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]realtime.PriceTick, 0, len(symbols))
	for _, symbol := range symbols {
		if tick, exists := c.prices[symbol]; exists {
			result = append(result, c.view(tick))
		}
	}
	return result
}

// view copies tick and flags it stale when older than the TTL
func (c *PriceCache) view(tick *realtime.PriceTick) realtime.PriceTick {
	out := *tick
	out.IsStale = c.now().Sub(tick.Timestamp) > c.ttl
	return out
}

// Delete removes price from cache
func (c *PriceCache) Delete(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.prices, symbol)
}

// Len returns the number of prices in cache
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.prices)
}

// CleanStale removes stale prices from cache
func (c *PriceCache) CleanStale() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0

	for symbol, tick := range c.prices {
		if now.Sub(tick.Timestamp) > c.ttl {
			delete(c.prices, symbol)
			count++
		}
	}

	if count > 0 {
		c.logger.WithField("count", count).Info("Cleaned stale prices from cache")
	}

	return count
}

// Stats returns cache statistics
func (c *PriceCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		TotalCount: len(c.prices),
		BySource:   make(map[string]int),
	}

	now := c.now()
	for _, tick := range c.prices {
		if now.Sub(tick.Timestamp) > c.ttl {
			stats.StaleCount++
		}
		stats.BySource[tick.Source]++
	}

	stats.FreshCount = stats.TotalCount - stats.StaleCount

	return stats
}

// CacheStats represents cache statistics
type CacheStats struct {
	TotalCount int            `json:"total_count"`
	FreshCount int            `json:"fresh_count"`
	StaleCount int            `json:"stale_count"`
	BySource   map[string]int `json:"by_source"`
}
