package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values under "<prefix>:cache:<key>"
// ⭐ SSOT: cache helpers live here only
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A miss is (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// GetOrSet retrieves from cache or calls fn to populate it.
// Cache failures never fail the call; fn's result still reaches dest.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	if found, err := c.Get(ctx, key, dest); err == nil && found {
		return nil
	}

	value, err := fn()
	if err != nil {
		return err
	}

	_ = c.Set(ctx, key, value, ttl)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // realtime quotes
	TTLMedium = 10 * time.Minute // limit scans, search results
	TTLLong   = 1 * time.Hour    // company overviews
	TTLDaily  = 24 * time.Hour   // daily series
)

// QuoteKey is the cache key of a single-symbol quote
func QuoteKey(symbol string) string {
	return fmt.Sprintf("quote:%s", strings.ToUpper(symbol))
}

// LimitScanKey is the cache key of a TWSE limit scan for a trading date (YYYYMMDD)
func LimitScanKey(date string) string {
	return fmt.Sprintf("twse:limit:%s", date)
}

// IndicesKey is the cache key of the Taiwan index snapshot
func IndicesKey() string {
	return "tw:indices"
}

// SearchKey is the cache key of a symbol search
func SearchKey(query string) string {
	return fmt.Sprintf("search:%s", strings.ToLower(strings.TrimSpace(query)))
}

// ChartKey is the cache key of a daily series
func ChartKey(symbol string) string {
	return fmt.Sprintf("chart:%s", strings.ToUpper(symbol))
}
