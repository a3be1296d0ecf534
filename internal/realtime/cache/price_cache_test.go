package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joywufn/portfolio-insight/backend/internal/realtime"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

func newTestCache(now *time.Time) *PriceCache {
	c := NewPriceCache(time.Minute, logger.Nop())
	c.now = func() time.Time { return *now }
	return c
}

func tick(symbol string, price float64, at time.Time, source realtime.PriceSource) realtime.PriceTick {
	return realtime.PriceTick{Symbol: symbol, Price: price, Timestamp: at, Source: string(source)}
}

func TestPriceCache_Update(t *testing.T) {
	now := time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)
	c := newTestCache(&now)

	assert.True(t, c.Update(tick("AAPL", 185, now, realtime.SourceSimulator)))
	assert.False(t, c.Update(tick("AAPL", 180, now.Add(-time.Second), realtime.SourceQuoteService)), "older tick")
	assert.False(t, c.Update(tick("AAPL", 181, now, realtime.SourceSimulator)), "same age, same priority")
	assert.True(t, c.Update(tick("AAPL", 186, now, realtime.SourceQuoteService)), "same age, higher priority")
	assert.True(t, c.Update(tick("AAPL", 187, now.Add(time.Second), realtime.SourceSimulator)))

	got, ok := c.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 187.0, got.Price)
	assert.False(t, got.IsStale)

	_, ok = c.Get("TSLA")
	assert.False(t, ok)
}

func TestPriceCache_StaleAndClean(t *testing.T) {
	start := time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)
	now := start
	c := newTestCache(&now)

	c.Update(tick("AAPL", 185, start, realtime.SourceSimulator))
	c.Update(tick("TSLA", 248, start.Add(50*time.Second), realtime.SourceQuoteService))

	now = start.Add(90 * time.Second)

	ticks := c.GetMany([]string{"TSLA", "MSFT", "AAPL"})
	require.Len(t, ticks, 2)
	assert.Equal(t, "TSLA", ticks[0].Symbol)
	assert.False(t, ticks[0].IsStale)
	assert.True(t, ticks[1].IsStale)

	stats := c.Stats()
	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, 1, stats.StaleCount)
	assert.Equal(t, 1, stats.FreshCount)
	assert.Equal(t, 1, stats.BySource[string(realtime.SourceSimulator)])

	assert.Equal(t, 1, c.CleanStale())
	assert.Equal(t, 1, c.Len())

	c.Delete("TSLA")
	assert.Equal(t, 0, c.Len())
}
