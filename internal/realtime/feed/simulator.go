package feed

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/joywufn/portfolio-insight/backend/internal/realtime"
	"github.com/joywufn/portfolio-insight/backend/internal/realtime/cache"
	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

const (
	// maxMovePercent bounds each tick around the base price
	maxMovePercent = 0.5

	minVolume = 1_000_000
	maxVolume = 50_000_000
)

// Simulator produces ticks for the broadcast universe: each round moves
// every symbol up to ±0.5% from its base price and stores it in the cache.
// ⭐ SSOT: simulated real-time prices are produced here only
type Simulator struct {
	symbols  []realtime.Symbol
	cache    *cache.PriceCache
	logger   *logger.Logger
	interval time.Duration
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSimulator creates a simulator; a nil rng is seeded from the clock
func NewSimulator(symbols []realtime.Symbol, priceCache *cache.PriceCache, interval time.Duration, rng *rand.Rand, log *logger.Logger) *Simulator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Simulator{
		symbols:  symbols,
		cache:    priceCache,
		logger:   log.WithComponent("simulator"),
		interval: interval,
		now:      time.Now,
		rng:      rng,
		stopCh:   make(chan struct{}),
	}
}

// Start seeds the cache with one round and keeps ticking until ctx ends
// or Stop is called
func (s *Simulator) Start(ctx context.Context) {
	s.Tick()

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop stops the tick loop and waits for it to exit
func (s *Simulator) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Simulator) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithFields(map[string]interface{}{
		"interval": s.interval.String(),
		"symbols":  len(s.symbols),
	}).Info("Started price simulator")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick produces one round of prices and stores those not covered by a
// fresh live quote
func (s *Simulator) Tick() []realtime.PriceTick {
	now := s.now()
	ticks := make([]realtime.PriceTick, 0, len(s.symbols))

	s.rngMu.Lock()
	for _, sym := range s.symbols {
		movePercent := (s.rng.Float64()*2 - 1) * maxMovePercent
		price := sym.BasePrice * (1 + movePercent/100)

		ticks = append(ticks, realtime.PriceTick{
			Symbol:        sym.Symbol,
			Name:          sym.Name,
			Price:         twstock.Round2(price),
			Change:        twstock.Round2(price - sym.BasePrice),
			ChangePercent: twstock.Round2(movePercent),
			Volume:        minVolume + s.rng.Int64N(maxVolume-minVolume+1),
			Timestamp:     now,
			Source:        string(realtime.SourceSimulator),
		})
	}
	s.rngMu.Unlock()

	for _, tick := range ticks {
		if s.hasLivePrice(tick.Symbol) {
			continue
		}
		s.cache.Update(tick)
	}
	return ticks
}

func (s *Simulator) hasLivePrice(symbol string) bool {
	prev, ok := s.cache.Get(symbol)
	if !ok || prev.IsStale {
		return false
	}
	return realtime.PriceSource(prev.Source).Priority() > realtime.SourceSimulator.Priority()
}

// Snapshot returns the cached tick of every tracked symbol, in universe order
func (s *Simulator) Snapshot() []realtime.PriceTick {
	symbols := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		symbols[i] = sym.Symbol
	}
	return s.cache.GetMany(symbols)
}
