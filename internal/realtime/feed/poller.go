package feed

import (
	"context"
	"sync"
	"time"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/internal/realtime"
	"github.com/joywufn/portfolio-insight/backend/internal/realtime/cache"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// QuotePoller polls the quote service and stores live prices ahead of
// simulated ones. Mock quotes are discarded.
type QuotePoller struct {
	symbols  []realtime.Symbol
	quotes   contracts.QuoteProvider
	cache    *cache.PriceCache
	logger   *logger.Logger
	interval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewQuotePoller creates a new poller
func NewQuotePoller(symbols []realtime.Symbol, quotes contracts.QuoteProvider, priceCache *cache.PriceCache, interval time.Duration, log *logger.Logger) *QuotePoller {
	return &QuotePoller{
		symbols:  symbols,
		quotes:   quotes,
		cache:    priceCache,
		logger:   log.WithComponent("quote_poller"),
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start polls once and then every interval until ctx ends or Stop is called
func (p *QuotePoller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.Poll(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.Poll(ctx)
			}
		}
	}()
}

// Stop stops polling and waits for the loop to exit
func (p *QuotePoller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

// Poll fetches every symbol once and returns how many live prices were stored
func (p *QuotePoller) Poll(ctx context.Context) int {
	stored := 0
	for _, sym := range p.symbols {
		if ctx.Err() != nil {
			break
		}

		quote, err := p.quotes.Quote(ctx, sym.Symbol)
		if err != nil {
			p.logger.WithError(err).WithField("symbol", sym.Symbol).Warn("Quote poll failed")
			continue
		}
		if quote.IsMock {
			continue
		}

		tick := realtime.TickFromQuote(quote, realtime.SourceQuoteService)
		if tick.Name == "" {
			tick.Name = sym.Name
		}
		if p.cache.Update(tick) {
			stored++
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"symbols": len(p.symbols),
		"stored":  stored,
	}).Debug("Polled live quotes")
	return stored
}
