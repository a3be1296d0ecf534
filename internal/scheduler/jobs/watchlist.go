package jobs

import (
	"context"
	"fmt"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/internal/stockdata"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// SymbolLister lists every symbol on any watchlist
type SymbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

// WatchlistSyncJob stores a quote snapshot for every watched symbol
type WatchlistSyncJob struct {
	symbols SymbolLister
	quotes  contracts.QuoteProvider
	stocks  contracts.StockRepository
	logger  *logger.Logger
}

// NewWatchlistSyncJob creates a new watchlist sync job
func NewWatchlistSyncJob(symbols SymbolLister, quotes contracts.QuoteProvider, stocks contracts.StockRepository, log *logger.Logger) *WatchlistSyncJob {
	return &WatchlistSyncJob{
		symbols: symbols,
		quotes:  quotes,
		stocks:  stocks,
		logger:  log.WithField("job", "watchlist_sync"),
	}
}

// Name returns the job name
func (j *WatchlistSyncJob) Name() string {
	return "watchlist_sync"
}

// Description returns the job summary
func (j *WatchlistSyncJob) Description() string {
	return "Snapshot quotes of watched symbols into stock_prices"
}

// Schedule returns the cron schedule (hourly)
func (j *WatchlistSyncJob) Schedule() string {
	return "0 0 * * * *"
}

// Run executes the sync. Per-symbol failures are logged; the run fails
// only when nothing could be stored.
func (j *WatchlistSyncJob) Run(ctx context.Context) error {
	symbols, err := j.symbols.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("list watched symbols: %w", err)
	}

	stored := 0
	var lastErr error
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		quote, err := j.quotes.Quote(ctx, symbol)
		if err != nil {
			lastErr = err
			j.logger.WithError(err).WithField("symbol", symbol).Warn("Quote failed")
			continue
		}
		if err := j.stocks.SavePrice(ctx, stockdata.PriceFromQuote(quote)); err != nil {
			lastErr = err
			j.logger.WithError(err).WithField("symbol", symbol).Warn("Saving price failed")
			continue
		}
		stored++
	}

	j.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"stored":  stored,
	}).Info("Watchlist sync completed")

	if stored == 0 && lastErr != nil {
		return fmt.Errorf("watchlist sync stored nothing: %w", lastErr)
	}
	return nil
}
