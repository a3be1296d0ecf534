package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/internal/external/alphavantage"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
	"github.com/joywufn/portfolio-insight/backend/pkg/redis"
)

// DefaultSearchLimit caps search results when no limit is given
const DefaultSearchLimit = 10

// QuoteSource is a live quote API
type QuoteSource interface {
	Configured() bool
	GlobalQuote(ctx context.Context, symbol string) (*contracts.Quote, error)
	SymbolSearch(ctx context.Context, keywords string, limit int) ([]contracts.SearchMatch, error)
	DailySeries(ctx context.Context, symbol string) ([]contracts.DailyBar, error)
}

// QuoteService resolves quotes from cache, then the live source, then
// the mock generator. Only live answers are cached.
// ⭐ SSOT: single-symbol quotes, search and charts
type QuoteService struct {
	source QuoteSource
	mock   *MockQuotes
	cache  *redis.Cache
	logger *logger.Logger
}

// NewQuoteService creates a new quote service. source and cache may be nil.
func NewQuoteService(source QuoteSource, mock *MockQuotes, cache *redis.Cache, log *logger.Logger) *QuoteService {
	if mock == nil {
		mock = NewMockQuotes(nil)
	}
	return &QuoteService{
		source: source,
		mock:   mock,
		cache:  cache,
		logger: log.WithComponent("quotes"),
	}
}

func (s *QuoteService) live() bool {
	return s.source != nil && s.source.Configured()
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !alphavantage.ValidateSymbol(symbol) {
		return "", fmt.Errorf("%w: invalid symbol %q", contracts.ErrInvalidInput, symbol)
	}
	return symbol, nil
}

// Quote returns the latest quote for symbol; it fails only for
// malformed symbols
func (s *QuoteService) Quote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var cached contracts.Quote
	if cacheGet(ctx, s.cache, s.logger, redis.QuoteKey(symbol), &cached) {
		return &cached, nil
	}

	if s.live() {
		quote, err := s.source.GlobalQuote(ctx, symbol)
		if err == nil {
			if p, ok := profiles[symbol]; ok {
				quote.Name, quote.Sector = p.name, p.sector
			}
			if quote.Exchange == "" {
				quote.Exchange = exchangeOf(symbol)
			}
			cacheSet(ctx, s.cache, s.logger, redis.QuoteKey(symbol), quote, redis.TTLShort)
			return quote, nil
		}
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Live quote failed, using mock data")
	}

	return s.mock.Quote(symbol), nil
}

// Search finds symbols matching query
func (s *QuoteService) Search(ctx context.Context, query string, limit int) ([]contracts.SearchMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", contracts.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var cached []contracts.SearchMatch
	if cacheGet(ctx, s.cache, s.logger, redis.SearchKey(query), &cached) {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	if s.live() {
		matches, err := s.source.SymbolSearch(ctx, query, limit)
		if err == nil {
			cacheSet(ctx, s.cache, s.logger, redis.SearchKey(query), matches, redis.TTLMedium)
			return matches, nil
		}
		s.logger.WithError(err).WithField("query", query).Warn("Live search failed, using local table")
	}

	return s.mock.Search(query, limit), nil
}

// Chart returns up to 50 recent daily bars for symbol
func (s *QuoteService) Chart(ctx context.Context, symbol string) (*contracts.Chart, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var cached contracts.Chart
	if cacheGet(ctx, s.cache, s.logger, redis.ChartKey(symbol), &cached) {
		return &cached, nil
	}

	if s.live() {
		bars, err := s.source.DailySeries(ctx, symbol)
		if err == nil && len(bars) > 0 {
			chart := &contracts.Chart{Symbol: symbol, Bars: bars, DataSource: contracts.SourceAlphaVantage}
			cacheSet(ctx, s.cache, s.logger, redis.ChartKey(symbol), chart, redis.TTLDaily)
			return chart, nil
		}
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("Live chart failed, using mock series")
		}
	}

	return &contracts.Chart{
		Symbol:     symbol,
		Bars:       s.mock.Series(symbol, alphavantage.DailySeriesLength),
		DataSource: contracts.SourceMock,
		IsMock:     true,
	}, nil
}
