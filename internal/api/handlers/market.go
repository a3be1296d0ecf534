package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/internal/market"
	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// TaiwanMarket serves the Taiwan market views
type TaiwanMarket interface {
	Summary(ctx context.Context) *market.Summary
	IndicesView(ctx context.Context) *market.IndicesView
	LimitStocks(ctx context.Context) *twstock.LimitScanResult
	Stats(ctx context.Context) *market.Stats
}

// QuoteLookup serves single-symbol quotes, search and charts
type QuoteLookup interface {
	Quote(ctx context.Context, symbol string) (*contracts.Quote, error)
	Search(ctx context.Context, query string, limit int) ([]contracts.SearchMatch, error)
	Chart(ctx context.Context, symbol string) (*contracts.Chart, error)
}

// StockSearcher searches locally known listings
type StockSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]*contracts.Stock, error)
}

// MarketHandler handles market data endpoints
// ⭐ SSOT: market data API handlers
type MarketHandler struct {
	taiwan    TaiwanMarket
	quotes    QuoteLookup
	stocks    StockSearcher
	exchanges map[string]*twstock.Exchange
	logger    *logger.Logger
	now       func() time.Time
}

// NewMarketHandler creates a new market handler. exchanges overrides the
// built-in session windows by upper-case name; stocks may be nil.
func NewMarketHandler(taiwan TaiwanMarket, quotes QuoteLookup, stocks StockSearcher, exchanges map[string]*twstock.Exchange, log *logger.Logger) *MarketHandler {
	return &MarketHandler{
		taiwan:    taiwan,
		quotes:    quotes,
		stocks:    stocks,
		exchanges: exchanges,
		logger:    log.WithComponent("market_api"),
		now:       time.Now,
	}
}

// GetTaiwanOverview returns indices, limit stocks and session
// GET /api/taiwan/market-overview/
func (h *MarketHandler) GetTaiwanOverview(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.taiwan.Summary(r.Context()))
}

// GetTaiwanIndices returns TAIEX and the OTC index
// GET /api/taiwan/indices/
func (h *MarketHandler) GetTaiwanIndices(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.taiwan.IndicesView(r.Context()))
}

// GetTaiwanLimitStocks returns the latest limit scan
// GET /api/taiwan/limit-stocks/
func (h *MarketHandler) GetTaiwanLimitStocks(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.taiwan.LimitStocks(r.Context()))
}

// GetTaiwanStats returns limit ratio, sentiment and trading phase
// GET /api/taiwan/market-stats/
func (h *MarketHandler) GetTaiwanStats(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.taiwan.Stats(r.Context()))
}

// GetMarketStatus returns the session state of an exchange
// GET /api/market-status/?exchange=NYSE
func (h *MarketHandler) GetMarketStatus(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("exchange"))
	if name == "" {
		name = "NYSE"
	}

	exchange, ok := h.exchanges[strings.ToUpper(name)]
	if !ok {
		var err error
		exchange, err = twstock.ExchangeByName(name)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	respondData(w, http.StatusOK, exchange.SessionFor(h.now()))
}

// GetQuote returns the latest quote of a symbol
// GET /api/real-data/{symbol}/
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.quotes.Quote(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		respondServiceError(w, h.logger, err, "fetch quote")
		return
	}
	respondData(w, http.StatusOK, quote)
}

// GetChart returns recent daily bars of a symbol
// GET /api/real-data/chart/{symbol}/
func (h *MarketHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	chart, err := h.quotes.Chart(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		respondServiceError(w, h.logger, err, "fetch chart")
		return
	}
	respondData(w, http.StatusOK, chart)
}

// SearchResponse combines upstream matches with stored listings
type SearchResponse struct {
	Query   string                  `json:"query"`
	Results []contracts.SearchMatch `json:"results"`
	Local   []*contracts.Stock      `json:"local"`
}

// Search finds symbols by keyword
// GET /api/search/?q=apple&limit=10
func (h *MarketHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := queryInt(r, "limit", market.DefaultSearchLimit)

	matches, err := h.quotes.Search(ctx, query, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "search symbols")
		return
	}

	resp := SearchResponse{Query: query, Results: matches, Local: []*contracts.Stock{}}
	if h.stocks != nil {
		local, err := h.stocks.Search(ctx, query, limit)
		if err != nil {
			h.logger.WithError(err).WithField("query", query).Warn("Local stock search failed")
		} else {
			resp.Local = local
		}
	}

	respondData(w, http.StatusOK, resp)
}
