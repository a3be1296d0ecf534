package api

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joywufn/portfolio-insight/backend/internal/api/handlers"
	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/internal/market"
	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

type fakeTaiwan struct{}

func (fakeTaiwan) Summary(ctx context.Context) *market.Summary {
	return &market.Summary{MarketDate: "2024-01-15", MarketStatus: "closed"}
}

func (fakeTaiwan) IndicesView(ctx context.Context) *market.IndicesView {
	return &market.IndicesView{MarketDate: "2024-01-15", All: []contracts.Index{{Symbol: "^TWII"}}}
}

func (fakeTaiwan) LimitStocks(ctx context.Context) *twstock.LimitScanResult {
	return &twstock.LimitScanResult{Available: false, Error: twstock.NoDataMessage}
}

func (fakeTaiwan) Stats(ctx context.Context) *market.Stats {
	return &market.Stats{MarketDate: "2024-01-15"}
}

type fakeStocks struct {
	stocks []*contracts.Stock
}

func (f fakeStocks) Search(ctx context.Context, query string, limit int) ([]*contracts.Stock, error) {
	return f.stocks, nil
}

// fakePortfolios records the acting user and serves one portfolio
type fakePortfolios struct {
	user    string
	created *contracts.Portfolio
	holding *contracts.Holding
}

func (f *fakePortfolios) List(ctx context.Context, user string) ([]*contracts.Portfolio, error) {
	f.user = user
	return []*contracts.Portfolio{{ID: 1, User: user, Name: "長期投資"}}, nil
}

func (f *fakePortfolios) Get(ctx context.Context, user string, id int64) (*contracts.Portfolio, error) {
	f.user = user
	if id != 1 {
		return nil, contracts.ErrNotFound
	}
	return &contracts.Portfolio{ID: 1, User: user, Name: "長期投資"}, nil
}

func (f *fakePortfolios) Create(ctx context.Context, user string, p *contracts.Portfolio) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Name == "taken" {
		return contracts.ErrDuplicate
	}
	p.ID, p.User = 7, user
	f.created = p
	return nil
}

func (f *fakePortfolios) Update(ctx context.Context, user string, p *contracts.Portfolio) error {
	return p.Validate()
}

func (f *fakePortfolios) Delete(ctx context.Context, user string, id int64) error {
	return nil
}

func (f *fakePortfolios) Holdings(ctx context.Context, user string, portfolioID int64) ([]*contracts.Holding, error) {
	return []*contracts.Holding{}, nil
}

func (f *fakePortfolios) AddHolding(ctx context.Context, user string, portfolioID int64, h *contracts.Holding) error {
	if err := h.Validate(); err != nil {
		return err
	}
	h.ID, h.PortfolioID = 3, portfolioID
	f.holding = h
	return nil
}

func (f *fakePortfolios) UpdateHolding(ctx context.Context, user string, h *contracts.Holding) error {
	return nil
}

func (f *fakePortfolios) DeleteHolding(ctx context.Context, user string, id int64) error {
	return contracts.ErrNotFound
}

func (f *fakePortfolios) Analysis(ctx context.Context, user string, id int64) (*contracts.PortfolioAnalysis, error) {
	return &contracts.PortfolioAnalysis{PortfolioID: id}, nil
}

func (f *fakePortfolios) Performance(ctx context.Context, user string, id int64) (*contracts.PortfolioPerformance, error) {
	return &contracts.PortfolioPerformance{PortfolioID: id}, nil
}

type fakeWatchlist struct{}

func (fakeWatchlist) Groups(ctx context.Context, user string) ([]*contracts.WatchlistGroup, error) {
	return []*contracts.WatchlistGroup{}, nil
}

func (fakeWatchlist) CreateGroup(ctx context.Context, user string, group *contracts.WatchlistGroup) error {
	return group.Validate()
}

func (fakeWatchlist) Items(ctx context.Context, user string, groupID *int64) ([]*contracts.WatchlistItem, error) {
	return []*contracts.WatchlistItem{}, nil
}

func (fakeWatchlist) Item(ctx context.Context, user string, id int64) (*contracts.WatchlistItem, error) {
	return nil, contracts.ErrNotFound
}

func (fakeWatchlist) AddItem(ctx context.Context, user string, item *contracts.WatchlistItem) error {
	return item.Validate()
}

func (fakeWatchlist) UpdateItem(ctx context.Context, user string, item *contracts.WatchlistItem) error {
	return nil
}

func (fakeWatchlist) DeleteItem(ctx context.Context, user string, id int64) error {
	return nil
}

func (fakeWatchlist) Summary(ctx context.Context, user string) (*contracts.WatchlistSummary, error) {
	return &contracts.WatchlistSummary{}, nil
}

type fakeAlerts struct{}

func (fakeAlerts) List(ctx context.Context, user string) ([]*contracts.PriceAlert, error) {
	return []*contracts.PriceAlert{}, nil
}

func (fakeAlerts) Create(ctx context.Context, user string, alert *contracts.PriceAlert) error {
	return alert.Validate()
}

func (fakeAlerts) Delete(ctx context.Context, user string, id int64) error {
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *fakePortfolios) {
	t.Helper()
	log := logger.Nop()
	quotes := market.NewQuoteService(nil, market.NewMockQuotes(rand.New(rand.NewPCG(1, 2))), nil, log)
	stocks := fakeStocks{stocks: []*contracts.Stock{{Symbol: "2330.TW", Name: "台積電"}}}
	portfolios := &fakePortfolios{}

	router := NewRouter(Handlers{
		Market:    handlers.NewMarketHandler(fakeTaiwan{}, quotes, stocks, nil, log),
		Watchlist: handlers.NewWatchlistHandler(fakeWatchlist{}, log),
		Portfolio: handlers.NewPortfolioHandler(portfolios, log),
		Alerts:    handlers.NewAlertHandler(fakeAlerts{}, log),
		System:    handlers.NewSystemHandler(nil, nil, nil, nil, "test", log),
	}, "demo", log)
	return router, portfolios
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, router http.Handler, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec, env := do(t, router, http.MethodGet, "/api/status/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestRouter_TrailingSlash(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/api/taiwan/indices", "/api/taiwan/indices/"} {
		rec, env := do(t, router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, env.Success, path)
		assert.Contains(t, string(env.Data), "^TWII")
	}
}

func TestRouter_TaiwanEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{
		"/api/taiwan/market-overview/",
		"/api/taiwan/limit-stocks/",
		"/api/taiwan/market-stats/",
	} {
		rec, env := do(t, router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, env.Success, path)
	}

	_, env := do(t, router, http.MethodGet, "/api/taiwan/limit-stocks/", "", nil)
	var scan twstock.LimitScanResult
	require.NoError(t, json.Unmarshal(env.Data, &scan))
	assert.False(t, scan.Available)
	assert.Equal(t, twstock.NoDataMessage, scan.Error)
}

func TestRouter_MarketStatus(t *testing.T) {
	router, _ := newTestRouter(t)

	_, env := do(t, router, http.MethodGet, "/api/market-status/", "", nil)
	var session twstock.MarketSession
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, "NYSE", session.Exchange)

	_, env = do(t, router, http.MethodGet, "/api/market-status/?exchange=tw", "", nil)
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, "TWSE", session.Exchange)

	rec, env := do(t, router, http.MethodGet, "/api/market-status/?exchange=LSE", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestRouter_Quotes(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := do(t, router, http.MethodGet, "/api/real-data/aapl/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var quote contracts.Quote
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.True(t, quote.IsMock)

	rec, env = do(t, router, http.MethodGet, "/api/real-data/chart/AAPL/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var chart contracts.Chart
	require.NoError(t, json.Unmarshal(env.Data, &chart))
	assert.Equal(t, "AAPL", chart.Symbol)
	assert.NotEmpty(t, chart.Bars)

	rec, _ = do(t, router, http.MethodGet, "/api/real-data/$$$/", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Search(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := do(t, router, http.MethodGet, "/api/search/?q=apple&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.SearchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "apple", resp.Query)
	assert.LessOrEqual(t, len(resp.Results), 5)
	require.Len(t, resp.Local, 1)
	assert.Equal(t, "2330.TW", resp.Local[0].Symbol)

	rec, _ = do(t, router, http.MethodGet, "/api/search/", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_UserHeader(t *testing.T) {
	router, portfolios := newTestRouter(t)

	do(t, router, http.MethodGet, "/api/portfolios/", "", nil)
	assert.Equal(t, "demo", portfolios.user)

	do(t, router, http.MethodGet, "/api/portfolios/", "", map[string]string{UserHeader: "alice"})
	assert.Equal(t, "alice", portfolios.user)
}

func TestRouter_PortfolioErrors(t *testing.T) {
	router, portfolios := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"create", http.MethodPost, "/api/portfolios/", `{"name":"長期投資"}`, http.StatusCreated},
		{"create blank name", http.MethodPost, "/api/portfolios/", `{"name":" "}`, http.StatusBadRequest},
		{"create duplicate", http.MethodPost, "/api/portfolios/", `{"name":"taken"}`, http.StatusConflict},
		{"create bad json", http.MethodPost, "/api/portfolios/", `{`, http.StatusBadRequest},
		{"get", http.MethodGet, "/api/portfolios/1/", "", http.StatusOK},
		{"get missing", http.MethodGet, "/api/portfolios/9/", "", http.StatusNotFound},
		{"non-numeric id", http.MethodGet, "/api/portfolios/abc/", "", http.StatusNotFound},
		{"analysis", http.MethodGet, "/api/portfolios/1/analysis/", "", http.StatusOK},
		{"performance", http.MethodGet, "/api/portfolios/1/performance/", "", http.StatusOK},
		{"delete holding missing", http.MethodDelete, "/api/portfolio-holdings/4/", "", http.StatusNotFound},
		{"bad purchase date", http.MethodPost, "/api/portfolios/1/holdings/", `{"symbol":"AAPL","quantity":"1","average_cost":"1","purchase_date":"15/01/2024"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, router, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want < 300, env.Success)
		})
	}

	require.NotNil(t, portfolios.created)
	assert.Equal(t, "demo", portfolios.created.User)
}

func TestRouter_AddHolding(t *testing.T) {
	router, portfolios := newTestRouter(t)

	body := `{"symbol":"2330.tw","quantity":"10","average_cost":"580.5","purchase_date":"2024-01-15"}`
	rec, _ := do(t, router, http.MethodPost, "/api/portfolios/2/holdings/", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.NotNil(t, portfolios.holding)
	assert.Equal(t, int64(2), portfolios.holding.PortfolioID)
	assert.Equal(t, "2330.TW", portfolios.holding.Symbol)
	assert.True(t, portfolios.holding.AverageCost.Equal(decimal.RequireFromString("580.5")))
	assert.True(t, portfolios.holding.PurchaseDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestRouter_WatchlistAndAlerts(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"groups", http.MethodGet, "/api/watchlist/groups/", "", http.StatusOK},
		{"bad color", http.MethodPost, "/api/watchlist/groups/", `{"name":"科技股","color":"blue"}`, http.StatusBadRequest},
		{"items by group", http.MethodGet, "/api/watchlist/stocks/?group_id=1", "", http.StatusOK},
		{"bad group id", http.MethodGet, "/api/watchlist/stocks/?group_id=x", "", http.StatusBadRequest},
		{"add item", http.MethodPost, "/api/watchlist/stocks/", `{"symbol":"tsla","target_price":"300"}`, http.StatusCreated},
		{"missing item", http.MethodGet, "/api/watchlist/stocks/5/", "", http.StatusNotFound},
		{"summary", http.MethodGet, "/api/watchlist/summary/", "", http.StatusOK},
		{"alerts", http.MethodGet, "/api/price-alerts/", "", http.StatusOK},
		{"create alert", http.MethodPost, "/api/price-alerts/", `{"symbol":"AAPL","alert_type":"above","target_value":"200"}`, http.StatusCreated},
		{"unknown alert type", http.MethodPost, "/api/price-alerts/", `{"symbol":"AAPL","alert_type":"crosses","target_value":"1"}`, http.StatusBadRequest},
		{"delete alert", http.MethodDelete, "/api/price-alerts/3/", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, router, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_CORS(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/portfolios/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	methods := rec.Header().Get("Access-Control-Allow-Methods")
	assert.Contains(t, methods, http.MethodGet)
	assert.Contains(t, methods, http.MethodPost)
}

func TestRouter_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := do(t, router, http.MethodGet, "/api/nope/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}
