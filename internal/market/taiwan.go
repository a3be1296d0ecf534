package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/internal/external/twse"
	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
	"github.com/joywufn/portfolio-insight/backend/pkg/redis"
)

// Market status labels shown next to indices
const (
	StatusTrading = "開市"
	StatusClosed  = "休市"

	indexUnavailable = "數據獲取失敗"
	indexBackup      = "備用數據"
	summarySource    = "台股證交所 + 櫃買中心官方API"
)

// TWSESource supplies listed-market data
type TWSESource interface {
	FetchLimitRows(ctx context.Context, date time.Time) ([]twstock.RawQuoteRow, error)
	FetchTAIEX(ctx context.Context) (*contracts.Index, error)
}

// OTCSource supplies the OTC index
type OTCSource interface {
	FetchOTCIndex(ctx context.Context) (*contracts.Index, error)
}

// TaiwanService assembles Taiwan market views from the exchange clients
// ⭐ SSOT: Taiwan market overview, indices and limit scans
type TaiwanService struct {
	twse    TWSESource
	otc     OTCSource
	scanner *twstock.Scanner
	cache   *redis.Cache
	logger  *logger.Logger
	now     func() time.Time
}

// NewTaiwanService creates a new Taiwan market service. cache may be nil.
func NewTaiwanService(twseSource TWSESource, otc OTCSource, scanner *twstock.Scanner, cache *redis.Cache, log *logger.Logger) *TaiwanService {
	return &TaiwanService{
		twse:    twseSource,
		otc:     otc,
		scanner: scanner,
		cache:   cache,
		logger:  log.WithComponent("taiwan_market"),
		now:     time.Now,
	}
}

// WithClock replaces time.Now
func (s *TaiwanService) WithClock(now func() time.Time) *TaiwanService {
	s.now = now
	return s
}

// Exchange returns the exchange the service scans
func (s *TaiwanService) Exchange() *twstock.Exchange {
	return s.scanner.Exchange()
}

// MarketStatus is 開市 during the session, 休市 otherwise
func (s *TaiwanService) MarketStatus() string {
	if s.Exchange().IsOpen(s.now()) {
		return StatusTrading
	}
	return StatusClosed
}

// IndicesView groups index snapshots by board
type IndicesView struct {
	Main         []contracts.Index `json:"main_indices"`
	OTC          []contracts.Index `json:"otc_indices"`
	All          []contracts.Index `json:"all_indices"`
	MarketStatus string            `json:"market_status"`
	MarketDate   string            `json:"market_date"`
}

// Indices fetches TAIEX and the OTC index. Either fetch may fail; when
// both do a single placeholder index is returned and nothing is cached.
func (s *TaiwanService) Indices(ctx context.Context) []contracts.Index {
	var cached []contracts.Index
	if cacheGet(ctx, s.cache, s.logger, redis.IndicesKey(), &cached) {
		return cached
	}

	var (
		wg       sync.WaitGroup
		taiex    *contracts.Index
		otc      *contracts.Index
		taiexErr error
		otcErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		taiex, taiexErr = s.twse.FetchTAIEX(ctx)
	}()
	go func() {
		defer wg.Done()
		otc, otcErr = s.otc.FetchOTCIndex(ctx)
	}()
	wg.Wait()

	status := s.MarketStatus()
	indices := make([]contracts.Index, 0, 2)
	for _, r := range []struct {
		index *contracts.Index
		err   error
		name  string
	}{{taiex, taiexErr, "TAIEX"}, {otc, otcErr, "OTC"}} {
		if r.err != nil {
			s.logger.WithError(r.err).WithField("index", r.name).Warn("Index fetch failed")
			continue
		}
		r.index.MarketStatus = status
		indices = append(indices, *r.index)
	}

	if len(indices) == 0 {
		return []contracts.Index{s.placeholderIndex()}
	}

	cacheSet(ctx, s.cache, s.logger, redis.IndicesKey(), indices, redis.TTLShort)
	return indices
}

// IndicesView returns Indices split into main and OTC boards
func (s *TaiwanService) IndicesView(ctx context.Context) *IndicesView {
	all := s.Indices(ctx)
	view := &IndicesView{
		Main:         []contracts.Index{},
		OTC:          []contracts.Index{},
		All:          all,
		MarketStatus: s.MarketStatus(),
		MarketDate:   s.now().In(s.Exchange().Location).Format("2006-01-02"),
	}
	for _, idx := range all {
		if idx.Type == contracts.IndexOTC {
			view.OTC = append(view.OTC, idx)
		} else {
			view.Main = append(view.Main, idx)
		}
	}
	return view
}

func (s *TaiwanService) placeholderIndex() contracts.Index {
	return contracts.Index{
		Symbol:       twse.TAIEXSymbol,
		Name:         twse.TAIEXName,
		Type:         contracts.IndexMain,
		MarketStatus: indexUnavailable,
		DataSource:   indexBackup,
		LastUpdated:  s.now(),
	}
}

// LimitStocks scans the most recent session's daily quotes. Upstream
// failures produce an unavailable result rather than an error.
func (s *TaiwanService) LimitStocks(ctx context.Context) *twstock.LimitScanResult {
	open, _ := s.Exchange().LastSessionWindow(s.now())
	key := redis.LimitScanKey(open.Format("20060102"))

	var cached twstock.LimitScanResult
	if cacheGet(ctx, s.cache, s.logger, key, &cached) {
		return s.withCurrentSession(&cached)
	}

	rows, err := s.twse.FetchLimitRows(ctx, open)
	if err != nil {
		reason := ""
		if !errors.Is(err, twse.ErrNoTable) {
			reason = err.Error()
		}
		s.logger.WithError(err).WithField("date", open.Format("2006-01-02")).Warn("Limit scan unavailable")
		return s.scanner.NoData(reason)
	}

	result := s.scanner.Scan(rows)
	s.logger.WithFields(map[string]interface{}{
		"scanned":    result.Summary.TotalScanned,
		"limit_up":   result.Summary.LimitUpFound,
		"limit_down": result.Summary.LimitDownFound,
	}).Info("Limit scan completed")

	cacheSet(ctx, s.cache, s.logger, key, result, redis.TTLMedium)
	return result
}

// withCurrentSession replaces the session captured at scan time, which a
// cached result may carry across the open or close
func (s *TaiwanService) withCurrentSession(result *twstock.LimitScanResult) *twstock.LimitScanResult {
	result.Session = s.scanner.Exchange().SessionFor(s.now())
	return result
}

// RefreshLimitStocks drops the cached scan and rescans
func (s *TaiwanService) RefreshLimitStocks(ctx context.Context) *twstock.LimitScanResult {
	if s.cache != nil {
		open, _ := s.Exchange().LastSessionWindow(s.now())
		if err := s.cache.Delete(ctx, redis.LimitScanKey(open.Format("20060102"))); err != nil {
			s.logger.WithError(err).Warn("Failed to drop cached limit scan")
		}
	}
	return s.LimitStocks(ctx)
}

// IndexGroup names the main, OTC and full index lists
type IndexGroup struct {
	Main *contracts.Index  `json:"main"`
	OTC  *contracts.Index  `json:"otc"`
	All  []contracts.Index `json:"all"`
}

// LimitGroup is the limit-stock block of the overview
type LimitGroup struct {
	LimitUpCount   int                       `json:"limit_up_count"`
	LimitDownCount int                       `json:"limit_down_count"`
	LimitUp        []twstock.ClassifiedStock `json:"limit_up_stocks"`
	LimitDown      []twstock.ClassifiedStock `json:"limit_down_stocks"`
}

// Summary is the Taiwan market overview
type Summary struct {
	MarketDate   string                `json:"market_date"`
	MarketStatus string                `json:"market_status"`
	Indices      IndexGroup            `json:"indices"`
	LimitStocks  LimitGroup            `json:"limit_stocks"`
	ScanSummary  twstock.ScanSummary   `json:"scan_summary"`
	Session      twstock.MarketSession `json:"session"`
	DataSource   string                `json:"data_source"`
	Error        string                `json:"error,omitempty"`
	LastUpdated  time.Time             `json:"last_updated"`
}

// Summary combines indices, the limit scan and the session state
func (s *TaiwanService) Summary(ctx context.Context) *Summary {
	indices := s.Indices(ctx)
	limits := s.LimitStocks(ctx)
	now := s.now()

	summary := &Summary{
		MarketDate:   now.In(s.Exchange().Location).Format("2006-01-02"),
		MarketStatus: s.MarketStatus(),
		Indices:      IndexGroup{All: indices},
		LimitStocks: LimitGroup{
			LimitUpCount:   len(limits.LimitUp),
			LimitDownCount: len(limits.LimitDown),
			LimitUp:        limits.LimitUp,
			LimitDown:      limits.LimitDown,
		},
		ScanSummary: limits.Summary,
		Session:     s.Exchange().SessionFor(now),
		DataSource:  summarySource,
		Error:       limits.Error,
		LastUpdated: now,
	}
	for i := range indices {
		switch indices[i].Type {
		case contracts.IndexMain:
			if summary.Indices.Main == nil {
				summary.Indices.Main = &indices[i]
			}
		case contracts.IndexOTC:
			if summary.Indices.OTC == nil {
				summary.Indices.OTC = &indices[i]
			}
		}
	}
	return summary
}

// LimitSummary counts limit stocks for the stats view
type LimitSummary struct {
	TotalLimitUp   int    `json:"total_limit_up"`
	TotalLimitDown int    `json:"total_limit_down"`
	LimitRatio     string `json:"limit_ratio"`
}

// Stats is the Taiwan market statistics view
type Stats struct {
	MarketDate     string           `json:"market_date"`
	MarketStatus   string           `json:"market_status"`
	TradingSession twstock.Phase    `json:"trading_session"`
	Indices        IndexGroup       `json:"indices_summary"`
	Limits         LimitSummary     `json:"limit_summary"`
	Sentiment      SentimentReading `json:"market_sentiment"`
	LastUpdated    time.Time        `json:"last_updated"`
}

// Stats derives limit ratio, sentiment and trading phase from Summary
func (s *TaiwanService) Stats(ctx context.Context) *Stats {
	summary := s.Summary(ctx)
	now := s.now()
	local := now.In(s.Exchange().Location)

	mainChange := 0.0
	if summary.Indices.Main != nil {
		mainChange = summary.Indices.Main.ChangePercent
	}

	up, down := summary.LimitStocks.LimitUpCount, summary.LimitStocks.LimitDownCount
	return &Stats{
		MarketDate:     local.Format("2006-01-02 (Monday)"),
		MarketStatus:   summary.MarketStatus,
		TradingSession: s.Exchange().Phase(now),
		Indices:        IndexGroup{Main: summary.Indices.Main, OTC: summary.Indices.OTC},
		Limits: LimitSummary{
			TotalLimitUp:   up,
			TotalLimitDown: down,
			LimitRatio:     fmt.Sprintf("%d↑ / %d↓", up, down),
		},
		Sentiment:   Sentiment(up, down, mainChange),
		LastUpdated: now,
	}
}
