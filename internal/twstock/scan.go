package twstock

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

// DefaultTopN caps each direction's list
const DefaultTopN = 20

// Data source labels
const (
	SourceTWSE   = "台灣證券交易所官方數據"
	SourceBackup = "備用數據 - 證交所API暫時無法連接"
	// NoDataMessage is shown to users when the upstream table is missing
	NoDataMessage = "無法連接台股證交所，請稍後重試"
)

// ScanSummary carries scan counts taken before truncation
type ScanSummary struct {
	TotalScanned   int    `json:"total_scanned"`
	LimitUpFound   int    `json:"limit_up_found"`
	LimitDownFound int    `json:"limit_down_found"`
	ScanTime       string `json:"scan_time"` // HH:MM:SS exchange-local
}

// LimitScanResult is the outcome of one limit scan.
// Available is false only when the upstream delivered no table at all.
type LimitScanResult struct {
	Available   bool              `json:"available"`
	LimitUp     []ClassifiedStock `json:"limit_up"`
	LimitDown   []ClassifiedStock `json:"limit_down"`
	Summary     ScanSummary       `json:"scan_summary"`
	MarketDate  string            `json:"market_date"`
	LastUpdated time.Time         `json:"last_updated"`
	DataSource  string            `json:"data_source"`
	Error       string            `json:"error,omitempty"`
	Session     MarketSession     `json:"session"`
}

// Scanner classifies and aggregates raw rows for one exchange.
// It is safe for concurrent use.
// ⭐ SSOT: limit-stock aggregation
type Scanner struct {
	exchange   *Exchange
	rule       *PriceTickRule
	topN       int
	dataSource string
	now        func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// ScannerOption configures a Scanner
type ScannerOption func(*Scanner)

// WithClock replaces time.Now
func WithClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) { s.now = now }
}

// WithRand replaces the random source used for limit-time estimates
func WithRand(rng *rand.Rand) ScannerOption {
	return func(s *Scanner) { s.rng = rng }
}

// WithTopN changes the per-direction cap; n <= 0 keeps the default
func WithTopN(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithTickRule replaces the tick table
func WithTickRule(rule *PriceTickRule) ScannerOption {
	return func(s *Scanner) { s.rule = rule }
}

// WithDataSource sets the data_source label of successful scans
func WithDataSource(label string) ScannerOption {
	return func(s *Scanner) { s.dataSource = label }
}

// NewScanner creates a scanner for exchange (TWSE when nil)
func NewScanner(exchange *Exchange, opts ...ScannerOption) *Scanner {
	if exchange == nil {
		exchange = TWSE()
	}
	s := &Scanner{
		exchange:   exchange,
		rule:       DefaultTickRule(),
		topN:       DefaultTopN,
		dataSource: SourceTWSE,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(s.now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return s
}

// Exchange returns the scanner's exchange
func (s *Scanner) Exchange() *Exchange {
	return s.exchange
}

// Classify classifies a single row. ok is false for rows that are
// unparsable or not near a limit.
func (s *Scanner) Classify(row RawQuoteRow) (ClassifiedStock, bool) {
	return s.classifyAt(row, s.now())
}

func (s *Scanner) classifyAt(row RawQuoteRow, now time.Time) (ClassifiedStock, bool) {
	stock, ok := classify(s.rule, s.exchange.Suffix, row)
	if !ok {
		return ClassifiedStock{}, false
	}
	stock.LimitTime = s.estimateLimitTime(now)
	return stock, true
}

// Scan classifies every row and returns the top lists. It never fails;
// an empty input yields an empty, available result.
func (s *Scanner) Scan(rows []RawQuoteRow) *LimitScanResult {
	now := s.now()
	result := s.base(now)
	result.Available = true
	result.DataSource = s.dataSource
	result.Summary.TotalScanned = len(rows)

	for _, row := range rows {
		stock, ok := s.classifyAt(row, now)
		if !ok {
			continue
		}
		if stock.LimitType == LimitUp {
			result.LimitUp = append(result.LimitUp, stock)
		} else {
			result.LimitDown = append(result.LimitDown, stock)
		}
	}

	result.Summary.LimitUpFound = len(result.LimitUp)
	result.Summary.LimitDownFound = len(result.LimitDown)

	sort.SliceStable(result.LimitUp, func(i, j int) bool {
		a, b := result.LimitUp[i], result.LimitUp[j]
		if a.ChangePercent != b.ChangePercent {
			return a.ChangePercent > b.ChangePercent
		}
		return a.Code < b.Code
	})
	sort.SliceStable(result.LimitDown, func(i, j int) bool {
		a, b := result.LimitDown[i], result.LimitDown[j]
		if a.ChangePercent != b.ChangePercent {
			return a.ChangePercent < b.ChangePercent
		}
		return a.Code < b.Code
	})

	if len(result.LimitUp) > s.topN {
		result.LimitUp = result.LimitUp[:s.topN]
	}
	if len(result.LimitDown) > s.topN {
		result.LimitDown = result.LimitDown[:s.topN]
	}
	return result
}

// NoData is the explicit result for a missing upstream table
func (s *Scanner) NoData(reason string) *LimitScanResult {
	result := s.base(s.now())
	result.DataSource = SourceBackup
	result.Error = NoDataMessage
	if reason != "" {
		result.Error = NoDataMessage + ": " + reason
	}
	return result
}

func (s *Scanner) base(now time.Time) *LimitScanResult {
	local := now.In(s.exchange.Location)
	return &LimitScanResult{
		LimitUp:     []ClassifiedStock{},
		LimitDown:   []ClassifiedStock{},
		Summary:     ScanSummary{ScanTime: local.Format("15:04:05")},
		MarketDate:  local.Format("2006-01-02"),
		LastUpdated: local,
		Session:     s.exchange.SessionFor(now),
	}
}

// estimateLimitTime picks a plausible HH:MM at which the limit was hit:
// between open and now during a session, otherwise anywhere within the
// most recent session. The value is a display heuristic.
func (s *Scanner) estimateLimitTime(now time.Time) string {
	open, end := s.exchange.LastSessionWindow(now)
	if s.exchange.IsOpen(now) {
		end = now.In(s.exchange.Location)
	}

	span := int(end.Sub(open) / time.Minute)
	if span < 0 {
		span = 0
	}

	s.mu.Lock()
	offset := s.rng.IntN(span + 1)
	s.mu.Unlock()

	return open.Add(time.Duration(offset) * time.Minute).Format("15:04")
}
