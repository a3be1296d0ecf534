package market

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
)

type profile struct {
	name     string
	sector   string
	base     float64
	min, max float64
}

// profiles of well-known symbols; prices anchor the mock generator
var profiles = map[string]profile{
	"AAPL":    {"Apple Inc.", "Technology", 227.50, 200, 250},
	"MSFT":    {"Microsoft Corporation", "Technology", 427.90, 400, 450},
	"GOOGL":   {"Alphabet Inc.", "Technology", 175.80, 160, 190},
	"AMZN":    {"Amazon.com Inc.", "Consumer Discretionary", 203.50, 180, 220},
	"TSLA":    {"Tesla Inc.", "Consumer Discretionary", 248.50, 220, 280},
	"NVDA":    {"NVIDIA Corporation", "Technology", 125.30, 110, 140},
	"META":    {"Meta Platforms Inc.", "Communication Services", 620.80, 580, 660},
	"NFLX":    {"Netflix Inc.", "Communication Services", 852.30, 800, 900},
	"2330.TW": {"台灣積體電路製造股份有限公司", "Semiconductor", 598.00, 580, 620},
	"2454.TW": {"聯發科技股份有限公司", "Semiconductor", 1285.00, 1200, 1350},
	"2317.TW": {"鴻海精密工業股份有限公司", "Electronics", 108.50, 100, 120},
	"0700.HK": {"騰訊控股有限公司", "Technology", 415.20, 400, 440},
}

const mockVolatility = 0.03

// MockQuotes generates plausible quotes and daily series when no live
// source answers. Safe for concurrent use.
type MockQuotes struct {
	now func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockQuotes creates a generator; a nil rng is seeded from the clock
func NewMockQuotes(rng *rand.Rand) *MockQuotes {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &MockQuotes{now: time.Now, rng: rng}
}

func (m *MockQuotes) float() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

func (m *MockQuotes) intN(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.IntN(n)
}

func (m *MockQuotes) profileFor(symbol string) profile {
	if p, ok := profiles[symbol]; ok {
		return p
	}
	return profile{
		name:   symbol + " Corporation",
		sector: "Technology",
		base:   50 + m.float()*450,
		min:    40,
		max:    600,
	}
}

// Quote moves the base price by up to ±3%, clamped to the symbol's range
func (m *MockQuotes) Quote(symbol string) *contracts.Quote {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	p := m.profileFor(symbol)

	price := p.base * (1 + (m.float()*2-1)*mockVolatility)
	price = math.Max(p.min, math.Min(p.max, price))
	change := price - p.base

	return &contracts.Quote{
		Symbol:        symbol,
		Name:          p.name,
		Price:         twstock.Round2(price),
		Change:        twstock.Round2(change),
		ChangePercent: twstock.Round2(change / p.base * 100),
		Volume:        int64(5_000_000 + m.intN(95_000_000)),
		PreviousClose: twstock.Round2(p.base),
		Exchange:      exchangeOf(symbol),
		Sector:        p.sector,
		DataSource:    contracts.SourceMock,
		IsMock:        true,
		LastUpdated:   m.now(),
	}
}

// Series generates n weekday bars ending at the latest weekday, oldest first
func (m *MockQuotes) Series(symbol string, n int) []contracts.DailyBar {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	p := m.profileFor(symbol)

	day := m.now()
	bars := make([]contracts.DailyBar, 0, n)
	price := p.base
	for len(bars) < n {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			open := price
			closePrice := math.Max(0.01, open*(1+(m.float()*2-1)*0.02))
			high := math.Max(open, closePrice) * (1 + m.float()*0.01)
			low := math.Min(open, closePrice) * (1 - m.float()*0.01)
			bars = append(bars, contracts.DailyBar{
				Date:   day.Format("2006-01-02"),
				Open:   twstock.Round2(open),
				High:   twstock.Round2(high),
				Low:    twstock.Round2(low),
				Close:  twstock.Round2(closePrice),
				Volume: int64(1_000_000 + m.intN(50_000_000)),
			})
			price = closePrice
		}
		day = day.AddDate(0, 0, -1)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return bars
}

// Search matches the known symbol table by symbol or name
func (m *MockQuotes) Search(query string, limit int) []contracts.SearchMatch {
	q := strings.ToUpper(strings.TrimSpace(query))
	matches := make([]contracts.SearchMatch, 0)
	if q == "" {
		return matches
	}

	for symbol, p := range profiles {
		score := 0.0
		switch {
		case symbol == q:
			score = 1
		case strings.HasPrefix(symbol, q):
			score = 0.8
		case strings.Contains(strings.ToUpper(p.name), q):
			score = 0.5
		default:
			continue
		}
		matches = append(matches, contracts.SearchMatch{
			Symbol:     symbol,
			Name:       p.name,
			Type:       "Equity",
			Region:     regionOf(symbol),
			MatchScore: score,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].MatchScore != matches[j].MatchScore {
			return matches[i].MatchScore > matches[j].MatchScore
		}
		return matches[i].Symbol < matches[j].Symbol
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func exchangeOf(symbol string) string {
	switch {
	case strings.HasSuffix(symbol, ".TWO"):
		return "TPEx"
	case strings.HasSuffix(symbol, ".TW"):
		return "TWSE"
	case strings.HasSuffix(symbol, ".HK"):
		return "HKSE"
	default:
		return "NASDAQ"
	}
}

func regionOf(symbol string) string {
	switch exchangeOf(symbol) {
	case "TWSE", "TPEx":
		return "Taiwan"
	case "HKSE":
		return "Hong Kong"
	default:
		return "United States"
	}
}

