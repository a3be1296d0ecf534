package contracts

import "time"

// Data source labels carried in data_source fields
const (
	SourceAlphaVantage = "Alpha Vantage"
	SourceCache        = "cache"
	SourceMock         = "enhanced_mock"
	SourceDatabase     = "database"
)

// Quote is a point-in-time price for one symbol
// ⭐ SSOT: every quote provider returns this shape
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	Open          float64   `json:"open,omitempty"`
	High          float64   `json:"high,omitempty"`
	Low           float64   `json:"low,omitempty"`
	PreviousClose float64   `json:"previous_close,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Exchange      string    `json:"exchange,omitempty"`
	Sector        string    `json:"sector,omitempty"`
	DataSource    string    `json:"data_source"`
	IsMock        bool      `json:"is_mock"`
	LastUpdated   time.Time `json:"last_updated"`
}

// IndexType distinguishes the main board index from the OTC index
type IndexType string

const (
	IndexMain IndexType = "main"
	IndexOTC  IndexType = "otc"
)

// Index is a market index snapshot
type Index struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Type          IndexType `json:"type"`
	CurrentPrice  float64   `json:"current_price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	MarketStatus  string    `json:"market_status"`
	DataSource    string    `json:"data_source"`
	LastUpdated   time.Time `json:"last_updated"`
}

// SearchMatch is one symbol search hit
type SearchMatch struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Type       string  `json:"type,omitempty"`
	Region     string  `json:"region,omitempty"`
	Currency   string  `json:"currency,omitempty"`
	MatchScore float64 `json:"match_score"`
}

// DailyBar is one OHLCV point of a daily series
type DailyBar struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Chart is a daily series for a symbol, oldest first
type Chart struct {
	Symbol     string     `json:"symbol"`
	Bars       []DailyBar `json:"data"`
	DataSource string     `json:"data_source"`
	IsMock     bool       `json:"is_mock"`
}

// CompanyOverview is descriptive company data
type CompanyOverview struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Exchange    string `json:"exchange"`
	Currency    string `json:"currency,omitempty"`
	Country     string `json:"country,omitempty"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry,omitempty"`
	MarketCap   int64  `json:"market_cap"`
}
