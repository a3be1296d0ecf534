package realtime

import (
	"time"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
)

// PriceTick represents a real-time price update
// ⭐ SSOT: real-time price payload shape
type PriceTick struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`         // vs reference price
	ChangePercent float64   `json:"change_percent"` // %
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
	IsStale       bool      `json:"is_stale"`
}

// PriceSource represents the source of price data
type PriceSource string

const (
	SourceQuoteService PriceSource = "quote_service"
	SourceSimulator    PriceSource = "simulator"
)

// Priority returns priority for source (higher = better)
func (s PriceSource) Priority() int {
	switch s {
	case SourceQuoteService:
		return 2
	case SourceSimulator:
		return 1
	default:
		return 0
	}
}

// MessageType tags frames sent to websocket clients
type MessageType string

const (
	MessageInitialData MessageType = "initial_data"
	MessagePriceUpdate MessageType = "price_update"
)

// Message is one websocket frame
type Message struct {
	Type    MessageType `json:"type"`
	Updates []PriceTick `json:"updates"`
}

// Symbol is a tracked symbol and the reference price its ticks move around
type Symbol struct {
	Symbol    string
	Name      string
	BasePrice float64
}

// DefaultSymbols is the broadcast universe
var DefaultSymbols = []Symbol{
	{Symbol: "AAPL", Name: "Apple Inc.", BasePrice: 185},
	{Symbol: "TSLA", Name: "Tesla Inc.", BasePrice: 248},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", BasePrice: 138},
	{Symbol: "MSFT", Name: "Microsoft Corp.", BasePrice: 330},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", BasePrice: 145},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", BasePrice: 125},
	{Symbol: "2330.TW", Name: "台積電", BasePrice: 580},
	{Symbol: "2317.TW", Name: "鴻海", BasePrice: 110},
	{Symbol: "2454.TW", Name: "聯發科", BasePrice: 880},
	{Symbol: "1101.TW", Name: "台泥", BasePrice: 45},
}

// TickFromQuote converts a service quote into a tick
func TickFromQuote(q *contracts.Quote, source PriceSource) PriceTick {
	ts := q.LastUpdated
	if ts.IsZero() {
		ts = time.Now()
	}
	return PriceTick{
		Symbol:        q.Symbol,
		Name:          q.Name,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Volume:        q.Volume,
		Timestamp:     ts,
		Source:        string(source),
	}
}
