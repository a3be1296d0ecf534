package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
)

// DailySeriesLength is the number of most recent bars DailySeries keeps
const DailySeriesLength = 50

// GlobalQuote fetches the latest quote for symbol
func (c *Client) GlobalQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	root, err := c.query(ctx, "GLOBAL_QUOTE", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, err
	}

	quote, err := parseGlobalQuote(root.Get("Global Quote"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": quote.Symbol,
		"price":  quote.Price,
		"change": quote.ChangePercent,
	}).Debug("Fetched global quote")
	return quote, nil
}

func parseGlobalQuote(q gjson.Result) (*contracts.Quote, error) {
	symbol := field(q, "01. symbol").String()
	if symbol == "" {
		return nil, ErrNoQuote
	}
	price, ok := twstock.ParseNumber(field(q, "05. price").String())
	if !ok || price <= 0 {
		return nil, fmt.Errorf("%w: price %q", ErrNoQuote, field(q, "05. price").String())
	}

	num := func(key string) float64 {
		v, _ := twstock.ParseNumber(field(q, key).String())
		return twstock.Round2(v)
	}

	symbol = strings.ToUpper(symbol)
	return &contracts.Quote{
		Symbol:        symbol,
		Name:          symbol,
		Price:         twstock.Round2(price),
		Change:        num("09. change"),
		ChangePercent: num("10. change percent"),
		Volume:        twstock.ParseVolume(field(q, "06. volume").String()),
		Open:          num("02. open"),
		High:          num("03. high"),
		Low:           num("04. low"),
		PreviousClose: num("08. previous close"),
		DataSource:    contracts.SourceAlphaVantage,
		LastUpdated:   time.Now(),
	}, nil
}

// SymbolSearch returns at most limit matches for keywords
func (c *Client) SymbolSearch(ctx context.Context, keywords string, limit int) ([]contracts.SearchMatch, error) {
	root, err := c.query(ctx, "SYMBOL_SEARCH", url.Values{"keywords": {keywords}})
	if err != nil {
		return nil, err
	}

	matches := make([]contracts.SearchMatch, 0)
	root.Get("bestMatches").ForEach(func(_, m gjson.Result) bool {
		if limit > 0 && len(matches) >= limit {
			return false
		}
		symbol := field(m, "1. symbol").String()
		if symbol == "" {
			return true
		}
		score, _ := twstock.ParseNumber(field(m, "9. matchScore").String())
		matches = append(matches, contracts.SearchMatch{
			Symbol:     symbol,
			Name:       field(m, "2. name").String(),
			Type:       field(m, "3. type").String(),
			Region:     field(m, "4. region").String(),
			Currency:   field(m, "8. currency").String(),
			MatchScore: score,
		})
		return true
	})
	return matches, nil
}

// DailySeries returns the most recent daily bars, oldest first
func (c *Client) DailySeries(ctx context.Context, symbol string) ([]contracts.DailyBar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	root, err := c.query(ctx, "TIME_SERIES_DAILY", url.Values{"symbol": {symbol}, "outputsize": {"compact"}})
	if err != nil {
		return nil, err
	}

	series := root.Get("Time Series (Daily)")
	if !series.IsObject() {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
	}

	bars := make([]contracts.DailyBar, 0, DailySeriesLength)
	series.ForEach(func(date, v gjson.Result) bool {
		closePrice, ok := twstock.ParseNumber(field(v, "4. close").String())
		if !ok {
			return true
		}
		open, _ := twstock.ParseNumber(field(v, "1. open").String())
		high, _ := twstock.ParseNumber(field(v, "2. high").String())
		low, _ := twstock.ParseNumber(field(v, "3. low").String())
		bars = append(bars, contracts.DailyBar{
			Date:   date.String(),
			Open:   twstock.Round2(open),
			High:   twstock.Round2(high),
			Low:    twstock.Round2(low),
			Close:  twstock.Round2(closePrice),
			Volume: twstock.ParseVolume(field(v, "5. volume").String()),
		})
		return true
	})

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	if len(bars) > DailySeriesLength {
		bars = bars[len(bars)-DailySeriesLength:]
	}
	return bars, nil
}

// CompanyOverview fetches descriptive data for symbol
func (c *Client) CompanyOverview(ctx context.Context, symbol string) (*contracts.CompanyOverview, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	root, err := c.query(ctx, "OVERVIEW", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, err
	}
	if !root.Get("Symbol").Exists() {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
	}

	marketCap, _ := twstock.ParseNumber(root.Get("MarketCapitalization").String())
	return &contracts.CompanyOverview{
		Symbol:      strings.ToUpper(root.Get("Symbol").String()),
		Name:        root.Get("Name").String(),
		Description: root.Get("Description").String(),
		Exchange:    root.Get("Exchange").String(),
		Currency:    root.Get("Currency").String(),
		Country:     root.Get("Country").String(),
		Sector:      root.Get("Sector").String(),
		Industry:    root.Get("Industry").String(),
		MarketCap:   int64(marketCap),
	}, nil
}

