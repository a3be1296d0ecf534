package tpex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
	"github.com/joywufn/portfolio-insight/backend/pkg/config"
	"github.com/joywufn/portfolio-insight/backend/pkg/httputil"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

const (
	indexPath = "/web/stock/iNdex_info/minute_index/1MIN_result.php?l=zh-tw"

	OTCSymbol   = "^TPEX"
	OTCName     = "櫃買指數"
	indexSource = "證券櫃檯買賣中心"
)

// ErrNoData means the minute index response carried no rows
var ErrNoData = errors.New("tpex: no index data in response")

// Client handles communication with the Taipei Exchange
// ⭐ SSOT: TPEx calls go through this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	now        func() time.Time
}

// NewClient creates a new TPEx client
func NewClient(httpClient *httputil.Client, log *logger.Logger, cfg config.ExchangeConfig) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("tpex"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		now:        time.Now,
	}
}

// FetchOTCIndex fetches the latest OTC index minute bar
func (c *Client) FetchOTCIndex(ctx context.Context) (*contracts.Index, error) {
	body, err := c.httpClient.GetBody(ctx, c.baseURL+indexPath)
	if err != nil {
		return nil, fmt.Errorf("tpex request: %w", err)
	}

	index, err := ParseOTCIndex(body, c.now())
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"value":  index.CurrentPrice,
		"change": index.ChangePercent,
	}).Debug("Fetched OTC index")
	return index, nil
}

// ParseOTCIndex reads the first minute row: [time, value, change, change%].
// Both the aaData and tables[0].data layouts are accepted.
func ParseOTCIndex(body []byte, now time.Time) (*contracts.Index, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not JSON", ErrNoData)
	}

	row := gjson.GetBytes(body, "aaData.0")
	if !row.IsArray() {
		row = gjson.GetBytes(body, "tables.0.data.0")
	}
	if !row.IsArray() {
		return nil, ErrNoData
	}
	cells := row.Array()
	if len(cells) < 4 {
		return nil, fmt.Errorf("%w: short row (%d cells)", ErrNoData, len(cells))
	}

	value, ok := twstock.ParseNumber(cells[1].String())
	if !ok {
		return nil, fmt.Errorf("%w: index value %q", ErrNoData, cells[1].String())
	}
	change, _ := twstock.ParseNumber(twstock.StripMarkup(cells[2].String()))
	changePercent, _ := twstock.ParseNumber(twstock.StripMarkup(cells[3].String()))

	return &contracts.Index{
		Symbol:        OTCSymbol,
		Name:          OTCName,
		Type:          contracts.IndexOTC,
		CurrentPrice:  twstock.Round2(value),
		Change:        twstock.Round2(change),
		ChangePercent: twstock.Round2(changePercent),
		DataSource:    indexSource,
		LastUpdated:   now,
	}, nil
}

