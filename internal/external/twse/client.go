package twse

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joywufn/portfolio-insight/backend/pkg/config"
	"github.com/joywufn/portfolio-insight/backend/pkg/httputil"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// ErrNoTable means the exchange answered without any quote table,
// typically on holidays or before the day's data is published.
var ErrNoTable = errors.New("twse: no quote table in response")

// Client handles communication with the Taiwan Stock Exchange
// ⭐ SSOT: TWSE calls go through this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	quoteURL   string
	now        func() time.Time
}

// NewClient creates a new TWSE client
func NewClient(httpClient *httputil.Client, log *logger.Logger, cfg config.ExchangeConfig) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("twse"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		quoteURL:   strings.TrimRight(cfg.QuoteURL, "/"),
		now:        time.Now,
	}
}

func (c *Client) fetch(ctx context.Context, base, path string, params url.Values) ([]byte, error) {
	fullURL := base + path
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	body, err := c.httpClient.GetBody(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("twse request %s: %w", path, err)
	}
	return body, nil
}
