package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/joywufn/portfolio-insight/backend/pkg/config"
	"github.com/joywufn/portfolio-insight/backend/pkg/httputil"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

var (
	// ErrRateLimited is returned when the API answers with a Note or
	// Information message instead of data
	ErrRateLimited = errors.New("alphavantage: rate limited")

	// ErrNoQuote is returned for unknown symbols and empty payloads
	ErrNoQuote = errors.New("alphavantage: no data for symbol")

	// ErrNotConfigured is returned when no API key is set
	ErrNotConfigured = errors.New("alphavantage: api key not configured")
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]+(\.[A-Z]{1,3})?$`)

// Client handles communication with the Alpha Vantage query API
// ⭐ SSOT: Alpha Vantage calls go through this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a new Alpha Vantage client. The caller owns rate
// limiting via the httputil token bucket.
func NewClient(httpClient *httputil.Client, log *logger.Logger, cfg config.AlphaVantageConfig) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("alphavantage"),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// ValidateSymbol reports whether symbol looks like a ticker: 1-10
// characters, optionally with an exchange suffix such as ".TW".
func ValidateSymbol(symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if len(symbol) < 1 || len(symbol) > 10 {
		return false
	}
	return symbolPattern.MatchString(symbol)
}

// query runs one API function and screens the payload for error notes
func (c *Client) query(ctx context.Context, function string, params url.Values) (gjson.Result, error) {
	if !c.Configured() {
		return gjson.Result{}, ErrNotConfigured
	}

	params.Set("function", function)
	params.Set("apikey", c.apiKey)

	body, err := c.httpClient.GetBody(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return gjson.Result{}, fmt.Errorf("alphavantage %s: %w", function, err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("alphavantage %s: invalid JSON response", function)
	}

	root := gjson.ParseBytes(body)
	for _, key := range []string{"Note", "Information"} {
		if note := root.Get(key); note.Exists() {
			c.logger.WithFields(map[string]interface{}{
				"function": function,
				"note":     note.String(),
			}).Warn("Alpha Vantage limit reached")
			return gjson.Result{}, fmt.Errorf("%w: %s", ErrRateLimited, note.String())
		}
	}
	if msg := root.Get("Error Message"); msg.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrNoQuote, msg.String())
	}
	return root, nil
}

// field reads a key such as "05. price", whose dot is a gjson path separator
func field(obj gjson.Result, key string) gjson.Result {
	return obj.Get(strings.ReplaceAll(key, ".", `\.`))
}
