package twse

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
)

const (
	indexPath = "/stock/api/getStockInfo.jsp"

	TAIEXSymbol = "^TWII"
	TAIEXName   = "加權指數"
	indexSource = "台灣證交所即時資訊"
)

// FetchTAIEX fetches the TAIEX snapshot from the realtime quote service
func (c *Client) FetchTAIEX(ctx context.Context) (*contracts.Index, error) {
	params := url.Values{}
	params.Set("ex_ch", "tse_t00.tw")
	params.Set("json", "1")
	params.Set("_", strconv.FormatInt(c.now().UnixMilli(), 10))

	body, err := c.fetch(ctx, c.quoteURL, indexPath, params)
	if err != nil {
		return nil, err
	}

	index, err := ParseTAIEX(body, c.now())
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"value":  index.CurrentPrice,
		"change": index.ChangePercent,
	}).Debug("Fetched TAIEX")
	return index, nil
}

// ParseTAIEX reads msgArray[0]: z (last), y (previous close), v (volume).
// Before the first trade z is "-" and the previous close is reported unchanged.
func ParseTAIEX(body []byte, now time.Time) (*contracts.Index, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: TAIEX response is not JSON", ErrNoTable)
	}
	msg := gjson.GetBytes(body, "msgArray.0")
	if !msg.Exists() {
		return nil, fmt.Errorf("%w: empty msgArray", ErrNoTable)
	}

	previous, ok := twstock.ParseNumber(msg.Get("y").String())
	if !ok {
		return nil, fmt.Errorf("%w: TAIEX previous close %q", ErrNoTable, msg.Get("y").String())
	}
	current, ok := twstock.ParseNumber(msg.Get("z").String())
	if !ok {
		current = previous
	}

	change := current - previous
	changePercent := 0.0
	if previous > 0 {
		changePercent = change / previous * 100
	}

	return &contracts.Index{
		Symbol:        TAIEXSymbol,
		Name:          TAIEXName,
		Type:          contracts.IndexMain,
		CurrentPrice:  twstock.Round2(current),
		Change:        twstock.Round2(change),
		ChangePercent: twstock.Round2(changePercent),
		Volume:        twstock.ParseVolume(msg.Get("v").String()),
		DataSource:    indexSource,
		LastUpdated:   now,
	}, nil
}

