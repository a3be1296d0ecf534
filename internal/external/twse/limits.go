package twse

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
)

const (
	limitPath = "/rwd/zh/afterTrading/MI_INDEX"

	headerCode = "證券代號"
)

// columns locates the fields of a daily quote table; pct < 0 means the
// table has no change-percent column and it is derived.
type columns struct {
	code, name, volume, close, sign, change, pct int
}

// legacy data9 layout
var data9Columns = columns{code: 0, name: 1, volume: 2, close: 8, sign: 9, change: 10, pct: 11}

// FetchLimitRows fetches every listed stock's daily quote for date.
// ErrNoTable is returned when the response holds no quote table.
// ⭐ SSOT: TWSE daily quotes are fetched here only
func (c *Client) FetchLimitRows(ctx context.Context, date time.Time) ([]twstock.RawQuoteRow, error) {
	params := url.Values{}
	params.Set("date", date.Format("20060102"))
	params.Set("type", "ALLBUT0999")
	params.Set("response", "json")

	body, err := c.fetch(ctx, c.baseURL, limitPath, params)
	if err != nil {
		return nil, err
	}

	rows, err := ParseLimitRows(body)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"date": date.Format("2006-01-02"),
		"rows": len(rows),
	}).Debug("Fetched TWSE daily quotes")
	return rows, nil
}

// ParseLimitRows extracts quote rows from an MI_INDEX response. JSON is
// tried first (legacy data9, then any table headed by 證券代號); markup
// responses are parsed as HTML tables.
func ParseLimitRows(body []byte) ([]twstock.RawQuoteRow, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrNoTable
	}
	if trimmed[0] == '<' || !gjson.ValidBytes(trimmed) {
		return parseLimitRowsHTML(trimmed)
	}
	return parseLimitRowsJSON(trimmed)
}

func parseLimitRowsJSON(body []byte) ([]twstock.RawQuoteRow, error) {
	root := gjson.ParseBytes(body)

	if stat := root.Get("stat"); stat.Exists() && !strings.EqualFold(strings.TrimSpace(stat.String()), "OK") {
		return nil, fmt.Errorf("%w: stat %q", ErrNoTable, stat.String())
	}

	if data9 := root.Get("data9"); data9.IsArray() {
		cols := data9Columns
		if fields := root.Get("fields9"); fields.IsArray() {
			if mapped, ok := mapColumns(stringArray(fields)); ok {
				cols = mapped
			}
		}
		return buildRows(cols, tableCells(data9)), nil
	}

	var (
		rows  []twstock.RawQuoteRow
		found bool
	)
	root.Get("tables").ForEach(func(_, table gjson.Result) bool {
		cols, ok := mapColumns(stringArray(table.Get("fields")))
		if !ok {
			return true
		}
		rows = buildRows(cols, tableCells(table.Get("data")))
		found = true
		return false
	})
	if !found {
		return nil, ErrNoTable
	}
	return rows, nil
}

func parseLimitRowsHTML(body []byte) ([]twstock.RawQuoteRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTable, err)
	}

	var (
		rows  []twstock.RawQuoteRow
		found bool
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		var header []string
		table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
			cells := cellTexts(tr.Find("th,td"))
			if containsHeader(cells) {
				header = cells
				return false
			}
			return true
		})
		cols, ok := mapColumns(header)
		if !ok {
			return true
		}

		var data [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			if tr.Find("th").Length() > 0 {
				return
			}
			cells := cellTexts(tr.Find("td"))
			if len(cells) == 0 || containsHeader(cells) {
				return
			}
			data = append(data, cells)
		})
		rows = buildRows(cols, data)
		found = true
		return false
	})
	if !found {
		return nil, ErrNoTable
	}
	return rows, nil
}

// mapColumns finds the quote fields by header text
func mapColumns(header []string) (columns, bool) {
	cols := columns{code: -1, name: -1, volume: -1, close: -1, sign: -1, change: -1, pct: -1}
	for i, h := range header {
		h = strings.TrimSpace(twstock.StripMarkup(h))
		switch {
		case h == headerCode:
			cols.code = i
		case h == "證券名稱":
			cols.name = i
		case h == "成交股數":
			cols.volume = i
		case h == "收盤價":
			cols.close = i
		case strings.HasPrefix(h, "漲跌(+/-)"):
			cols.sign = i
		case h == "漲跌價差":
			cols.change = i
		case strings.HasPrefix(h, "漲跌幅"):
			cols.pct = i
		}
	}
	ok := cols.code >= 0 && cols.close >= 0 && cols.change >= 0
	return cols, ok
}

// buildRows turns table cells into quote rows. Short rows keep only code
// and name so the scanner drops them but still counts them as scanned.
func buildRows(cols columns, data [][]string) []twstock.RawQuoteRow {
	rows := make([]twstock.RawQuoteRow, 0, len(data))
	for _, cells := range data {
		if len(cells) <= cols.close || len(cells) <= cols.change || len(cells) <= cols.code {
			rows = append(rows, twstock.RawQuoteRow{
				Code: strings.TrimSpace(cell(cells, cols.code)),
				Name: strings.TrimSpace(cell(cells, cols.name)),
			})
			continue
		}
		row := twstock.RawQuoteRow{
			Code:   strings.TrimSpace(cells[cols.code]),
			Name:   strings.TrimSpace(cell(cells, cols.name)),
			Price:  cells[cols.close],
			Volume: cell(cells, cols.volume),
		}
		row.Change = signedChange(cell(cells, cols.sign), cells[cols.change])

		if cols.pct >= 0 && cols.pct < len(cells) {
			row.ChangePercent = cells[cols.pct]
		} else {
			row.ChangePercent = derivePercent(row.Price, row.Change)
		}
		rows = append(rows, row)
	}
	return rows
}

// signedChange applies the sign column to the unsigned change column
func signedChange(sign, change string) string {
	change = strings.TrimSpace(twstock.StripMarkup(change))
	if twstock.IsSentinel(change) || strings.HasPrefix(change, "-") || strings.HasPrefix(change, "+") {
		return change
	}
	if strings.TrimSpace(twstock.StripMarkup(sign)) == "-" {
		return "-" + change
	}
	return change
}

// derivePercent computes change / previous close; "" when either is missing
func derivePercent(price, change string) string {
	p, ok := twstock.ParseNumber(price)
	if !ok {
		return ""
	}
	ch, ok := twstock.ParseNumber(change)
	if !ok {
		return ""
	}
	prev := p - ch
	if prev <= 0 {
		return ""
	}
	return strconv.FormatFloat(ch/prev*100, 'f', 2, 64)
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func containsHeader(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) == headerCode {
			return true
		}
	}
	return false
}

func cellTexts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

func stringArray(r gjson.Result) []string {
	arr := r.Array()
	out := make([]string, len(arr))
	for i, v := range arr {
		out[i] = v.String()
	}
	return out
}

func tableCells(r gjson.Result) [][]string {
	rows := r.Array()
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if !row.IsArray() {
			continue
		}
		out = append(out, stringArray(row))
	}
	return out
}
