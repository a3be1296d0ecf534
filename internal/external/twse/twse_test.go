package twse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joywufn/portfolio-insight/backend/internal/twstock"
	"github.com/joywufn/portfolio-insight/backend/pkg/config"
	"github.com/joywufn/portfolio-insight/backend/pkg/httputil"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

const legacyData9 = `{
	"stat": "OK",
	"data9": [
		["2345", "智邦", "1,500,000", "1,200", "165,000,000", "105.00", "110.00", "104.00", "110.00", "<p style= color:red>+</p>", "10.00", "9.90%"],
		["9999", "停牌", "--", "--", "--", "--", "--", "--", "--", "", "--", "--"],
		["1101", "台泥"]
	]
}`

const modernFields9 = `{
	"stat": "OK",
	"fields9": ["證券代號", "證券名稱", "成交股數", "成交筆數", "成交金額", "開盤價", "最高價", "最低價", "收盤價", "漲跌(+/-)", "漲跌價差", "最後揭示買價"],
	"data9": [
		["1101", "台泥", "2,000", "10", "81,400", "41.00", "41.00", "40.70", "40.70", "<p style= color:green>-</p>", "4.30", "40.65"]
	]
}`

const modernTables = `{
	"stat": "OK",
	"tables": [
		{"title": "價格指數", "fields": ["指數", "收盤指數"], "data": [["發行量加權股價指數", "17,500.50"]]},
		{"title": "每日收盤行情", "fields": ["證券代號", "證券名稱", "成交股數", "收盤價", "漲跌(+/-)", "漲跌價差"], "data": [
			["2330", "台積電", "20,000,000", "598.00", "<p style= color:red>+</p>", "3.00"],
			["2345", "智邦", "1,000", "110.00", "<p style= color:red>+</p>", "10.00"]
		]}
	]
}`

const htmlTable = `<html><body>
<table><tr><td>大盤統計資訊</td></tr></table>
<table>
	<thead><tr><th>證券代號</th><th>證券名稱</th><th>成交股數</th><th>收盤價</th><th>漲跌(+/-)</th><th>漲跌價差</th></tr></thead>
	<tbody>
		<tr><td>2345</td><td>智邦</td><td>1,000</td><td>110.00</td><td>+</td><td>10.00</td></tr>
		<tr><td>1101</td><td>台泥</td><td>2,000</td><td>40.70</td><td>-</td><td>4.30</td></tr>
	</tbody>
</table>
</body></html>`

func TestParseLimitRows(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []twstock.RawQuoteRow
	}{
		{
			name: "legacy data9 with percent column",
			body: legacyData9,
			want: []twstock.RawQuoteRow{
				{Code: "2345", Name: "智邦", Price: "110.00", Change: "10.00", ChangePercent: "9.90%", Volume: "1,500,000"},
				{Code: "9999", Name: "停牌", Price: "--", Change: "--", ChangePercent: "--", Volume: "--"},
				{Code: "1101", Name: "台泥"},
			},
		},
		{
			name: "fields9 header derives percent",
			body: modernFields9,
			want: []twstock.RawQuoteRow{
				{Code: "1101", Name: "台泥", Price: "40.70", Change: "-4.30", ChangePercent: "-9.56", Volume: "2,000"},
			},
		},
		{
			name: "tables layout",
			body: modernTables,
			want: []twstock.RawQuoteRow{
				{Code: "2330", Name: "台積電", Price: "598.00", Change: "3.00", ChangePercent: "0.50", Volume: "20,000,000"},
				{Code: "2345", Name: "智邦", Price: "110.00", Change: "10.00", ChangePercent: "10.00", Volume: "1,000"},
			},
		},
		{
			name: "html fallback",
			body: htmlTable,
			want: []twstock.RawQuoteRow{
				{Code: "2345", Name: "智邦", Price: "110.00", Change: "10.00", ChangePercent: "10.00", Volume: "1,000"},
				{Code: "1101", Name: "台泥", Price: "40.70", Change: "-4.30", ChangePercent: "-9.56", Volume: "2,000"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ParseLimitRows([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestParseLimitRows_NoTable(t *testing.T) {
	bodies := map[string]string{
		"empty":        "",
		"holiday":      `{"stat":"很抱歉，沒有符合條件的資料!"}`,
		"no tables":    `{"stat":"OK","date":"20240120"}`,
		"html no rows": `<html><body><p>系統忙碌中</p></body></html>`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLimitRows([]byte(body))
			assert.True(t, errors.Is(err, ErrNoTable), "got %v", err)
		})
	}
}

func TestParseLimitRows_FeedsScanner(t *testing.T) {
	rows, err := ParseLimitRows([]byte(legacyData9))
	require.NoError(t, err)

	result := twstock.NewScanner(twstock.TWSE()).Scan(rows)
	assert.Equal(t, 3, result.Summary.TotalScanned)
	require.Len(t, result.LimitUp, 1)
	assert.Equal(t, "2345.TW", result.LimitUp[0].Symbol)
	assert.Equal(t, 100.0, result.LimitUp[0].ReferencePrice)
}

func TestParseLimitRows_ShortRowsCounted(t *testing.T) {
	body := `{"stat":"OK","data9":[
		["2345", "智邦", "1,500,000", "1,200", "165,000,000", "105.00", "110.00", "104.00", "110.00", "+", "10.00", "9.90%"],
		["1101", "台泥"],
		[]
	]}`

	rows, err := ParseLimitRows([]byte(body))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, twstock.RawQuoteRow{Code: "1101", Name: "台泥"}, rows[1])
	assert.Equal(t, twstock.RawQuoteRow{}, rows[2])

	result := twstock.NewScanner(twstock.TWSE()).Scan(rows)
	assert.Equal(t, 3, result.Summary.TotalScanned)
	assert.Equal(t, 1, result.Summary.LimitUpFound)
	assert.Len(t, result.LimitUp, 1)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := httputil.New(logger.Nop()).WithRetry(0, time.Millisecond)
	client := NewClient(httpClient, logger.Nop(), config.ExchangeConfig{BaseURL: server.URL, QuoteURL: server.URL + "/"})
	client.now = func() time.Time { return time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC) }
	return client
}

func TestFetchLimitRows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, limitPath, r.URL.Path)
		assert.Equal(t, "20240115", r.URL.Query().Get("date"))
		assert.Equal(t, "ALLBUT0999", r.URL.Query().Get("type"))
		assert.Equal(t, "json", r.URL.Query().Get("response"))
		_, _ = w.Write([]byte(legacyData9))
	})

	rows, err := client.FetchLimitRows(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestFetchLimitRows_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchLimitRows(context.Background(), time.Now())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoTable))
}

func TestFetchTAIEX(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, indexPath, r.URL.Path)
		assert.Equal(t, "tse_t00.tw", r.URL.Query().Get("ex_ch"))
		assert.NotEmpty(t, r.URL.Query().Get("_"))
		_, _ = w.Write([]byte(`{"msgArray":[{"c":"t00","z":"17500.50","y":"17400.00","v":"3500"}],"rtcode":"0000"}`))
	})

	index, err := client.FetchTAIEX(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TAIEXSymbol, index.Symbol)
	assert.Equal(t, 17500.5, index.CurrentPrice)
	assert.Equal(t, 100.5, index.Change)
	assert.Equal(t, 0.58, index.ChangePercent)
	assert.Equal(t, int64(3500), index.Volume)
}

func TestParseTAIEX(t *testing.T) {
	now := time.Now()

	index, err := ParseTAIEX([]byte(`{"msgArray":[{"z":"-","y":"17400.00","v":"-"}]}`), now)
	require.NoError(t, err)
	assert.Equal(t, 17400.0, index.CurrentPrice)
	assert.Equal(t, 0.0, index.Change)
	assert.Equal(t, int64(0), index.Volume)

	_, err = ParseTAIEX([]byte(`{"msgArray":[]}`), now)
	assert.ErrorIs(t, err, ErrNoTable)

	_, err = ParseTAIEX([]byte(`not json`), now)
	assert.ErrorIs(t, err, ErrNoTable)
}
