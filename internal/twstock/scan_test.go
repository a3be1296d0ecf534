package twstock

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(now time.Time, opts ...ScannerOption) *Scanner {
	base := []ScannerOption{
		WithClock(func() time.Time { return now }),
		WithRand(rand.New(rand.NewPCG(42, 7))),
	}
	return NewScanner(TWSE(), append(base, opts...)...)
}

func TestClassifyPercent(t *testing.T) {
	tests := []struct {
		percent   float64
		wantType  LimitType
		wantLimit bool
		wantOK    bool
	}{
		{10, LimitUp, true, true},
		{9.9, LimitUp, true, true},
		{9.89, LimitUp, false, true},
		{9.5, LimitUp, false, true},
		{9.49, "", false, false},
		{0, "", false, false},
		{-9.49, "", false, false},
		{-9.5, LimitDown, false, true},
		{-9.89, LimitDown, false, true},
		{-9.9, LimitDown, true, true},
		{-10, LimitDown, true, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.percent), func(t *testing.T) {
			limitType, isLimit, ok := ClassifyPercent(tt.percent)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantType, limitType)
			assert.Equal(t, tt.wantLimit, isLimit)
		})
	}
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, StatusLimitUp, StatusLabel(LimitUp, true))
	assert.Equal(t, StatusApproachingLimitUp, StatusLabel(LimitUp, false))
	assert.Equal(t, StatusLimitDown, StatusLabel(LimitDown, true))
	assert.Equal(t, StatusApproachingDown, StatusLabel(LimitDown, false))
	assert.Equal(t, "", StatusLabel("", false))
}

func TestScanner_ClassifyLimitUpRow(t *testing.T) {
	s := newTestScanner(taipeiAt(2024, time.January, 15, 10, 30))

	stock, ok := s.Classify(RawQuoteRow{
		Code: "2345", Name: "智邦",
		Price: "110.00", Change: "10.00", ChangePercent: "9.90%", Volume: "1,500,000",
	})
	require.True(t, ok)

	assert.Equal(t, "2345", stock.Code)
	assert.Equal(t, "2345.TW", stock.Symbol)
	assert.Equal(t, LimitUp, stock.LimitType)
	assert.True(t, stock.IsLimit)
	assert.Equal(t, StatusLimitUp, stock.Status)
	assert.Equal(t, 110.0, stock.CurrentPrice)
	assert.Equal(t, RoundToTick(100.00), stock.ReferencePrice)
	assert.Equal(t, 100.0, stock.ReferencePrice)
	assert.Equal(t, 10.0, stock.Change)
	assert.Equal(t, 9.9, stock.ChangePercent)
	assert.Equal(t, "1,500,000", stock.Volume)
	assert.Equal(t, "165,000,000", stock.Turnover)
	assert.Regexp(t, `^\d{2}:\d{2}$`, stock.LimitTime)
}

func TestScanner_ClassifyApproachingDown(t *testing.T) {
	s := newTestScanner(taipeiAt(2024, time.January, 15, 10, 30))

	stock, ok := s.Classify(RawQuoteRow{
		Code: "1101", Name: "台泥",
		Price: "40.75", Change: "-4.25", ChangePercent: "-9.44%", Volume: "--",
	})
	assert.False(t, ok, "-9.44%% is not near the limit")

	stock, ok = s.Classify(RawQuoteRow{
		Code: "1101", Name: "台泥",
		Price: "40.70", Change: "-4.30", ChangePercent: "-9.56%", Volume: "--",
	})
	require.True(t, ok)
	assert.Equal(t, LimitDown, stock.LimitType)
	assert.False(t, stock.IsLimit)
	assert.Equal(t, StatusApproachingDown, stock.Status)
	assert.Equal(t, 40.7, stock.CurrentPrice)
	assert.Equal(t, 45.0, stock.ReferencePrice)
	assert.Equal(t, "0", stock.Volume)
	assert.Equal(t, "0", stock.Turnover)
}

func TestScanner_ClassifyDropsSentinelRows(t *testing.T) {
	s := newTestScanner(taipeiAt(2024, time.January, 15, 10, 30))

	rows := []RawQuoteRow{
		{Code: "9999", Price: "--", Change: "--", ChangePercent: "--"},
		{Code: "9998", Price: "110.00", Change: "-", ChangePercent: "9.90%"},
		{Code: "9997", Price: "110.00", Change: "10.00", ChangePercent: ""},
		{Code: "9996", Price: "0.00", Change: "10.00", ChangePercent: "9.90%"},
	}
	for _, row := range rows {
		_, ok := s.Classify(row)
		assert.False(t, ok, row.Code)
	}
}

func TestScan_Empty(t *testing.T) {
	s := newTestScanner(taipeiAt(2024, time.January, 15, 10, 30))

	for _, rows := range [][]RawQuoteRow{nil, {}} {
		result := s.Scan(rows)
		require.NotNil(t, result)
		assert.True(t, result.Available)
		assert.NotNil(t, result.LimitUp)
		assert.NotNil(t, result.LimitDown)
		assert.Empty(t, result.LimitUp)
		assert.Empty(t, result.LimitDown)
		assert.Equal(t, ScanSummary{ScanTime: "10:30:00"}, result.Summary)
		assert.Equal(t, "2024-01-15", result.MarketDate)
		assert.Equal(t, SourceTWSE, result.DataSource)
		assert.Empty(t, result.Error)
	}
}

func TestScan_DropsSentinelRowButCountsIt(t *testing.T) {
	s := newTestScanner(taipeiAt(2024, time.January, 15, 10, 30))

	result := s.Scan([]RawQuoteRow{
		{Code: "9999", Name: "停牌", Price: "--", Change: "--", ChangePercent: "--", Volume: "--"},
		{Code: "2345", Name: "智邦", Price: "110.00", Change: "10.00", ChangePercent: "9.90%", Volume: "1,000"},
		{Code: "2330", Name: "台積電", Price: "598.00", Change: "3.00", ChangePercent: "0.50%", Volume: "20,000"},
	})

	assert.Equal(t, 3, result.Summary.TotalScanned)
	assert.Equal(t, 1, result.Summary.LimitUpFound)
	assert.Equal(t, 0, result.Summary.LimitDownFound)
	require.Len(t, result.LimitUp, 1)
	assert.Equal(t, "2345", result.LimitUp[0].Code)
	for _, stock := range append(result.LimitUp, result.LimitDown...) {
		assert.NotEqual(t, "9999", stock.Code)
	}
}

func TestScan_OversizedVolume(t *testing.T) {
	s := newTestScanner(taipeiAt(2024, time.January, 15, 10, 30))

	tests := []struct {
		name         string
		volume       string
		wantVolume   string
		wantTurnover string
	}{
		{"beyond int64", "1e30", "0", "0"},
		{"turnover saturates", "9,000,000,000,000,000", "9,000,000,000,000,000", "9,223,372,036,854,775,807"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.Scan([]RawQuoteRow{
				{Code: "2345", Name: "智邦", Price: "110.00", Change: "10.00", ChangePercent: "9.90%", Volume: tt.volume},
			})
			assert.Equal(t, 1, result.Summary.TotalScanned)
			require.Len(t, result.LimitUp, 1)
			assert.Equal(t, tt.wantVolume, result.LimitUp[0].Volume)
			assert.Equal(t, tt.wantTurnover, result.LimitUp[0].Turnover)
		})
	}
}

func TestScan_TruncatesAndSorts(t *testing.T) {
	s := newTestScanner(taipeiAt(2024, time.January, 15, 10, 30))

	var rows []RawQuoteRow
	for i := 0; i < 25; i++ {
		pct := 9.5 + float64(i%6)*0.1
		rows = append(rows, RawQuoteRow{
			Code:          fmt.Sprintf("%04d", 1000+i),
			Name:          "up",
			Price:         "50.00",
			Change:        "4.50",
			ChangePercent: fmt.Sprintf("%.2f%%", pct),
			Volume:        "1,000",
		})
	}
	for i := 0; i < 3; i++ {
		rows = append(rows, RawQuoteRow{
			Code:          fmt.Sprintf("%04d", 2000+i),
			Name:          "down",
			Price:         "45.00",
			Change:        "-5.00",
			ChangePercent: fmt.Sprintf("-%.2f%%", 9.6+float64(i)*0.1),
		})
	}

	result := s.Scan(rows)

	assert.Equal(t, 28, result.Summary.TotalScanned)
	assert.Equal(t, 25, result.Summary.LimitUpFound)
	assert.Equal(t, 3, result.Summary.LimitDownFound)
	require.Len(t, result.LimitUp, DefaultTopN)
	require.Len(t, result.LimitDown, 3)

	for i := 1; i < len(result.LimitUp); i++ {
		prev, cur := result.LimitUp[i-1], result.LimitUp[i]
		assert.GreaterOrEqual(t, prev.ChangePercent, cur.ChangePercent)
		if prev.ChangePercent == cur.ChangePercent {
			assert.Less(t, prev.Code, cur.Code)
		}
	}
	assert.Equal(t, 10.0, result.LimitUp[0].ChangePercent)

	assert.Equal(t, []string{"2002", "2001", "2000"},
		[]string{result.LimitDown[0].Code, result.LimitDown[1].Code, result.LimitDown[2].Code})
}

func TestScan_TopNOption(t *testing.T) {
	s := newTestScanner(taipeiAt(2024, time.January, 15, 10, 30), WithTopN(2), WithDataSource("測試"))

	rows := []RawQuoteRow{
		{Code: "1", Price: "11", Change: "1", ChangePercent: "10.00"},
		{Code: "2", Price: "11", Change: "1", ChangePercent: "9.95"},
		{Code: "3", Price: "11", Change: "1", ChangePercent: "9.60"},
	}
	result := s.Scan(rows)
	assert.Len(t, result.LimitUp, 2)
	assert.Equal(t, 3, result.Summary.LimitUpFound)
	assert.Equal(t, "測試", result.DataSource)
}

func TestNoData(t *testing.T) {
	s := newTestScanner(taipeiAt(2024, time.January, 20, 11, 0))

	result := s.NoData("no data9 table")
	assert.False(t, result.Available)
	assert.Empty(t, result.LimitUp)
	assert.Empty(t, result.LimitDown)
	assert.NotNil(t, result.LimitUp)
	assert.Equal(t, 0, result.Summary.TotalScanned)
	assert.Equal(t, SourceBackup, result.DataSource)
	assert.Contains(t, result.Error, NoDataMessage)
	assert.Contains(t, result.Error, "no data9 table")
	assert.False(t, result.Session.TradingDay)
}

func TestEstimateLimitTime_Bounds(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		from, to string
	}{
		{"during session", taipeiAt(2024, time.January, 15, 10, 30), "09:00", "10:30"},
		{"after close", taipeiAt(2024, time.January, 15, 16, 0), "09:00", "13:30"},
		{"weekend", taipeiAt(2024, time.January, 20, 10, 0), "09:00", "13:30"},
		{"at open", taipeiAt(2024, time.January, 15, 9, 0), "09:00", "09:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScanner(tt.now)
			for i := 0; i < 200; i++ {
				got := s.estimateLimitTime(tt.now)
				assert.GreaterOrEqual(t, got, tt.from)
				assert.LessOrEqual(t, got, tt.to)
			}
		})
	}
}

func TestScan_Concurrent(t *testing.T) {
	s := newTestScanner(taipeiAt(2024, time.January, 15, 10, 30))
	rows := []RawQuoteRow{
		{Code: "2345", Price: "110.00", Change: "10.00", ChangePercent: "9.90%"},
		{Code: "1101", Price: "40.70", Change: "-4.30", ChangePercent: "-9.56%"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := s.Scan(rows)
			assert.Len(t, result.LimitUp, 1)
			assert.Len(t, result.LimitDown, 1)
		}()
	}
	wg.Wait()
}
