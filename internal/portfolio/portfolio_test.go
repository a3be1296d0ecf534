package portfolio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/internal/testutil"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func sampleHoldings() []*contracts.Holding {
	return []*contracts.Holding{
		{ID: 1, Symbol: "2330.TW", Exchange: "TWSE", Sector: "Semiconductors", Quantity: decimal.NewFromInt(10), AverageCost: decimal.NewFromInt(500), PurchaseDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{ID: 2, Symbol: "AAPL", Exchange: "NASDAQ", Sector: "Technology", Quantity: decimal.NewFromInt(5), AverageCost: decimal.NewFromInt(200), PurchaseDate: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)},
		{ID: 3, Symbol: "MSFT", Exchange: "NASDAQ", Sector: "Technology", Quantity: decimal.NewFromInt(2), AverageCost: decimal.NewFromInt(300), PurchaseDate: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)},
	}
}

func samplePrices() map[string]Price {
	return map[string]Price{
		"2330.TW": {Value: decimal.NewFromInt(600), Source: contracts.SourceMock},
		"AAPL":    {Value: decimal.NewFromInt(180), Source: contracts.SourceAlphaVantage},
	}
}

func TestValuate(t *testing.T) {
	vals := Valuate(sampleHoldings(), samplePrices())
	require.Len(t, vals, 3)

	assertDecimal(t, "6000", vals[0].MarketValue)
	assertDecimal(t, "1000", vals[0].GainLoss)
	assertDecimal(t, "20", vals[0].GainLossPercent)
	assertDecimal(t, "80", vals[0].Weight)

	assertDecimal(t, "900", vals[1].MarketValue)
	assertDecimal(t, "-10", vals[1].GainLossPercent)
	assertDecimal(t, "12", vals[1].Weight)

	// no quote: valued at cost
	assertDecimal(t, "300", vals[2].CurrentPrice)
	assertDecimal(t, "0", vals[2].GainLoss)
	assert.Equal(t, PriceSourceCost, vals[2].PriceSource)
	assertDecimal(t, "8", vals[2].Weight)
}

func TestValuate_Empty(t *testing.T) {
	vals := Valuate(nil, nil)
	assert.Empty(t, vals)
	assert.NotNil(t, vals)
}

func TestAnalyze(t *testing.T) {
	p := &contracts.Portfolio{ID: 7, Name: "長期投資"}
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a := Analyze(p, Valuate(sampleHoldings(), samplePrices()), now)
	assert.Equal(t, int64(7), a.PortfolioID)
	assertDecimal(t, "7500", a.TotalValue)
	assert.Equal(t, 3, a.HoldingsCount)
	assert.Equal(t, 20, a.DiversificationScore)
	assert.Equal(t, now, a.AnalyzedAt)

	require.Len(t, a.SectorBreakdown, 2)
	assert.Equal(t, "Semiconductors", a.SectorBreakdown[0].Name)
	assertDecimal(t, "80", a.SectorBreakdown[0].Percentage)
	assert.Equal(t, "Technology", a.SectorBreakdown[1].Name)
	assertDecimal(t, "1500", a.SectorBreakdown[1].Value)
	assert.Equal(t, 2, a.SectorBreakdown[1].Holdings)

	require.Len(t, a.ExchangeBreakdown, 2)
	assert.Equal(t, "TWSE", a.ExchangeBreakdown[0].Name)
	assert.Equal(t, "NASDAQ", a.ExchangeBreakdown[1].Name)
}

func TestAnalyze_UnknownSectorAndCap(t *testing.T) {
	var holdings []*contracts.Holding
	for i := 0; i < 12; i++ {
		holdings = append(holdings, &contracts.Holding{
			Symbol:      fmt.Sprintf("S%d", i),
			Sector:      fmt.Sprintf("sector-%d", i),
			Quantity:    decimal.NewFromInt(1),
			AverageCost: decimal.NewFromInt(10),
		})
	}
	holdings = append(holdings, &contracts.Holding{Symbol: "X", Quantity: decimal.NewFromInt(1), AverageCost: decimal.NewFromInt(1)})

	a := Analyze(&contracts.Portfolio{}, Valuate(holdings, nil), time.Now())
	assert.Equal(t, 100, a.DiversificationScore)
	assert.Equal(t, unknownBucket, a.SectorBreakdown[len(a.SectorBreakdown)-1].Name)
	assert.Equal(t, unknownBucket, a.ExchangeBreakdown[0].Name)
}

func TestPerformance(t *testing.T) {
	p := &contracts.Portfolio{ID: 7, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	perf := Performance(p, Valuate(sampleHoldings(), samplePrices()), now)
	assertDecimal(t, "7000", perf.TotalCost)
	assertDecimal(t, "7500", perf.TotalValue)
	assertDecimal(t, "500", perf.GainLoss)
	assertDecimal(t, "7.14", perf.GainLossPercent)
	assertDecimal(t, "0.51", perf.SharpeRatio)

	require.NotNil(t, perf.BestPerformer)
	require.NotNil(t, perf.WorstPerformer)
	assert.Equal(t, "2330.TW", perf.BestPerformer.Symbol)
	assert.Equal(t, "AAPL", perf.WorstPerformer.Symbol)

	assert.Equal(t, contracts.RiskAssessment{RiskScore: 50, RiskLevel: RiskHigh, DiversificationScore: 2}, perf.Risk)

	require.Len(t, perf.MonthlyInvestments, 2)
	assertDecimal(t, "5000", perf.MonthlyInvestments["2024-01"])
	assertDecimal(t, "1600", perf.MonthlyInvestments["2024-02"])
	assert.Equal(t, 60, perf.PortfolioAgeDays)
}

func TestPerformance_Empty(t *testing.T) {
	perf := Performance(&contracts.Portfolio{}, Valuate(nil, nil), time.Now())
	assert.True(t, perf.TotalValue.IsZero())
	assert.True(t, perf.GainLossPercent.IsZero())
	assert.True(t, perf.SharpeRatio.IsZero())
	assert.Nil(t, perf.BestPerformer)
	assert.Equal(t, 0, perf.PortfolioAgeDays)
	assert.Equal(t, RiskHigh, perf.Risk.RiskLevel)
}

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		holdings, sectors int
		score             int
		level             string
	}{
		{5, 3, 0, RiskLow},
		{5, 2, 20, RiskMedium},
		{4, 3, 30, RiskMedium},
		{1, 1, 50, RiskHigh},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.holdings, tt.sectors), func(t *testing.T) {
			risk := assessRisk(tt.holdings, tt.sectors)
			assert.Equal(t, tt.score, risk.RiskScore)
			assert.Equal(t, tt.level, risk.RiskLevel)
			assert.Equal(t, tt.sectors, risk.DiversificationScore)
		})
	}
}

func TestSharpeRatio(t *testing.T) {
	assertDecimal(t, "0", sharpeRatio(decimal.NewFromInt(-15)))
	assertDecimal(t, "0", sharpeRatio(decimal.NewFromInt(2)))
	assertDecimal(t, "1.8", sharpeRatio(decimal.NewFromInt(20)))
}

type memRepo struct {
	portfolios map[int64]*contracts.Portfolio
	holdings   map[int64]*contracts.Holding
	nextID     int64
}

func newMemRepo() *memRepo {
	return &memRepo{portfolios: map[int64]*contracts.Portfolio{}, holdings: map[int64]*contracts.Holding{}}
}

func (m *memRepo) List(_ context.Context, user string) ([]*contracts.Portfolio, error) {
	out := []*contracts.Portfolio{}
	for _, p := range m.portfolios {
		if p.User == user {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, user string, id int64) (*contracts.Portfolio, error) {
	p, ok := m.portfolios[id]
	if !ok || p.User != user {
		return nil, fmt.Errorf("portfolio %d: %w", id, contracts.ErrNotFound)
	}
	return p, nil
}

func (m *memRepo) Create(_ context.Context, p *contracts.Portfolio) error {
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.portfolios[p.ID] = p
	return nil
}

func (m *memRepo) Update(ctx context.Context, p *contracts.Portfolio) error {
	if _, err := m.Get(ctx, p.User, p.ID); err != nil {
		return err
	}
	m.portfolios[p.ID] = p
	return nil
}

func (m *memRepo) Delete(ctx context.Context, user string, id int64) error {
	if _, err := m.Get(ctx, user, id); err != nil {
		return err
	}
	delete(m.portfolios, id)
	return nil
}

func (m *memRepo) ListHoldings(_ context.Context, portfolioID int64) ([]*contracts.Holding, error) {
	out := []*contracts.Holding{}
	for id := int64(1); id <= m.nextID; id++ {
		if h, ok := m.holdings[id]; ok && h.PortfolioID == portfolioID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memRepo) GetHolding(ctx context.Context, user string, id int64) (*contracts.Holding, error) {
	h, ok := m.holdings[id]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	if _, err := m.Get(ctx, user, h.PortfolioID); err != nil {
		return nil, contracts.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *memRepo) AddHolding(_ context.Context, h *contracts.Holding) error {
	for _, existing := range m.holdings {
		if existing.PortfolioID == h.PortfolioID && existing.Symbol == h.Symbol {
			return contracts.ErrDuplicate
		}
	}
	m.nextID++
	h.ID = m.nextID
	m.holdings[h.ID] = h
	return nil
}

func (m *memRepo) UpdateHolding(ctx context.Context, user string, h *contracts.Holding) error {
	if _, err := m.GetHolding(ctx, user, h.ID); err != nil {
		return err
	}
	cp := *h
	m.holdings[h.ID] = &cp
	return nil
}

func (m *memRepo) DeleteHolding(ctx context.Context, user string, id int64) error {
	if _, err := m.GetHolding(ctx, user, id); err != nil {
		return err
	}
	delete(m.holdings, id)
	return nil
}

type staticQuotes map[string]float64

func (q staticQuotes) Quote(_ context.Context, symbol string) (*contracts.Quote, error) {
	price, ok := q[symbol]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return &contracts.Quote{Symbol: symbol, Price: price, DataSource: contracts.SourceMock}, nil
}

func TestService(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, staticQuotes{"2330.TW": 600}, logger.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	assert.ErrorIs(t, svc.Create(ctx, "JoyWu", &contracts.Portfolio{Name: " "}), contracts.ErrInvalidInput)

	p := &contracts.Portfolio{Name: "台股"}
	require.NoError(t, svc.Create(ctx, "JoyWu", p))
	assert.Equal(t, "JoyWu", p.User)

	_, err := svc.Holdings(ctx, "someone-else", p.ID)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	h := &contracts.Holding{Symbol: "2330.tw", Sector: "Semiconductors", Quantity: decimal.NewFromInt(10), AverageCost: decimal.NewFromInt(500)}
	require.NoError(t, svc.AddHolding(ctx, "JoyWu", p.ID, h))
	assert.Equal(t, "2330.TW", h.Symbol)
	assert.Equal(t, svc.now(), h.PurchaseDate)

	lost := &contracts.Holding{Symbol: "ZZZZ", Quantity: decimal.NewFromInt(1), AverageCost: decimal.NewFromInt(50)}
	require.NoError(t, svc.AddHolding(ctx, "JoyWu", p.ID, lost))
	assert.ErrorIs(t, svc.AddHolding(ctx, "JoyWu", p.ID, &contracts.Holding{Symbol: "ZZZZ", Quantity: decimal.NewFromInt(1)}), contracts.ErrDuplicate)

	analysis, err := svc.Analysis(ctx, "JoyWu", p.ID)
	require.NoError(t, err)
	assertDecimal(t, "6050", analysis.TotalValue)
	assert.Equal(t, contracts.SourceMock, analysis.Holdings[0].PriceSource)
	assert.Equal(t, PriceSourceCost, analysis.Holdings[1].PriceSource)

	update := &contracts.Holding{ID: h.ID, Quantity: decimal.NewFromInt(20), AverageCost: decimal.NewFromInt(550)}
	require.NoError(t, svc.UpdateHolding(ctx, "JoyWu", update))
	assert.Equal(t, "2330.TW", update.Symbol)
	assert.Equal(t, h.PurchaseDate, update.PurchaseDate)
	assert.Equal(t, "Semiconductors", update.Sector)

	perf, err := svc.Performance(ctx, "JoyWu", p.ID)
	require.NoError(t, err)
	assertDecimal(t, "11050", perf.TotalCost)
	assertDecimal(t, "12050", perf.TotalValue)
	assert.Equal(t, 60, perf.PortfolioAgeDays)

	assert.ErrorIs(t, svc.DeleteHolding(ctx, "someone-else", lost.ID), contracts.ErrNotFound)
	require.NoError(t, svc.DeleteHolding(ctx, "JoyWu", lost.ID))
	require.NoError(t, svc.Delete(ctx, "JoyWu", p.ID))
	_, err = svc.Get(ctx, "JoyWu", p.ID)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestRepository_Integration(t *testing.T) {
	pool := testutil.SetupPool(t)
	user := testutil.UniqueUser(t)
	testutil.CleanupUser(t, pool, user)

	repo := NewRepository(pool)
	ctx := context.Background()

	p := &contracts.Portfolio{User: user, Name: "長期投資"}
	require.NoError(t, repo.Create(ctx, p))
	assert.ErrorIs(t, repo.Create(ctx, &contracts.Portfolio{User: user, Name: "長期投資"}), contracts.ErrDuplicate)

	h := &contracts.Holding{
		PortfolioID:  p.ID,
		Symbol:       "2330.TW",
		Name:         "台積電",
		Exchange:     "TWSE",
		Quantity:     decimal.NewFromInt(1000),
		AverageCost:  decimal.RequireFromString("580.5"),
		PurchaseDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.AddHolding(ctx, h))
	assert.NotZero(t, h.StockID)

	dup := &contracts.Holding{PortfolioID: p.ID, Symbol: "2330.TW", Quantity: decimal.NewFromInt(1), AverageCost: decimal.NewFromInt(1)}
	assert.ErrorIs(t, repo.AddHolding(ctx, dup), contracts.ErrDuplicate)

	holdings, err := repo.ListHoldings(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "2330.TW", holdings[0].Symbol)
	assertDecimal(t, "580.5", holdings[0].AverageCost)

	h.Quantity = decimal.NewFromInt(2000)
	require.NoError(t, repo.UpdateHolding(ctx, user, h))
	assert.ErrorIs(t, repo.UpdateHolding(ctx, "someone-else", h), contracts.ErrNotFound)

	got, err := repo.GetHolding(ctx, user, h.ID)
	require.NoError(t, err)
	assertDecimal(t, "2000", got.Quantity)

	p.Description = "台股核心持股"
	require.NoError(t, repo.Update(ctx, p))

	list, err := repo.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "台股核心持股", list[0].Description)

	require.NoError(t, repo.DeleteHolding(ctx, user, h.ID))
	assert.ErrorIs(t, repo.DeleteHolding(ctx, user, h.ID), contracts.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, user, p.ID))
	_, err = repo.Get(ctx, user, p.ID)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}
