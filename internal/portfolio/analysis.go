package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
)

const (
	// PriceSourceCost marks a holding valued at its average cost
	PriceSourceCost = "average_cost"

	unknownBucket = "Unknown"

	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

var (
	hundred       = decimal.NewFromInt(100)
	riskFreeRate  = decimal.NewFromInt(2)
	sharpeDivisor = decimal.NewFromInt(10)
)

// Price is the latest price of a symbol and where it came from
type Price struct {
	Value  decimal.Decimal
	Source string
}

// Valuate prices each holding. Symbols missing from prices are valued at
// their average cost. Weights are shares of the total market value.
// ⭐ SSOT: holding valuation is computed here only
func Valuate(holdings []*contracts.Holding, prices map[string]Price) []contracts.HoldingValuation {
	out := make([]contracts.HoldingValuation, 0, len(holdings))
	total := decimal.Zero

	for _, h := range holdings {
		price, ok := prices[h.Symbol]
		if !ok || !price.Value.IsPositive() {
			price = Price{Value: h.AverageCost, Source: PriceSourceCost}
		}

		cost := h.Cost()
		value := h.Quantity.Mul(price.Value)
		gain := value.Sub(cost)

		out = append(out, contracts.HoldingValuation{
			Holding:         *h,
			CurrentPrice:    price.Value.Round(2),
			MarketValue:     value.Round(2),
			CostBasis:       cost.Round(2),
			GainLoss:        gain.Round(2),
			GainLossPercent: percentOf(gain, cost),
			PriceSource:     price.Source,
		})
		total = total.Add(value)
	}

	for i := range out {
		out[i].Weight = percentOf(out[i].MarketValue, total)
	}
	return out
}

// Analyze builds the allocation view of a valued portfolio
func Analyze(p *contracts.Portfolio, valuations []contracts.HoldingValuation, now time.Time) *contracts.PortfolioAnalysis {
	total := totalValue(valuations)
	sectors := breakdown(valuations, total, func(v contracts.HoldingValuation) string { return v.Sector })
	exchanges := breakdown(valuations, total, func(v contracts.HoldingValuation) string { return v.Exchange })

	return &contracts.PortfolioAnalysis{
		PortfolioID:          p.ID,
		Name:                 p.Name,
		TotalValue:           total.Round(2),
		HoldingsCount:        len(valuations),
		SectorBreakdown:      sectors,
		ExchangeBreakdown:    exchanges,
		DiversificationScore: diversificationScore(len(sectors)),
		Holdings:             valuations,
		AnalyzedAt:           now,
	}
}

// Performance builds the profit and loss view of a valued portfolio
func Performance(p *contracts.Portfolio, valuations []contracts.HoldingValuation, now time.Time) *contracts.PortfolioPerformance {
	totalCost := decimal.Zero
	monthly := make(map[string]decimal.Decimal)
	var best, worst *contracts.HoldingValuation

	for i := range valuations {
		v := &valuations[i]
		totalCost = totalCost.Add(v.CostBasis)

		month := v.PurchaseDate.Format("2006-01")
		monthly[month] = monthly[month].Add(v.CostBasis)

		if best == nil || v.GainLossPercent.GreaterThan(best.GainLossPercent) {
			best = v
		}
		if worst == nil || v.GainLossPercent.LessThan(worst.GainLossPercent) {
			worst = v
		}
	}

	total := totalValue(valuations)
	gain := total.Sub(totalCost)
	gainPercent := percentOf(gain, totalCost)

	sectors := len(breakdown(valuations, total, func(v contracts.HoldingValuation) string { return v.Sector }))

	age := 0
	if !p.CreatedAt.IsZero() && now.After(p.CreatedAt) {
		age = int(now.Sub(p.CreatedAt).Hours() / 24)
	}

	return &contracts.PortfolioPerformance{
		PortfolioID:        p.ID,
		TotalCost:          totalCost.Round(2),
		TotalValue:         total.Round(2),
		GainLoss:           gain.Round(2),
		GainLossPercent:    gainPercent,
		SharpeRatio:        sharpeRatio(gainPercent),
		BestPerformer:      best,
		WorstPerformer:     worst,
		Risk:               assessRisk(len(valuations), sectors),
		MonthlyInvestments: monthly,
		Holdings:           valuations,
		PortfolioAgeDays:   age,
		CalculatedAt:       now,
	}
}

// breakdown groups market value by key, largest bucket first
func breakdown(valuations []contracts.HoldingValuation, total decimal.Decimal, key func(contracts.HoldingValuation) string) []contracts.Breakdown {
	index := make(map[string]int)
	buckets := make([]contracts.Breakdown, 0)

	for _, v := range valuations {
		name := key(v)
		if name == "" {
			name = unknownBucket
		}
		i, ok := index[name]
		if !ok {
			i = len(buckets)
			index[name] = i
			buckets = append(buckets, contracts.Breakdown{Name: name, Value: decimal.Zero})
		}
		buckets[i].Value = buckets[i].Value.Add(v.MarketValue)
		buckets[i].Holdings++
	}

	for i := range buckets {
		buckets[i].Percentage = percentOf(buckets[i].Value, total)
		buckets[i].Value = buckets[i].Value.Round(2)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if !buckets[i].Value.Equal(buckets[j].Value) {
			return buckets[i].Value.GreaterThan(buckets[j].Value)
		}
		return buckets[i].Name < buckets[j].Name
	})
	return buckets
}

// diversificationScore is ten points per sector, capped at 100
func diversificationScore(sectors int) int {
	return min(sectors*10, 100)
}

// assessRisk scores concentration: few holdings add 30, few sectors add 20
func assessRisk(holdings, sectors int) contracts.RiskAssessment {
	score := 0
	if holdings < 5 {
		score += 30
	}
	if sectors < 3 {
		score += 20
	}
	score = min(score, 100)

	level := RiskHigh
	switch {
	case score < 20:
		level = RiskLow
	case score < 50:
		level = RiskMedium
	}

	return contracts.RiskAssessment{
		RiskScore:            score,
		RiskLevel:            level,
		DiversificationScore: sectors,
	}
}

// sharpeRatio approximates (return - 2%) / 10% volatility, floored at zero
func sharpeRatio(returnPercent decimal.Decimal) decimal.Decimal {
	ratio := returnPercent.Sub(riskFreeRate).Div(sharpeDivisor)
	return decimal.Max(decimal.Zero, ratio).Round(2)
}

func totalValue(valuations []contracts.HoldingValuation) decimal.Decimal {
	total := decimal.Zero
	for _, v := range valuations {
		total = total.Add(v.MarketValue)
	}
	return total
}

// percentOf returns part / whole × 100 rounded to two places; zero when whole is zero
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}
