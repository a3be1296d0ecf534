package contracts

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stock is a known listing
type Stock struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Exchange  string    `json:"exchange"`
	Sector    string    `json:"sector"`
	MarketCap *int64    `json:"market_cap,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockPrice is a stored price snapshot
type StockPrice struct {
	ID            int64           `json:"id"`
	StockID       int64           `json:"stock_id"`
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Portfolio is a named set of holdings owned by one user
type Portfolio struct {
	ID          int64     `json:"id"`
	User        string    `json:"user"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the user-supplied fields
func (p *Portfolio) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: portfolio name is required", ErrInvalidInput)
	}
	if len([]rune(p.Name)) > 100 {
		return fmt.Errorf("%w: portfolio name exceeds 100 characters", ErrInvalidInput)
	}
	return nil
}

// Holding is a position in a portfolio
type Holding struct {
	ID           int64           `json:"id"`
	PortfolioID  int64           `json:"portfolio_id"`
	StockID      int64           `json:"stock_id"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Exchange     string          `json:"exchange"`
	Sector       string          `json:"sector"`
	Quantity     decimal.Decimal `json:"quantity"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	PurchaseDate time.Time       `json:"purchase_date"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Validate checks quantity and cost
func (h *Holding) Validate() error {
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	if h.Symbol == "" && h.StockID == 0 {
		return fmt.Errorf("%w: holding needs a symbol", ErrInvalidInput)
	}
	if !h.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if h.AverageCost.IsNegative() {
		return fmt.Errorf("%w: average cost must not be negative", ErrInvalidInput)
	}
	return nil
}

// Cost is quantity × average cost
func (h *Holding) Cost() decimal.Decimal {
	return h.Quantity.Mul(h.AverageCost)
}

// Breakdown is one bucket of a portfolio allocation
type Breakdown struct {
	Name       string          `json:"name"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
	Holdings   int             `json:"holdings"`
}

// HoldingValuation is a holding priced at the latest quote
type HoldingValuation struct {
	Holding
	CurrentPrice    decimal.Decimal `json:"current_price"`
	MarketValue     decimal.Decimal `json:"market_value"`
	CostBasis       decimal.Decimal `json:"cost_basis"`
	GainLoss        decimal.Decimal `json:"gain_loss"`
	GainLossPercent decimal.Decimal `json:"gain_loss_percent"`
	Weight          decimal.Decimal `json:"weight"`
	PriceSource     string          `json:"price_source"`
}

// PortfolioAnalysis is the allocation view of a portfolio
type PortfolioAnalysis struct {
	PortfolioID          int64              `json:"portfolio_id"`
	Name                 string             `json:"name"`
	TotalValue           decimal.Decimal    `json:"total_value"`
	HoldingsCount        int                `json:"holdings_count"`
	SectorBreakdown      []Breakdown        `json:"sector_breakdown"`
	ExchangeBreakdown    []Breakdown        `json:"exchange_breakdown"`
	DiversificationScore int                `json:"diversification_score"`
	Holdings             []HoldingValuation `json:"holdings"`
	AnalyzedAt           time.Time          `json:"analyzed_at"`
}

// RiskAssessment is a coarse concentration risk read of a portfolio
type RiskAssessment struct {
	RiskScore            int    `json:"risk_score"` // 0-100
	RiskLevel            string `json:"risk_level"` // Low, Medium, High
	DiversificationScore int    `json:"diversification_score"`
}

// PortfolioPerformance is the profit and loss view of a portfolio
type PortfolioPerformance struct {
	PortfolioID        int64                      `json:"portfolio_id"`
	TotalCost          decimal.Decimal            `json:"total_cost"`
	TotalValue         decimal.Decimal            `json:"total_value"`
	GainLoss           decimal.Decimal            `json:"gain_loss"`
	GainLossPercent    decimal.Decimal            `json:"gain_loss_percent"`
	SharpeRatio        decimal.Decimal            `json:"sharpe_ratio"`
	BestPerformer      *HoldingValuation          `json:"best_performer,omitempty"`
	WorstPerformer     *HoldingValuation          `json:"worst_performer,omitempty"`
	Risk               RiskAssessment             `json:"risk_assessment"`
	MonthlyInvestments map[string]decimal.Decimal `json:"monthly_investments"`
	Holdings           []HoldingValuation         `json:"holdings"`
	PortfolioAgeDays   int                        `json:"portfolio_age_days"`
	CalculatedAt       time.Time                  `json:"calculated_at"`
}
