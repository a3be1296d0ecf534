package portfolio

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// Service applies portfolio rules on top of the repository
type Service struct {
	repo   contracts.PortfolioRepository
	quotes contracts.QuoteProvider
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a new portfolio service. quotes may be nil, in which
// case every holding is valued at its average cost.
func NewService(repo contracts.PortfolioRepository, quotes contracts.QuoteProvider, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		quotes: quotes,
		logger: log.WithComponent("portfolio"),
		now:    time.Now,
	}
}

// List returns the user's portfolios
func (s *Service) List(ctx context.Context, user string) ([]*contracts.Portfolio, error) {
	return s.repo.List(ctx, user)
}

// Get returns one of the user's portfolios
func (s *Service) Get(ctx context.Context, user string, id int64) (*contracts.Portfolio, error) {
	return s.repo.Get(ctx, user, id)
}

// Create validates and stores a portfolio for user
func (s *Service) Create(ctx context.Context, user string, p *contracts.Portfolio) error {
	p.User = user
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"user":      user,
		"portfolio": p.ID,
	}).Info("Created portfolio")
	return nil
}

// Update validates and rewrites a portfolio's name and description
func (s *Service) Update(ctx context.Context, user string, p *contracts.Portfolio) error {
	p.User = user
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// Delete removes one of the user's portfolios
func (s *Service) Delete(ctx context.Context, user string, id int64) error {
	return s.repo.Delete(ctx, user, id)
}

// Holdings lists a portfolio's holdings after checking ownership
func (s *Service) Holdings(ctx context.Context, user string, portfolioID int64) ([]*contracts.Holding, error) {
	if _, err := s.repo.Get(ctx, user, portfolioID); err != nil {
		return nil, err
	}
	return s.repo.ListHoldings(ctx, portfolioID)
}

// AddHolding validates and stores a holding in one of the user's portfolios
func (s *Service) AddHolding(ctx context.Context, user string, portfolioID int64, h *contracts.Holding) error {
	if _, err := s.repo.Get(ctx, user, portfolioID); err != nil {
		return err
	}
	h.PortfolioID = portfolioID
	if err := h.Validate(); err != nil {
		return err
	}
	if h.PurchaseDate.IsZero() {
		h.PurchaseDate = s.now()
	}
	if err := s.repo.AddHolding(ctx, h); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"portfolio": portfolioID,
		"symbol":    h.Symbol,
		"quantity":  h.Quantity.String(),
	}).Info("Added holding")
	return nil
}

// UpdateHolding rewrites quantity, cost and purchase date; a zero
// purchase date keeps the stored one
func (s *Service) UpdateHolding(ctx context.Context, user string, h *contracts.Holding) error {
	current, err := s.repo.GetHolding(ctx, user, h.ID)
	if err != nil {
		return err
	}
	h.PortfolioID = current.PortfolioID
	h.Symbol = current.Symbol
	h.StockID = current.StockID
	if h.PurchaseDate.IsZero() {
		h.PurchaseDate = current.PurchaseDate
	}
	if err := h.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateHolding(ctx, user, h); err != nil {
		return err
	}
	h.Name, h.Exchange, h.Sector = current.Name, current.Exchange, current.Sector
	return nil
}

// DeleteHolding removes one of the user's holdings
func (s *Service) DeleteHolding(ctx context.Context, user string, id int64) error {
	return s.repo.DeleteHolding(ctx, user, id)
}

// Analysis values the portfolio and breaks it down by sector and exchange
func (s *Service) Analysis(ctx context.Context, user string, id int64) (*contracts.PortfolioAnalysis, error) {
	p, valuations, err := s.valuate(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return Analyze(p, valuations, s.now()), nil
}

// Performance values the portfolio and reports profit and loss
func (s *Service) Performance(ctx context.Context, user string, id int64) (*contracts.PortfolioPerformance, error) {
	p, valuations, err := s.valuate(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return Performance(p, valuations, s.now()), nil
}

func (s *Service) valuate(ctx context.Context, user string, id int64) (*contracts.Portfolio, []contracts.HoldingValuation, error) {
	p, err := s.repo.Get(ctx, user, id)
	if err != nil {
		return nil, nil, err
	}
	holdings, err := s.repo.ListHoldings(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, Valuate(holdings, s.prices(ctx, holdings)), nil
}

// prices fetches a quote per distinct symbol; failures fall back to cost
func (s *Service) prices(ctx context.Context, holdings []*contracts.Holding) map[string]Price {
	prices := make(map[string]Price, len(holdings))
	if s.quotes == nil {
		return prices
	}
	for _, h := range holdings {
		if _, seen := prices[h.Symbol]; seen {
			continue
		}
		quote, err := s.quotes.Quote(ctx, h.Symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", h.Symbol).Debug("Valuing holding at cost")
			continue
		}
		prices[h.Symbol] = Price{
			Value:  decimal.NewFromFloat(quote.Price).Round(2),
			Source: quote.DataSource,
		}
	}
	return prices
}
