package alerts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// Service manages alerts and checks them against live quotes
type Service struct {
	repo   contracts.AlertRepository
	quotes contracts.QuoteProvider
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a new alert service
func NewService(repo contracts.AlertRepository, quotes contracts.QuoteProvider, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		quotes: quotes,
		logger: log.WithComponent("alerts"),
		now:    time.Now,
	}
}

// List returns the user's alerts
func (s *Service) List(ctx context.Context, user string) ([]*contracts.PriceAlert, error) {
	return s.repo.List(ctx, user)
}

// Create validates and stores an active alert for user
func (s *Service) Create(ctx context.Context, user string, alert *contracts.PriceAlert) error {
	alert.User = user
	alert.Status = contracts.AlertActive
	if err := alert.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, alert)
}

// Delete removes one of the user's alerts
func (s *Service) Delete(ctx context.Context, user string, id int64) error {
	return s.repo.Delete(ctx, user, id)
}

// CheckResult summarises one pass over the active alerts
type CheckResult struct {
	Checked   int                     `json:"checked"`
	Triggered []*contracts.PriceAlert `json:"triggered"`
	Failed    int                     `json:"failed"`
}

// Check evaluates every active alert, fetching one quote per symbol, and
// marks the ones that fire. Quote failures skip the symbol.
func (s *Service) Check(ctx context.Context) (*CheckResult, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{Triggered: make([]*contracts.PriceAlert, 0)}
	quotes := make(map[string]*contracts.Quote)

	for _, alert := range active {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		quote, seen := quotes[alert.Symbol]
		if !seen {
			quote, err = s.quotes.Quote(ctx, alert.Symbol)
			if err != nil {
				s.logger.WithError(err).WithField("symbol", alert.Symbol).Warn("Skipping alerts without quote")
				quote = nil
			}
			quotes[alert.Symbol] = quote
		}
		if quote == nil {
			result.Failed++
			continue
		}

		result.Checked++
		if !Evaluate(alert, quote) {
			continue
		}

		now := s.now()
		alert.TriggeredAt = &now
		alert.TriggeredPrice = decimal.NewNullDecimal(decimal.NewFromFloat(quote.Price).Round(2))
		if err := s.repo.MarkTriggered(ctx, alert); err != nil {
			s.logger.WithError(err).WithField("alert", alert.ID).Error("Failed to mark alert triggered")
			result.Failed++
			continue
		}

		s.logger.WithFields(map[string]interface{}{
			"alert":  alert.ID,
			"user":   alert.User,
			"symbol": alert.Symbol,
			"type":   string(alert.Type),
			"price":  quote.Price,
		}).Info("Price alert triggered")
		result.Triggered = append(result.Triggered, alert)
	}
	return result, nil
}
