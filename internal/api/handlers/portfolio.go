package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// PortfolioService is the portfolio use-case surface
type PortfolioService interface {
	List(ctx context.Context, user string) ([]*contracts.Portfolio, error)
	Get(ctx context.Context, user string, id int64) (*contracts.Portfolio, error)
	Create(ctx context.Context, user string, p *contracts.Portfolio) error
	Update(ctx context.Context, user string, p *contracts.Portfolio) error
	Delete(ctx context.Context, user string, id int64) error
	Holdings(ctx context.Context, user string, portfolioID int64) ([]*contracts.Holding, error)
	AddHolding(ctx context.Context, user string, portfolioID int64, h *contracts.Holding) error
	UpdateHolding(ctx context.Context, user string, h *contracts.Holding) error
	DeleteHolding(ctx context.Context, user string, id int64) error
	Analysis(ctx context.Context, user string, id int64) (*contracts.PortfolioAnalysis, error)
	Performance(ctx context.Context, user string, id int64) (*contracts.PortfolioPerformance, error)
}

// PortfolioHandler handles portfolio and holding endpoints
type PortfolioHandler struct {
	service PortfolioService
	logger  *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(service PortfolioService, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{service: service, logger: log.WithComponent("portfolio_api")}
}

// PortfolioRequest is the body of a portfolio create or update
type PortfolioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HoldingRequest is the body of a holding create or update.
// purchase_date is YYYY-MM-DD.
type HoldingRequest struct {
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	PurchaseDate string          `json:"purchase_date"`
}

func (req HoldingRequest) holding() (*contracts.Holding, error) {
	h := &contracts.Holding{
		Symbol:      req.Symbol,
		Quantity:    req.Quantity,
		AverageCost: req.AverageCost,
	}
	if req.PurchaseDate != "" {
		date, err := time.Parse("2006-01-02", req.PurchaseDate)
		if err != nil {
			return nil, invalidInput("purchase_date must be YYYY-MM-DD")
		}
		h.PurchaseDate = date
	}
	return h, nil
}

// List returns the user's portfolios
// GET /api/portfolios/
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.service.List(r.Context(), UserFrom(r.Context()))
	if err != nil {
		respondServiceError(w, h.logger, err, "list portfolios")
		return
	}
	respondData(w, http.StatusOK, portfolios)
}

// Create adds a portfolio
// POST /api/portfolios/
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, h.logger, err, "create portfolio")
		return
	}

	p := &contracts.Portfolio{Name: req.Name, Description: req.Description}
	if err := h.service.Create(r.Context(), UserFrom(r.Context()), p); err != nil {
		respondServiceError(w, h.logger, err, "create portfolio")
		return
	}
	respondData(w, http.StatusCreated, p)
}

// Get returns one portfolio
// GET /api/portfolios/{id}/
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "get portfolio")
		return
	}

	p, err := h.service.Get(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get portfolio")
		return
	}
	respondData(w, http.StatusOK, p)
}

// Update renames or redescribes a portfolio
// PUT /api/portfolios/{id}/
func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "update portfolio")
		return
	}

	var req PortfolioRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, h.logger, err, "update portfolio")
		return
	}

	p := &contracts.Portfolio{ID: id, Name: req.Name, Description: req.Description}
	if err := h.service.Update(r.Context(), UserFrom(r.Context()), p); err != nil {
		respondServiceError(w, h.logger, err, "update portfolio")
		return
	}
	respondData(w, http.StatusOK, p)
}

// Delete removes a portfolio and its holdings
// DELETE /api/portfolios/{id}/
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "delete portfolio")
		return
	}

	if err := h.service.Delete(r.Context(), UserFrom(r.Context()), id); err != nil {
		respondServiceError(w, h.logger, err, "delete portfolio")
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"deleted": id})
}

// Analysis returns valuation and breakdowns
// GET /api/portfolios/{id}/analysis/
func (h *PortfolioHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "analyse portfolio")
		return
	}

	analysis, err := h.service.Analysis(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "analyse portfolio")
		return
	}
	respondData(w, http.StatusOK, analysis)
}

// Performance returns gain, risk and investment history
// GET /api/portfolios/{id}/performance/
func (h *PortfolioHandler) Performance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "compute performance")
		return
	}

	perf, err := h.service.Performance(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "compute performance")
		return
	}
	respondData(w, http.StatusOK, perf)
}

// ListHoldings returns a portfolio's holdings
// GET /api/portfolios/{id}/holdings/
func (h *PortfolioHandler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "list holdings")
		return
	}

	holdings, err := h.service.Holdings(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "list holdings")
		return
	}
	respondData(w, http.StatusOK, holdings)
}

// AddHolding adds a position to a portfolio
// POST /api/portfolios/{id}/holdings/
func (h *PortfolioHandler) AddHolding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "add holding")
		return
	}

	var req HoldingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, h.logger, err, "add holding")
		return
	}
	holding, err := req.holding()
	if err != nil {
		respondServiceError(w, h.logger, err, "add holding")
		return
	}

	if err := h.service.AddHolding(r.Context(), UserFrom(r.Context()), id, holding); err != nil {
		respondServiceError(w, h.logger, err, "add holding")
		return
	}
	respondData(w, http.StatusCreated, holding)
}

// UpdateHolding rewrites quantity, cost and purchase date
// PUT /api/portfolio-holdings/{id}/
func (h *PortfolioHandler) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "update holding")
		return
	}

	var req HoldingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, h.logger, err, "update holding")
		return
	}
	holding, err := req.holding()
	if err != nil {
		respondServiceError(w, h.logger, err, "update holding")
		return
	}
	holding.ID = id

	if err := h.service.UpdateHolding(r.Context(), UserFrom(r.Context()), holding); err != nil {
		respondServiceError(w, h.logger, err, "update holding")
		return
	}
	respondData(w, http.StatusOK, holding)
}

// DeleteHolding removes a position
// DELETE /api/portfolio-holdings/{id}/
func (h *PortfolioHandler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "delete holding")
		return
	}

	if err := h.service.DeleteHolding(r.Context(), UserFrom(r.Context()), id); err != nil {
		respondServiceError(w, h.logger, err, "delete holding")
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"deleted": id})
}
