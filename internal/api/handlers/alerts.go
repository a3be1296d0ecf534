package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// AlertService is the price alert use-case surface
type AlertService interface {
	List(ctx context.Context, user string) ([]*contracts.PriceAlert, error)
	Create(ctx context.Context, user string, alert *contracts.PriceAlert) error
	Delete(ctx context.Context, user string, id int64) error
}

// AlertHandler handles price alert endpoints
type AlertHandler struct {
	service AlertService
	logger  *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(service AlertService, log *logger.Logger) *AlertHandler {
	return &AlertHandler{service: service, logger: log.WithComponent("alert_api")}
}

// AlertRequest is the body of an alert create
type AlertRequest struct {
	Symbol      string              `json:"symbol"`
	Type        contracts.AlertType `json:"alert_type"`
	TargetValue decimal.Decimal     `json:"target_value"`
	Message     string              `json:"message"`
}

// List returns the user's alerts
// GET /api/price-alerts/
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.List(r.Context(), UserFrom(r.Context()))
	if err != nil {
		respondServiceError(w, h.logger, err, "list alerts")
		return
	}
	respondData(w, http.StatusOK, alerts)
}

// Create adds an active alert
// POST /api/price-alerts/
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req AlertRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, h.logger, err, "create alert")
		return
	}

	alert := &contracts.PriceAlert{
		Symbol:      req.Symbol,
		Type:        req.Type,
		TargetValue: req.TargetValue,
		Message:     req.Message,
	}
	if err := h.service.Create(r.Context(), UserFrom(r.Context()), alert); err != nil {
		respondServiceError(w, h.logger, err, "create alert")
		return
	}
	respondData(w, http.StatusCreated, alert)
}

// Delete removes an alert
// DELETE /api/price-alerts/{id}/
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "delete alert")
		return
	}

	if err := h.service.Delete(r.Context(), UserFrom(r.Context()), id); err != nil {
		respondServiceError(w, h.logger, err, "delete alert")
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"deleted": id})
}
