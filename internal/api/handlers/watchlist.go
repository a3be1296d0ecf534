package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// WatchlistService is the watchlist use-case surface
type WatchlistService interface {
	Groups(ctx context.Context, user string) ([]*contracts.WatchlistGroup, error)
	CreateGroup(ctx context.Context, user string, group *contracts.WatchlistGroup) error
	Items(ctx context.Context, user string, groupID *int64) ([]*contracts.WatchlistItem, error)
	Item(ctx context.Context, user string, id int64) (*contracts.WatchlistItem, error)
	AddItem(ctx context.Context, user string, item *contracts.WatchlistItem) error
	UpdateItem(ctx context.Context, user string, item *contracts.WatchlistItem) error
	DeleteItem(ctx context.Context, user string, id int64) error
	Summary(ctx context.Context, user string) (*contracts.WatchlistSummary, error)
}

// WatchlistHandler handles watchlist endpoints
type WatchlistHandler struct {
	service WatchlistService
	logger  *logger.Logger
}

// NewWatchlistHandler creates a new watchlist handler
func NewWatchlistHandler(service WatchlistService, log *logger.Logger) *WatchlistHandler {
	return &WatchlistHandler{service: service, logger: log.WithComponent("watchlist_api")}
}

// GroupRequest is the body of a group create
type GroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Order       int    `json:"order"`
}

// ItemRequest is the body of an item create or update
type ItemRequest struct {
	Symbol        string           `json:"symbol"`
	GroupID       *int64           `json:"group_id"`
	Notes         string           `json:"notes"`
	TargetPrice   *decimal.Decimal `json:"target_price"`
	StopLossPrice *decimal.Decimal `json:"stop_loss_price"`
	AlertEnabled  bool             `json:"alert_enabled"`
	Order         int              `json:"order"`
}

func (req ItemRequest) item() *contracts.WatchlistItem {
	item := &contracts.WatchlistItem{
		Symbol:       req.Symbol,
		GroupID:      req.GroupID,
		Notes:        req.Notes,
		AlertEnabled: req.AlertEnabled,
		Order:        req.Order,
	}
	if req.TargetPrice != nil {
		item.TargetPrice = decimal.NewNullDecimal(*req.TargetPrice)
	}
	if req.StopLossPrice != nil {
		item.StopLossPrice = decimal.NewNullDecimal(*req.StopLossPrice)
	}
	return item
}

// ListGroups returns the user's groups
// GET /api/watchlist/groups/
func (h *WatchlistHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.Groups(r.Context(), UserFrom(r.Context()))
	if err != nil {
		respondServiceError(w, h.logger, err, "list watchlist groups")
		return
	}
	respondData(w, http.StatusOK, groups)
}

// CreateGroup adds a group
// POST /api/watchlist/groups/
func (h *WatchlistHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, h.logger, err, "create watchlist group")
		return
	}

	group := &contracts.WatchlistGroup{Name: req.Name, Description: req.Description, Color: req.Color, Order: req.Order}
	if err := h.service.CreateGroup(r.Context(), UserFrom(r.Context()), group); err != nil {
		respondServiceError(w, h.logger, err, "create watchlist group")
		return
	}
	respondData(w, http.StatusCreated, group)
}

// ListItems returns the user's items, optionally one group's
// GET /api/watchlist/stocks/?group_id=1
func (h *WatchlistHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	var groupID *int64
	if v := r.URL.Query().Get("group_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "group_id must be an integer")
			return
		}
		groupID = &id
	}

	items, err := h.service.Items(r.Context(), UserFrom(r.Context()), groupID)
	if err != nil {
		respondServiceError(w, h.logger, err, "list watchlist")
		return
	}
	respondData(w, http.StatusOK, items)
}

// CreateItem adds a symbol to the watchlist
// POST /api/watchlist/stocks/
func (h *WatchlistHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, h.logger, err, "add watchlist item")
		return
	}

	item := req.item()
	if err := h.service.AddItem(r.Context(), UserFrom(r.Context()), item); err != nil {
		respondServiceError(w, h.logger, err, "add watchlist item")
		return
	}
	respondData(w, http.StatusCreated, item)
}

// GetItem returns one item with its quote
// GET /api/watchlist/stocks/{id}/
func (h *WatchlistHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "get watchlist item")
		return
	}

	item, err := h.service.Item(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get watchlist item")
		return
	}
	respondData(w, http.StatusOK, item)
}

// UpdateItem rewrites an item; the symbol cannot change
// PUT /api/watchlist/stocks/{id}/
func (h *WatchlistHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "update watchlist item")
		return
	}

	var req ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, h.logger, err, "update watchlist item")
		return
	}

	item := req.item()
	item.ID = id
	if err := h.service.UpdateItem(r.Context(), UserFrom(r.Context()), item); err != nil {
		respondServiceError(w, h.logger, err, "update watchlist item")
		return
	}
	respondData(w, http.StatusOK, item)
}

// DeleteItem removes an item
// DELETE /api/watchlist/stocks/{id}/
func (h *WatchlistHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondServiceError(w, h.logger, err, "delete watchlist item")
		return
	}

	if err := h.service.DeleteItem(r.Context(), UserFrom(r.Context()), id); err != nil {
		respondServiceError(w, h.logger, err, "delete watchlist item")
		return
	}
	respondData(w, http.StatusOK, map[string]int64{"deleted": id})
}

// GetSummary returns the watchlist grouped by group
// GET /api/watchlist/summary/
func (h *WatchlistHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), UserFrom(r.Context()))
	if err != nil {
		respondServiceError(w, h.logger, err, "summarise watchlist")
		return
	}
	respondData(w, http.StatusOK, summary)
}
