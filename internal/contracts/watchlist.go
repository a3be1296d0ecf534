package contracts

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Watchlist defaults
const (
	DefaultGroupColor = "#3B82F6"
	UngroupedName     = "默認分組"
	UngroupedColor    = "#6B7280"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// WatchlistGroup organises watchlist items
type WatchlistGroup struct {
	ID          int64     `json:"id"`
	User        string    `json:"user"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Order       int       `json:"order"`
	StockCount  int       `json:"stock_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate fills defaults and checks the color
func (g *WatchlistGroup) Validate() error {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return fmt.Errorf("%w: group name is required", ErrInvalidInput)
	}
	if g.Color == "" {
		g.Color = DefaultGroupColor
	}
	if !hexColor.MatchString(g.Color) {
		return fmt.Errorf("%w: color %q is not #RRGGBB", ErrInvalidInput, g.Color)
	}
	return nil
}

// WatchlistItem is one watched symbol
type WatchlistItem struct {
	ID            int64               `json:"id"`
	User          string              `json:"user"`
	Symbol        string              `json:"symbol"`
	GroupID       *int64              `json:"group_id"`
	GroupName     string              `json:"group_name,omitempty"`
	Notes         string              `json:"notes"`
	TargetPrice   decimal.NullDecimal `json:"target_price"`
	StopLossPrice decimal.NullDecimal `json:"stop_loss_price"`
	AlertEnabled  bool                `json:"alert_enabled"`
	Order         int                 `json:"order"`
	AddedAt       time.Time           `json:"added_at"`
	Quote         *Quote              `json:"quote,omitempty"`
}

// Validate normalises the symbol and checks the price levels
func (w *WatchlistItem) Validate() error {
	w.Symbol = strings.ToUpper(strings.TrimSpace(w.Symbol))
	if w.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if w.TargetPrice.Valid && !w.TargetPrice.Decimal.IsPositive() {
		return fmt.Errorf("%w: target price must be positive", ErrInvalidInput)
	}
	if w.StopLossPrice.Valid && !w.StopLossPrice.Decimal.IsPositive() {
		return fmt.Errorf("%w: stop loss price must be positive", ErrInvalidInput)
	}
	return nil
}

// WatchlistGroupSummary is a group with its items
type WatchlistGroupSummary struct {
	GroupID *int64          `json:"group_id"`
	Name    string          `json:"name"`
	Color   string          `json:"color"`
	Count   int             `json:"count"`
	Stocks  []WatchlistItem `json:"stocks"`
}

// WatchlistSummary groups a user's watchlist
type WatchlistSummary struct {
	User        string                  `json:"user"`
	TotalStocks int                     `json:"total_stocks"`
	TotalGroups int                     `json:"total_groups"`
	Groups      []WatchlistGroupSummary `json:"groups"`
}
