package contracts

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AlertType is the trigger condition of a price alert
type AlertType string

const (
	AlertAbove         AlertType = "above"
	AlertBelow         AlertType = "below"
	AlertChangePercent AlertType = "change_percent"
)

// AlertStatus is the lifecycle state of a price alert
type AlertStatus string

const (
	AlertActive    AlertStatus = "active"
	AlertTriggered AlertStatus = "triggered"
	AlertDisabled  AlertStatus = "disabled"
)

// PriceAlert fires once when its condition holds
type PriceAlert struct {
	ID             int64               `json:"id"`
	User           string              `json:"user"`
	Symbol         string              `json:"symbol"`
	Type           AlertType           `json:"alert_type"`
	TargetValue    decimal.Decimal     `json:"target_value"`
	Status         AlertStatus         `json:"status"`
	Message        string              `json:"message"`
	CreatedAt      time.Time           `json:"created_at"`
	TriggeredAt    *time.Time          `json:"triggered_at,omitempty"`
	TriggeredPrice decimal.NullDecimal `json:"triggered_price"`
}

// Validate normalises the symbol and checks type and target
func (a *PriceAlert) Validate() error {
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	if a.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	switch a.Type {
	case AlertAbove, AlertBelow:
		if !a.TargetValue.IsPositive() {
			return fmt.Errorf("%w: target price must be positive", ErrInvalidInput)
		}
	case AlertChangePercent:
		if a.TargetValue.IsZero() {
			return fmt.Errorf("%w: change percent threshold must be non-zero", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown alert type %q", ErrInvalidInput, a.Type)
	}
	if a.Status == "" {
		a.Status = AlertActive
	}
	return nil
}
