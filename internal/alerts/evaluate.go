package alerts

import (
	"github.com/shopspring/decimal"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
)

// Evaluate reports whether quote satisfies the alert condition.
//   - above: price >= target
//   - below: price <= target
//   - change_percent: a positive target fires on a rise of at least
//     target percent, a negative one on a drop of at least |target|
//
// Alerts that are not active never fire.
func Evaluate(alert *contracts.PriceAlert, quote *contracts.Quote) bool {
	if alert.Status != contracts.AlertActive || quote == nil {
		return false
	}

	switch alert.Type {
	case contracts.AlertAbove:
		return quote.Price > 0 && decimal.NewFromFloat(quote.Price).GreaterThanOrEqual(alert.TargetValue)
	case contracts.AlertBelow:
		return quote.Price > 0 && decimal.NewFromFloat(quote.Price).LessThanOrEqual(alert.TargetValue)
	case contracts.AlertChangePercent:
		change := decimal.NewFromFloat(quote.ChangePercent)
		if alert.TargetValue.IsNegative() {
			return change.LessThanOrEqual(alert.TargetValue)
		}
		return alert.TargetValue.IsPositive() && change.GreaterThanOrEqual(alert.TargetValue)
	}
	return false
}
