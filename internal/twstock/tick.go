package twstock

import (
	"fmt"
	"math"
)

// PriceBand maps the half-open price interval [Min, Max) to a tick.
// Max is +Inf for the last band.
type PriceBand struct {
	Min  float64
	Max  float64
	Tick float64
}

// PriceTickRule is an ordered, contiguous set of price bands covering [0, +Inf)
type PriceTickRule struct {
	bands []PriceBand
}

// ⭐ SSOT: TWSE/TPEx tick table
var defaultRule = MustTickRule([]PriceBand{
	{Min: 0, Max: 10, Tick: 0.01},
	{Min: 10, Max: 50, Tick: 0.05},
	{Min: 50, Max: 100, Tick: 0.1},
	{Min: 100, Max: 500, Tick: 0.5},
	{Min: 500, Max: 1000, Tick: 1},
	{Min: 1000, Max: math.Inf(1), Tick: 5},
})

// DefaultTickRule returns the exchange tick table
func DefaultTickRule() *PriceTickRule {
	return defaultRule
}

// NewTickRule copies bands into a validated rule
func NewTickRule(bands []PriceBand) (*PriceTickRule, error) {
	rule := &PriceTickRule{bands: append([]PriceBand(nil), bands...)}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

// MustTickRule is NewTickRule for package-level tables
func MustTickRule(bands []PriceBand) *PriceTickRule {
	rule, err := NewTickRule(bands)
	if err != nil {
		panic(err)
	}
	return rule
}

// Validate checks that the bands start at 0, touch end to end and
// leave the last band unbounded.
func (r *PriceTickRule) Validate() error {
	if len(r.bands) == 0 {
		return fmt.Errorf("tick rule has no bands")
	}
	if r.bands[0].Min != 0 {
		return fmt.Errorf("first band starts at %v, want 0", r.bands[0].Min)
	}
	for i, band := range r.bands {
		if !(band.Tick > 0) {
			return fmt.Errorf("band %d: tick %v must be positive", i, band.Tick)
		}
		if !(band.Max > band.Min) {
			return fmt.Errorf("band %d: empty interval [%v, %v)", i, band.Min, band.Max)
		}
		if i > 0 && band.Min != r.bands[i-1].Max {
			return fmt.Errorf("band %d: starts at %v, previous ends at %v", i, band.Min, r.bands[i-1].Max)
		}
	}
	if last := r.bands[len(r.bands)-1]; !math.IsInf(last.Max, 1) {
		return fmt.Errorf("last band must be unbounded, ends at %v", last.Max)
	}
	return nil
}

// Bands returns a copy of the rule's bands
func (r *PriceTickRule) Bands() []PriceBand {
	return append([]PriceBand(nil), r.bands...)
}

// TickFor returns the minimum increment tradable at price.
// Boundaries belong to the upper band. Negative or NaN prices return 0.
func (r *PriceTickRule) TickFor(price float64) float64 {
	if math.IsNaN(price) || price < 0 {
		return 0
	}
	for _, band := range r.bands {
		if price >= band.Min && price < band.Max {
			return band.Tick
		}
	}
	return r.bands[len(r.bands)-1].Tick
}

// RoundToTick snaps price to the nearest multiple of its tick, halves
// rounding away from zero. Non-positive prices return 0.
func (r *PriceTickRule) RoundToTick(price float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0
	}
	tick := r.TickFor(price)
	return roundDecimals(math.Round(price/tick)*tick, tickDecimals(tick))
}

// TickFor uses the default tick table
func TickFor(price float64) float64 {
	return defaultRule.TickFor(price)
}

// RoundToTick uses the default tick table
func RoundToTick(price float64) float64 {
	return defaultRule.RoundToTick(price)
}

// tickDecimals is the number of decimal places a tick needs (0.05 → 2)
func tickDecimals(tick float64) int {
	for d := 0; d < 8; d++ {
		scaled := tick * math.Pow10(d)
		if math.Abs(scaled-math.Round(scaled)) < 1e-9 {
			return d
		}
	}
	return 8
}

func roundDecimals(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
