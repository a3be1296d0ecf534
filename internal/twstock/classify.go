package twstock

import (
	"math"
)

// LimitType is the direction of a daily price limit
type LimitType string

const (
	LimitUp   LimitType = "up"
	LimitDown LimitType = "down"
)

// Classification thresholds in percent
const (
	HardLimitPercent        = 9.9
	ApproachingLimitPercent = 9.5
)

// Display labels
const (
	StatusLimitUp            = "漲停"
	StatusApproachingLimitUp = "接近漲停"
	StatusLimitDown          = "跌停"
	StatusApproachingDown    = "接近跌停"
)

// RawQuoteRow is one untrusted per-stock row from an upstream table
type RawQuoteRow struct {
	Code          string
	Name          string
	Price         string
	Change        string
	ChangePercent string
	Volume        string
}

// ClassifiedStock is a row at or near its daily limit
type ClassifiedStock struct {
	Code           string    `json:"code"`
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name"`
	CurrentPrice   float64   `json:"current_price"`
	ReferencePrice float64   `json:"reference_price"`
	Change         float64   `json:"change"`
	ChangePercent  float64   `json:"change_percent"`
	Volume         string    `json:"volume"`
	Turnover       string    `json:"turnover"`
	LimitTime      string    `json:"limit_time"` // HH:MM, estimated
	IsLimit        bool      `json:"is_limit"`
	LimitType      LimitType `json:"limit_type"`
	Status         string    `json:"status"`
}

// ClassifyPercent maps a change percent onto a limit direction.
// ok is false when the move is not near either limit.
func ClassifyPercent(changePercent float64) (limitType LimitType, isLimit bool, ok bool) {
	switch {
	case math.IsNaN(changePercent):
		return "", false, false
	case changePercent >= HardLimitPercent:
		return LimitUp, true, true
	case changePercent >= ApproachingLimitPercent:
		return LimitUp, false, true
	case changePercent <= -HardLimitPercent:
		return LimitDown, true, true
	case changePercent <= -ApproachingLimitPercent:
		return LimitDown, false, true
	}
	return "", false, false
}

// StatusLabel is the display label for a classification
func StatusLabel(limitType LimitType, isLimit bool) string {
	switch {
	case limitType == LimitUp && isLimit:
		return StatusLimitUp
	case limitType == LimitUp:
		return StatusApproachingLimitUp
	case limitType == LimitDown && isLimit:
		return StatusLimitDown
	case limitType == LimitDown:
		return StatusApproachingDown
	}
	return ""
}

// parsedRow holds the numeric fields of a row that survived parsing
type parsedRow struct {
	price, change, percent float64
	volume                 int64
}

func parseRow(row RawQuoteRow) (parsedRow, bool) {
	price, ok := ParseNumber(row.Price)
	if !ok || price <= 0 {
		return parsedRow{}, false
	}
	change, ok := ParseNumber(row.Change)
	if !ok {
		return parsedRow{}, false
	}
	percent, ok := ParseNumber(row.ChangePercent)
	if !ok {
		return parsedRow{}, false
	}
	return parsedRow{price: price, change: change, percent: percent, volume: ParseVolume(row.Volume)}, true
}

// classify builds the ClassifiedStock for row, leaving LimitTime empty.
// Unparsable or unclassified rows return ok=false.
func classify(rule *PriceTickRule, suffix string, row RawQuoteRow) (ClassifiedStock, bool) {
	parsed, ok := parseRow(row)
	if !ok {
		return ClassifiedStock{}, false
	}

	limitType, isLimit, ok := ClassifyPercent(parsed.percent)
	if !ok {
		return ClassifiedStock{}, false
	}

	current := rule.RoundToTick(parsed.price)
	reference := rule.RoundToTick(current - parsed.change)

	return ClassifiedStock{
		Code:           row.Code,
		Symbol:         row.Code + suffix,
		Name:           row.Name,
		CurrentPrice:   current,
		ReferencePrice: reference,
		Change:         parsed.change,
		ChangePercent:  parsed.percent,
		Volume:         FormatThousands(parsed.volume),
		Turnover:       FormatThousands(Turnover(parsed.volume, current)),
		IsLimit:        isLimit,
		LimitType:      limitType,
		Status:         StatusLabel(limitType, isLimit),
	}, true
}
