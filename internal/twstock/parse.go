package twstock

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	markupPattern = regexp.MustCompile(`<[^>]*>`)

	// placeholders emitted for suspended or untraded stocks
	sentinels = map[string]struct{}{
		"":    {},
		"-":   {},
		"--":  {},
		"---": {},
		"X":   {},
		"N/A": {},
	}
)

// StripMarkup removes HTML tags and surrounding whitespace.
// MI_INDEX fills its sign column with fragments like <p style=color:red>+</p>.
func StripMarkup(s string) string {
	return strings.TrimSpace(markupPattern.ReplaceAllString(s, ""))
}

// IsSentinel reports whether s is a placeholder rather than a value
func IsSentinel(s string) bool {
	_, ok := sentinels[strings.ToUpper(StripMarkup(s))]
	return ok
}

// ParseNumber parses a loosely formatted upstream number: thousands
// separators, a leading +, a trailing %, whitespace and markup are
// ignored. ok is false for sentinels and anything unparsable.
func ParseNumber(s string) (float64, bool) {
	clean := StripMarkup(s)
	if IsSentinel(clean) {
		return 0, false
	}
	clean = strings.NewReplacer(",", "", "+", "", "%", "", " ", "", "\u00a0", "").Replace(clean)
	if clean == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseVolume parses a share count; sentinels, garbage and counts
// beyond the int64 range count as 0
func ParseVolume(s string) int64 {
	v, ok := ParseNumber(s)
	if !ok || v < 0 || v >= math.MaxInt64 {
		return 0
	}
	return int64(v)
}
