package twstock

import (
	"math"
	"strconv"
	"strings"
)

// FormatThousands renders n with comma separators (1234567 → "1,234,567")
func FormatThousands(n int64) string {
	digits := strconv.FormatInt(n, 10)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}

	out := make([]byte, 0, len(sign)+len(digits)+len(digits)/3)
	out = append(out, sign...)
	head := len(digits) % 3
	if head > 0 {
		out = append(out, digits[:head]...)
	}
	for i := head; i < len(digits); i += 3 {
		if len(out) > len(sign) {
			out = append(out, ',')
		}
		out = append(out, digits[i:i+3]...)
	}
	return string(out)
}

// Turnover is volume × price, saturating at math.MaxInt64
func Turnover(volume int64, price float64) int64 {
	if volume <= 0 || price <= 0 {
		return 0
	}
	v := float64(volume) * price
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// Round2 rounds to two decimal places, the precision of displayed prices
func Round2(v float64) float64 {
	return roundDecimals(v, 2)
}
