package preview

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// maxExponent bounds scientific notation to the float64 range; anything
// larger would not be a finite number.
const maxExponent = 308

var (
	leadingDecimal = regexp.MustCompile(`^([+-]?(?:\d+\.?\d*|\.\d+))(?:[eE]([+-]?\d+))?`)
	leadingInt     = regexp.MustCompile(`^[+-]?\d+`)
)

// parseLeadingDecimal reads the number at the start of s, ignoring any trailing
// text, so "12.50/mo" reads as 12.50 and "1e3" as 1000. Exponents past the
// float64 range are rejected, and tiny ones read as zero.
func parseLeadingDecimal(s string) (decimal.Decimal, bool) {
	m := leadingDecimal.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return decimal.Zero, false
	}

	mantissa := m[1]
	neg := strings.HasPrefix(mantissa, "-")
	mantissa = strings.TrimLeft(mantissa, "+-")
	mantissa = strings.TrimSuffix(mantissa, ".")
	if strings.HasPrefix(mantissa, ".") {
		mantissa = "0" + mantissa
	}
	d, err := decimal.NewFromString(mantissa)
	if err != nil {
		return decimal.Zero, false
	}

	if m[2] != "" {
		exp, err := strconv.Atoi(m[2])
		switch {
		case (err != nil && strings.HasPrefix(m[2], "-")) || exp < -maxExponent:
			return decimal.Zero, true
		case err != nil || exp > maxExponent:
			return decimal.Zero, false
		}
		d = d.Shift(int32(exp))
	}

	if neg {
		d = d.Neg()
	}
	return d, true
}

// parseLeadingInt reads the integer at the start of s. Values past the int
// range saturate; anything unparseable is 0.
func parseLeadingInt(s string) (int, bool) {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(m, "-") {
			return math.MinInt, true
		}
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}
