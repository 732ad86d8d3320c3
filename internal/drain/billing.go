// Package drain implements the Drain Score engine: billing normalization,
// the weighted score calculation and tier classification.
//
// Every function here is pure. The preview shown while a subscription is being
// entered and the value persisted by the backend are computed by the same code.
package drain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BillingCycle is the charging cadence of a subscription.
type BillingCycle string

// Supported billing cycles.
const (
	Monthly  BillingCycle = "Monthly"
	Annual   BillingCycle = "Annual"
	Weekly   BillingCycle = "Weekly"
	Lifetime BillingCycle = "Lifetime"
)

// BillingCycles lists the cycles in display order.
var BillingCycles = []BillingCycle{Monthly, Annual, Weekly, Lifetime}

var (
	monthsPerYear = decimal.NewFromInt(12)
	weeksPerMonth = decimal.RequireFromString("4.33")
)

// ParseBillingCycle matches a cycle name case-insensitively.
// "yearly" and "year" are accepted for Annual, "month" and "week" for the others.
func ParseBillingCycle(s string) (BillingCycle, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month":
		return Monthly, true
	case "annual", "annually", "yearly", "year":
		return Annual, true
	case "weekly", "week":
		return Weekly, true
	case "lifetime", "once":
		return Lifetime, true
	default:
		return "", false
	}
}

// Valid reports whether c is one of the supported cycles.
func (c BillingCycle) Valid() bool {
	switch c {
	case Monthly, Annual, Weekly, Lifetime:
		return true
	default:
		return false
	}
}

// ToMonthly converts a cost charged per cycle into a monthly-equivalent amount,
// rounded half-up to two decimal places. Unrecognized cycles are treated as Monthly.
func ToMonthly(cost decimal.Decimal, cycle BillingCycle) decimal.Decimal {
	var monthly decimal.Decimal
	switch cycle {
	case Annual:
		monthly = cost.Div(monthsPerYear)
	case Weekly:
		monthly = cost.Mul(weeksPerMonth)
	case Lifetime:
		monthly = decimal.Zero
	default:
		monthly = cost
	}
	return monthly.Round(2)
}

// AnnualCost projects a monthly amount over a year.
func AnnualCost(monthly decimal.Decimal) decimal.Decimal {
	return monthly.Mul(monthsPerYear).Round(2)
}
