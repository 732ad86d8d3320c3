package drain

import (
	"math"
	"time"
)

// DefaultDaysSinceUse is assumed for subscriptions that were never used.
const DefaultDaysSinceUse = 30

const day = 24 * time.Hour

// DaysSinceLastUse returns whole days elapsed since lastUsed, rounded down.
// A nil lastUsed counts as DefaultDaysSinceUse.
func DaysSinceLastUse(lastUsed *time.Time, now time.Time) int {
	if lastUsed == nil {
		return DefaultDaysSinceUse
	}
	return int(math.Floor(float64(now.Sub(*lastUsed)) / float64(day)))
}

// DaysUntilRenewal returns days left until renewal, rounded up. Past dates are negative.
func DaysUntilRenewal(renewal, now time.Time) int {
	return int(math.Ceil(float64(renewal.Sub(now)) / float64(day)))
}
