// Package subscription is the authoritative backend path for subscriptions.
// It validates user edits, recomputes the derived drain fields with the shared
// engine and persists the result.
package subscription

import (
	"time"

	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

// Trigger names the event that caused a recomputation.
type Trigger string

// Recompute triggers.
const (
	TriggerCreate   Trigger = "create"
	TriggerUpdate   Trigger = "update"
	TriggerUsage    Trigger = "usage"
	TriggerSettings Trigger = "settings"
	TriggerRenewal  Trigger = "renewal"
)

// Input builds the engine input for sub as owned by user at time now.
// A nil user scores against the default budget cap.
func Input(sub *models.Subscription, user *models.User, now time.Time) drain.Input {
	in := drain.Input{
		MonthlyCost:  drain.ToMonthly(sub.OriginalCost, sub.BillingCycle),
		Frequency:    sub.UsageFrequency,
		DaysSinceUse: float64(drain.DaysSinceLastUse(sub.LastUsedDate, now)),
		BudgetCap:    models.DefaultBudgetCap,
	}
	if user != nil {
		in.BudgetCap = user.MonthlyBudgetCap
		in.StudentMode = user.StudentMode
	}
	return in
}

// Recompute writes CostMonthly, DrainScore and DrainTier of sub together.
func Recompute(sub *models.Subscription, user *models.User, now time.Time) drain.Result {
	in := Input(sub, user, now)
	res := drain.Calculate(in)

	sub.CostMonthly = in.MonthlyCost
	sub.DrainScore = res.Score
	sub.DrainTier = res.Tier
	return res
}

// NextRenewal advances renewal by whole billing cycles until it is after now.
// Monthly and annual plans land on billingDay, or on the last day of a
// shorter month; billingDay 0 uses renewal's own day. Lifetime purchases never
// renew and are returned unchanged with false.
func NextRenewal(renewal time.Time, billingDay int, cycle drain.BillingCycle, now time.Time) (time.Time, bool) {
	if cycle == drain.Lifetime {
		return renewal, false
	}
	if renewal.After(now) {
		return renewal, false
	}

	if cycle == drain.Weekly {
		next := renewal
		for !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next, true
	}

	if billingDay < 1 || billingDay > 31 {
		billingDay = renewal.Day()
	}
	step := 1
	if cycle == drain.Annual {
		step = 12
	}
	for months := step; ; months += step {
		if next := addMonths(renewal, months, billingDay); next.After(now) {
			return next, true
		}
	}
}

// addMonths moves t forward by months, landing on day clamped to the length
// of the target month. The time of day is kept.
func addMonths(t time.Time, months, day int) time.Time {
	y, m, _ := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(day, last)-1)
}
