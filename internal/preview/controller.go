// Package preview provides the live Drain Score estimate shown while a
// subscription is being entered. Nothing here is persisted.
package preview

import (
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

// PlaceholderDaysSinceUse stands in for the idle time of a subscription that
// does not exist yet.
const PlaceholderDaysSinceUse = 15

// Settings are the owner's scoring settings.
type Settings struct {
	BudgetCap   decimal.Decimal
	StudentMode bool
}

// SettingsFromUser extracts scoring settings from a user record.
func SettingsFromUser(u *models.User) Settings {
	if u == nil {
		return Settings{}
	}
	return Settings{BudgetCap: u.MonthlyBudgetCap, StudentMode: u.StudentMode}
}

func (s Settings) budgetCap() decimal.Decimal {
	if s.BudgetCap.IsZero() {
		return models.DefaultBudgetCap
	}
	return s.BudgetCap
}

// Estimate is a computed preview.
type Estimate struct {
	drain.Result
	Cycle     drain.BillingCycle
	Frequency int // usage count the score was computed with
	Monthly   decimal.Decimal
	Annual    decimal.Decimal
}

// Fields are the raw form values a preview is computed from.
type Fields struct {
	Cost  string
	Cycle string
	Usage string
}

// Controller recomputes an Estimate every time one of its inputs changes.
// It is not safe for concurrent use.
type Controller struct {
	settings  Settings
	fields    Fields
	estimate  Estimate
	available bool
	listeners []func(Estimate, bool)
}

// New creates a controller with the given settings and an empty form.
func New(settings Settings) *Controller {
	c := &Controller{settings: settings}
	c.recompute()
	return c
}

// OnChange registers fn to be called after every recomputation.
func (c *Controller) OnChange(fn func(Estimate, bool)) {
	c.listeners = append(c.listeners, fn)
}

// SetCost updates the raw cost field.
func (c *Controller) SetCost(raw string) {
	c.fields.Cost = raw
	c.recompute()
}

// SetCycle updates the raw billing cycle field.
func (c *Controller) SetCycle(raw string) {
	c.fields.Cycle = raw
	c.recompute()
}

// SetUsage updates the raw usage count field.
func (c *Controller) SetUsage(raw string) {
	c.fields.Usage = raw
	c.recompute()
}

// SetSettings replaces the owner's settings.
func (c *Controller) SetSettings(s Settings) {
	c.settings = s
	c.recompute()
}

// Fields returns the current raw values.
func (c *Controller) Fields() Fields {
	return c.fields
}

// Estimate returns the latest estimate. The second value is false when no
// preview is available because the cost is missing, zero, negative or not a number.
func (c *Controller) Estimate() (Estimate, bool) {
	return c.estimate, c.available
}

func (c *Controller) recompute() {
	c.estimate, c.available = Compute(c.fields, c.settings)
	for _, fn := range c.listeners {
		fn(c.estimate, c.available)
	}
}

// Compute evaluates a single snapshot of form values.
func Compute(f Fields, s Settings) (Estimate, bool) {
	cost, ok := parseLeadingDecimal(f.Cost)
	if !ok || !cost.IsPositive() {
		return Estimate{}, false
	}

	cycle, ok := drain.ParseBillingCycle(f.Cycle)
	if !ok {
		cycle = drain.Monthly
	}

	usage, _ := parseLeadingInt(f.Usage)

	monthly := drain.ToMonthly(cost, cycle)
	result := drain.Calculate(drain.Input{
		MonthlyCost:  monthly,
		Frequency:    usage,
		DaysSinceUse: PlaceholderDaysSinceUse,
		BudgetCap:    s.budgetCap(),
		StudentMode:  s.StudentMode,
	})

	return Estimate{
		Result:    result,
		Cycle:     cycle,
		Frequency: usage,
		Monthly:   monthly,
		Annual:    drain.AnnualCost(monthly),
	}, true
}
