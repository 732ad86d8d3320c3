// Package models defines the domain entities for the subscription tracker.
package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
)

// DefaultCurrency is the display currency for new users.
const DefaultCurrency = "INR"

// DefaultColor is used when a subscription has no brand color.
const DefaultColor = "#6366f1"

// MaxServiceNameLength is the maximum allowed length for subscription names.
const MaxServiceNameLength = 100

// DefaultBudgetCap is the monthly budget cap given to new users.
var DefaultBudgetCap = decimal.NewFromInt(50)

// SupportedCurrencies lists the display currencies in picker order.
var SupportedCurrencies = []string{"USD", "INR", "EUR", "GBP"}

// IsSupportedCurrency reports whether code is a supported display currency.
func IsSupportedCurrency(code string) bool {
	return slices.Contains(SupportedCurrencies, strings.ToUpper(code))
}

// User represents a Telegram user and their scoring settings.
type User struct {
	ID               int64
	Username         string
	FirstName        string
	LastName         string
	MonthlyBudgetCap decimal.Decimal
	StudentMode      bool
	Currency         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Subscription is a recurring paid service tracked by a user.
// CostMonthly, DrainScore and DrainTier are derived and written together.
type Subscription struct {
	ID             int
	UserID         int64
	ServiceName    string
	Category       Category
	OriginalCost   decimal.Decimal
	BillingCycle   drain.BillingCycle
	CostMonthly    decimal.Decimal
	RenewalDate    time.Time
	BillingDay     int // day of month the plan renews on; 0 means RenewalDate's day
	UsageFrequency int
	LastUsedDate   *time.Time
	DrainScore     int
	DrainTier      drain.Tier
	CancelURL      string
	DowngradeURL   string
	Color          string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AnnualLoss is the yearly projection of the monthly-equivalent cost.
func (s *Subscription) AnnualLoss() decimal.Decimal {
	return drain.AnnualCost(s.CostMonthly)
}

// UsageLog records a single reported use of a subscription.
type UsageLog struct {
	ID             int
	SubscriptionID int
	UserID         int64
	MinutesUsed    int
	UsedAt         time.Time
}

// HistorySnapshot is a per-month spend record written by the analytics service.
type HistorySnapshot struct {
	UserID                  int64
	Month                   int
	Year                    int
	TotalMonthlySpend       decimal.Decimal
	PotentialMonthlySavings decimal.Decimal
	CreatedAt               time.Time
}

// Label formats the snapshot period as "Jan 2026".
func (h HistorySnapshot) Label() string {
	if h.Month < 1 || h.Month > 12 {
		return fmt.Sprintf("%02d/%d", h.Month, h.Year)
	}
	return fmt.Sprintf("%s %d", time.Month(h.Month).String()[:3], h.Year)
}
