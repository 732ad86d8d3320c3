// Package analytics consumes the remote portfolio analytics service: spend
// summary, tier counts and same-category overlap suggestions.
package analytics

import (
	"context"

	"github.com/shopspring/decimal"
)

// Counts are the number of active subscriptions per tier.
type Counts struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Healthy  int `json:"healthy"`
}

// Summary is the portfolio-level spend summary.
type Summary struct {
	TotalMonthlySpend       decimal.Decimal `json:"totalMonthlySpend"`
	ProjectedAnnualSpend    decimal.Decimal `json:"projectedAnnualSpend"`
	PotentialMonthlySavings decimal.Decimal `json:"potentialMonthlySavings"`
	PotentialAnnualSavings  decimal.Decimal `json:"potentialAnnualSavings"`
	Counts                  Counts          `json:"counts"`
}

// Overlap is a group of subscriptions in the same category that could be consolidated.
type Overlap struct {
	Category        string          `json:"category"`
	Recommendation  string          `json:"recommendation"`
	PotentialSaving decimal.Decimal `json:"potentialSaving"`
}

// Dashboard is the analytics payload for one user.
type Dashboard struct {
	Summary  Summary   `json:"summary"`
	Overlaps []Overlap `json:"overlaps"`
}

// Service fetches dashboard analytics.
type Service interface {
	Dashboard(ctx context.Context, userID int64) (Dashboard, error)
}
