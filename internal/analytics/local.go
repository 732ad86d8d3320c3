package analytics

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

// SubscriptionReader lists a user's stored subscriptions.
type SubscriptionReader interface {
	GetByUserID(ctx context.Context, userID int64, activeOnly bool) ([]models.Subscription, error)
}

// LocalService computes dashboards from stored subscriptions when no remote
// analytics endpoint is configured.
type LocalService struct {
	subs SubscriptionReader
}

// NewLocalService creates a LocalService.
func NewLocalService(subs SubscriptionReader) *LocalService {
	return &LocalService{subs: subs}
}

// Dashboard summarizes the user's active subscriptions.
func (s *LocalService) Dashboard(ctx context.Context, userID int64) (Dashboard, error) {
	subs, err := s.subs.GetByUserID(ctx, userID, true)
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return Summarize(subs), nil
}

// Summarize builds a dashboard from active subscriptions. Critical
// subscriptions count as potential savings; categories holding more than one
// subscription are reported as overlaps, keeping the one with the lowest drain.
func Summarize(subs []models.Subscription) Dashboard {
	var d Dashboard
	byCategory := make(map[models.Category][]models.Subscription)

	for _, sub := range subs {
		if !sub.IsActive {
			continue
		}
		d.Summary.Counts.Total++
		d.Summary.TotalMonthlySpend = d.Summary.TotalMonthlySpend.Add(sub.CostMonthly)

		switch sub.DrainTier {
		case drain.Critical:
			d.Summary.Counts.Critical++
			d.Summary.PotentialMonthlySavings = d.Summary.PotentialMonthlySavings.Add(sub.CostMonthly)
		case drain.Warning:
			d.Summary.Counts.Warning++
		default:
			d.Summary.Counts.Healthy++
		}

		byCategory[sub.Category] = append(byCategory[sub.Category], sub)
	}

	d.Summary.TotalMonthlySpend = d.Summary.TotalMonthlySpend.Round(2)
	d.Summary.ProjectedAnnualSpend = drain.AnnualCost(d.Summary.TotalMonthlySpend)
	d.Summary.PotentialMonthlySavings = d.Summary.PotentialMonthlySavings.Round(2)
	d.Summary.PotentialAnnualSavings = drain.AnnualCost(d.Summary.PotentialMonthlySavings)

	for category, group := range byCategory {
		if len(group) < 2 {
			continue
		}
		keep := slices.MinFunc(group, func(a, b models.Subscription) int {
			if a.DrainScore != b.DrainScore {
				return a.DrainScore - b.DrainScore
			}
			return a.ID - b.ID
		})
		saving := decimal.Zero
		for _, sub := range group {
			if sub.ID != keep.ID {
				saving = saving.Add(sub.CostMonthly)
			}
		}
		d.Overlaps = append(d.Overlaps, Overlap{
			Category: string(category),
			Recommendation: fmt.Sprintf("You have %d %s subscriptions. Consider keeping just %s.",
				len(group), category, keep.ServiceName),
			PotentialSaving: saving.Round(2),
		})
	}
	slices.SortFunc(d.Overlaps, func(a, b Overlap) int {
		if c := b.PotentialSaving.Cmp(a.PotentialSaving); c != 0 {
			return c
		}
		if a.Category < b.Category {
			return -1
		}
		if a.Category > b.Category {
			return 1
		}
		return 0
	})

	return d
}
