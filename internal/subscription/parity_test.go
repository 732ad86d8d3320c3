package subscription

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
	"gitlab.com/yelinaung/drain-bot/internal/preview"
	"pgregory.net/rapid"
)

// The preview and the persisted value must agree whenever they see the same
// inputs: a subscription last used fifteen days ago is exactly what the
// preview assumes for a new one.
func TestRecomputeMatchesPreview(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cost := decimal.New(rapid.Int64Range(1, 1_000_000).Draw(t, "cents"), -2)
		cycle := rapid.SampledFrom(drain.BillingCycles).Draw(t, "cycle")
		usage := rapid.IntRange(0, 50).Draw(t, "usage")
		user := &models.User{
			MonthlyBudgetCap: decimal.New(rapid.Int64Range(1, 200_000).Draw(t, "cap"), -2),
			StudentMode:      rapid.Bool().Draw(t, "student"),
		}

		now := time.Date(2026, 5, 20, 8, 30, 0, 0, time.UTC)
		lastUsed := now.Add(-preview.PlaceholderDaysSinceUse * 24 * time.Hour)
		sub := &models.Subscription{
			OriginalCost:   cost,
			BillingCycle:   cycle,
			UsageFrequency: usage,
			LastUsedDate:   &lastUsed,
		}
		backend := Recompute(sub, user, now)

		est, ok := preview.Compute(preview.Fields{
			Cost:  cost.String(),
			Cycle: string(cycle),
			Usage: decimal.NewFromInt(int64(usage)).String(),
		}, preview.SettingsFromUser(user))
		if !ok {
			t.Fatalf("preview suppressed for positive cost %s", cost)
		}

		if est.Result != backend {
			t.Fatalf("preview %+v, backend %+v", est.Result, backend)
		}
		if !est.Monthly.Equal(sub.CostMonthly) {
			t.Fatalf("preview monthly %s, backend %s", est.Monthly, sub.CostMonthly)
		}
	})
}

func TestRecompute(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 20, 8, 30, 0, 0, time.UTC)

	t.Run("never used counts as thirty idle days", func(t *testing.T) {
		t.Parallel()
		sub := &models.Subscription{OriginalCost: decimal.NewFromInt(999), BillingCycle: drain.Annual}
		res := Recompute(sub, &models.User{MonthlyBudgetCap: decimal.NewFromInt(50)}, now)
		require.Equal(t, drain.Result{Score: 100, Tier: drain.Critical}, res)
		require.Equal(t, "83.25", sub.CostMonthly.StringFixed(2))
		require.Equal(t, 100, sub.DrainScore)
		require.Equal(t, drain.Critical, sub.DrainTier)
	})

	t.Run("nil owner uses the default cap", func(t *testing.T) {
		t.Parallel()
		sub := &models.Subscription{OriginalCost: decimal.NewFromInt(25), UsageFrequency: 10}
		in := Input(sub, nil, now)
		require.True(t, in.BudgetCap.Equal(models.DefaultBudgetCap))
		require.False(t, in.StudentMode)
		require.Equal(t, 70, Recompute(sub, nil, now).Score)
	})

	t.Run("used today", func(t *testing.T) {
		t.Parallel()
		used := now.Add(-2 * time.Hour)
		sub := &models.Subscription{OriginalCost: decimal.NewFromInt(10), UsageFrequency: 20, LastUsedDate: &used}
		res := Recompute(sub, &models.User{MonthlyBudgetCap: decimal.NewFromInt(50)}, now)
		require.Equal(t, drain.Result{Score: 7, Tier: drain.Healthy}, res)
	})
}
