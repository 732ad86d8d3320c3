package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/drain-bot/internal/database"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

func setupSubscriptionTest(t *testing.T) (*SubscriptionRepository, database.PGXDB, context.Context) {
	t.Helper()

	tx := database.TestTx(t)
	ctx := context.Background()

	require.NoError(t, NewUserRepository(tx).UpsertUser(ctx, &models.User{ID: 111, Username: "drainer"}))

	return NewSubscriptionRepository(tx), tx, ctx
}

func newTestSubscription(name string, renewal time.Time) *models.Subscription {
	return &models.Subscription{
		UserID:       111,
		ServiceName:  name,
		Category:     models.CategoryOTT,
		OriginalCost: decimal.RequireFromString("999"),
		BillingCycle: drain.Annual,
		CostMonthly:  decimal.RequireFromString("83.25"),
		RenewalDate:  renewal,
		DrainScore:   100,
		DrainTier:    drain.Critical,
		Color:        models.DefaultColor,
		IsActive:     true,
	}
}

func TestSubscriptionRepository_CreateAndGet(t *testing.T) {
	repo, _, ctx := setupSubscriptionTest(t)

	renewal := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	sub := newTestSubscription("Netflix", renewal)
	require.NoError(t, repo.Create(ctx, sub))
	require.NotZero(t, sub.ID)
	require.False(t, sub.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, "Netflix", got.ServiceName)
	require.Equal(t, models.CategoryOTT, got.Category)
	require.Equal(t, drain.Annual, got.BillingCycle)
	require.Equal(t, drain.Critical, got.DrainTier)
	require.Equal(t, 100, got.DrainScore)
	require.True(t, got.CostMonthly.Equal(decimal.RequireFromString("83.25")))
	require.Nil(t, got.LastUsedDate)
	require.True(t, got.RenewalDate.Equal(renewal))
}

func TestSubscriptionRepository_GetByUserID(t *testing.T) {
	repo, _, ctx := setupSubscriptionTest(t)

	active := newTestSubscription("Spotify", time.Now().Add(24*time.Hour))
	require.NoError(t, repo.Create(ctx, active))

	inactive := newTestSubscription("Old Gym", time.Now().Add(24*time.Hour))
	inactive.IsActive = false
	require.NoError(t, repo.Create(ctx, inactive))

	subs, err := repo.GetByUserID(ctx, 111, true)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "Spotify", subs[0].ServiceName)

	all, err := repo.GetByUserID(ctx, 111, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestSubscriptionRepository_Update(t *testing.T) {
	repo, _, ctx := setupSubscriptionTest(t)

	sub := newTestSubscription("Notion", time.Now().Add(24*time.Hour))
	require.NoError(t, repo.Create(ctx, sub))

	used := time.Now().Truncate(time.Second)
	sub.UsageFrequency = 12
	sub.LastUsedDate = &used
	sub.DrainScore = 40
	sub.DrainTier = drain.Warning
	require.NoError(t, repo.Update(ctx, sub))

	got, err := repo.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, 12, got.UsageFrequency)
	require.NotNil(t, got.LastUsedDate)
	require.True(t, got.LastUsedDate.Equal(used))
	require.Equal(t, drain.Warning, got.DrainTier)
}

func TestSubscriptionRepository_Delete(t *testing.T) {
	repo, tx, ctx := setupSubscriptionTest(t)

	sub := newTestSubscription("Dropbox", time.Now().Add(24*time.Hour))
	require.NoError(t, repo.Create(ctx, sub))

	usage := NewUsageLogRepository(tx)
	require.NoError(t, usage.Create(ctx, &models.UsageLog{SubscriptionID: sub.ID, UserID: 111, MinutesUsed: 30, UsedAt: time.Now()}))

	require.NoError(t, repo.Delete(ctx, sub.ID))

	_, err := repo.GetByID(ctx, sub.ID)
	require.ErrorIs(t, err, pgx.ErrNoRows)

	n, err := usage.CountBySubscription(ctx, sub.ID)
	require.NoError(t, err)
	require.Zero(t, n)

	require.ErrorIs(t, repo.Delete(ctx, sub.ID), pgx.ErrNoRows)
}

func TestSubscriptionRepository_GetRenewingBefore(t *testing.T) {
	repo, _, ctx := setupSubscriptionTest(t)

	now := time.Now()
	due := newTestSubscription("Due", now.Add(-time.Hour))
	require.NoError(t, repo.Create(ctx, due))
	later := newTestSubscription("Later", now.AddDate(0, 0, 10))
	require.NoError(t, repo.Create(ctx, later))

	subs, err := repo.GetRenewingBefore(ctx, now)
	require.NoError(t, err)

	var names []string
	for _, s := range subs {
		names = append(names, s.ServiceName)
	}
	require.Contains(t, names, "Due")
	require.NotContains(t, names, "Later")
}

func TestUsageLogRepository(t *testing.T) {
	repo, tx, ctx := setupSubscriptionTest(t)

	sub := newTestSubscription("Duolingo Plus", time.Now().Add(24*time.Hour))
	require.NoError(t, repo.Create(ctx, sub))

	usage := NewUsageLogRepository(tx)
	for range 3 {
		log := &models.UsageLog{SubscriptionID: sub.ID, UserID: 111, MinutesUsed: 30, UsedAt: time.Now()}
		require.NoError(t, usage.Create(ctx, log))
		require.NotZero(t, log.ID)
	}

	n, err := usage.CountBySubscription(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestHistoryRepository_GetByUserID(t *testing.T) {
	_, tx, ctx := setupSubscriptionTest(t)

	for _, m := range []struct{ month, year int }{{11, 2025}, {12, 2025}, {1, 2026}} {
		_, err := tx.Exec(ctx, `
			INSERT INTO history_snapshots (user_id, month, year, total_monthly_spend, potential_monthly_savings)
			VALUES (111, $1, $2, 120.50, 30)
		`, m.month, m.year)
		require.NoError(t, err)
	}

	history, err := NewHistoryRepository(tx).GetByUserID(ctx, 111, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "Dec 2025", history[0].Label())
	require.Equal(t, "Jan 2026", history[1].Label())
	require.True(t, history[1].TotalMonthlySpend.Equal(decimal.RequireFromString("120.50")))
}
