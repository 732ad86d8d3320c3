package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

func TestNextRenewal(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		renewal   time.Time
		cycle     drain.BillingCycle
		want      time.Time
		wantRolls bool
	}{
		{
			name:      "monthly due yesterday",
			renewal:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
			cycle:     drain.Monthly,
			want:      time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC),
			wantRolls: true,
		},
		{
			name:      "monthly missed several cycles",
			renewal:   time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			cycle:     drain.Monthly,
			want:      time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			wantRolls: true,
		},
		{
			name:      "annual",
			renewal:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
			cycle:     drain.Annual,
			want:      time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC),
			wantRolls: true,
		},
		{
			name:      "weekly",
			renewal:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			cycle:     drain.Weekly,
			want:      time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC),
			wantRolls: true,
		},
		{
			name:      "renewal exactly now rolls",
			renewal:   now,
			cycle:     drain.Monthly,
			want:      now.AddDate(0, 1, 0),
			wantRolls: true,
		},
		{
			name:    "future renewal untouched",
			renewal: now.Add(time.Hour),
			cycle:   drain.Monthly,
			want:    now.Add(time.Hour),
		},
		{
			name:    "lifetime never renews",
			renewal: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			cycle:   drain.Lifetime,
			want:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, rolled := NextRenewal(tt.renewal, 0, tt.cycle, now)
			require.Equal(t, tt.wantRolls, rolled)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNextRenewal_MonthEnd(t *testing.T) {
	t.Parallel()

	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name       string
		renewal    time.Time
		billingDay int
		cycle      drain.BillingCycle
		now        time.Time
		want       time.Time
	}{
		{"jan 31 monthly clamps to feb 28", day(2026, 1, 31), 31, drain.Monthly, day(2026, 2, 1), day(2026, 2, 28)},
		{"clamped date returns to the 31st", day(2026, 2, 28), 31, drain.Monthly, day(2026, 3, 1), day(2026, 3, 31)},
		{"thirty day month", day(2026, 3, 31), 31, drain.Monthly, day(2026, 4, 1), day(2026, 4, 30)},
		{"several missed cycles", day(2026, 1, 31), 31, drain.Monthly, day(2026, 4, 5), day(2026, 4, 30)},
		{"leap year february", day(2024, 1, 31), 31, drain.Monthly, day(2024, 2, 1), day(2024, 2, 29)},
		{"unknown billing day uses the renewal day", day(2026, 2, 28), 0, drain.Monthly, day(2026, 3, 1), day(2026, 3, 28)},
		{"feb 29 annual clamps to feb 28", day(2024, 2, 29), 29, drain.Annual, day(2024, 3, 1), day(2025, 2, 28)},
		{"feb 29 annual returns in a leap year", day(2025, 2, 28), 29, drain.Annual, day(2027, 3, 1), day(2028, 2, 29)},
		{"december rolls into the next year", day(2026, 12, 31), 31, drain.Monthly, day(2027, 1, 1), day(2027, 1, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, rolled := NextRenewal(tt.renewal, tt.billingDay, tt.cycle, tt.now)
			require.True(t, rolled)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestService_RollOverRenewalsKeepsBillingDay(t *testing.T) {
	t.Parallel()

	clock := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	renewal := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	sub, err := svc.Create(ctx, testUserID, Draft{ServiceName: "Gym", Cost: decimal.NewFromInt(30), RenewalDate: &renewal})
	require.NoError(t, err)
	require.Equal(t, 31, sub.BillingDay)

	for _, step := range []struct{ now, want time.Time }{
		{time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)},
	} {
		clock = step.now
		rolled, err := svc.RollOverRenewals(ctx)
		require.NoError(t, err)
		require.Len(t, rolled, 1)
		require.Equal(t, step.want, rolled[0].RenewalDate)
		require.Equal(t, 31, rolled[0].BillingDay)
	}

	moved := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	edited, err := svc.Update(ctx, testUserID, sub.ID, Patch{RenewalDate: &moved})
	require.NoError(t, err)
	require.Equal(t, 15, edited.BillingDay)
}

func TestService_RollOverRenewals(t *testing.T) {
	t.Parallel()

	clock := testNow
	svc, store := newTestService(t, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	renewal := testNow.AddDate(0, 0, 5)
	monthly, err := svc.Create(ctx, testUserID, Draft{ServiceName: "Monthly", Cost: decimal.NewFromInt(25), UsageFrequency: 10, RenewalDate: &renewal})
	require.NoError(t, err)
	lifetime, err := svc.Create(ctx, testUserID, Draft{ServiceName: "Once", Cost: decimal.NewFromInt(99), BillingCycle: drain.Lifetime, RenewalDate: &renewal})
	require.NoError(t, err)
	later := testNow.AddDate(0, 2, 0)
	_, err = svc.Create(ctx, testUserID, Draft{ServiceName: "Later", Cost: decimal.NewFromInt(5), RenewalDate: &later})
	require.NoError(t, err)

	_, err = svc.LogUsage(ctx, testUserID, monthly.ID, 10)
	require.NoError(t, err)

	// Ten days on, the monthly plan is due and nothing was used since the log.
	clock = testNow.AddDate(0, 0, 10)

	rolled, err := svc.RollOverRenewals(ctx)
	require.NoError(t, err)
	require.Len(t, rolled, 1)
	require.Equal(t, monthly.ID, rolled[0].ID)
	require.Equal(t, renewal.AddDate(0, 1, 0), rolled[0].RenewalDate)
	require.Equal(t, 11, rolled[0].UsageFrequency)
	// 17.5 + 10/30*40 + 0.45*25
	require.Equal(t, 42, rolled[0].DrainScore)
	require.Equal(t, drain.Warning, rolled[0].DrainTier)

	stored, err := store.Subscriptions().GetByID(ctx, lifetime.ID)
	require.NoError(t, err)
	require.Equal(t, renewal, stored.RenewalDate)

	again, err := svc.RollOverRenewals(ctx)
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestService_RollOverRenewalsMissingOwner(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Subscriptions().Create(ctx, &models.Subscription{
		UserID:       777,
		ServiceName:  "Orphan",
		OriginalCost: decimal.NewFromInt(10),
		BillingCycle: drain.Monthly,
		RenewalDate:  testNow.Add(-time.Hour),
		IsActive:     true,
	}))

	rolled, err := svc.RollOverRenewals(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, rolled)
}
