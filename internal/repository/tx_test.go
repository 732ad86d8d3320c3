package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/drain-bot/internal/database"
	"gitlab.com/yelinaung/drain-bot/internal/models"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
)

func TestTxManager_InTx(t *testing.T) {
	subs, tx, ctx := setupSubscriptionTest(t)

	sub := newTestSubscription("Netflix", time.Now().Add(48*time.Hour))
	require.NoError(t, subs.Create(ctx, sub))

	beginner, ok := tx.(database.TxBeginner)
	require.True(t, ok)
	manager := NewTxManager(beginner)

	t.Run("rolls back every write on error", func(t *testing.T) {
		err := manager.InTx(ctx, func(st subscription.Stores) error {
			if err := st.Users.UpdateSettings(ctx, 111, decimal.NewFromInt(1000), true, "USD"); err != nil {
				return err
			}
			if err := st.Usage.Create(ctx, &models.UsageLog{SubscriptionID: sub.ID, UserID: 111, UsedAt: time.Now()}); err != nil {
				return err
			}
			return errors.New("boom")
		})
		require.ErrorContains(t, err, "boom")

		user, err := NewUserRepository(tx).GetUserByID(ctx, 111)
		require.NoError(t, err)
		require.True(t, user.MonthlyBudgetCap.Equal(decimal.NewFromInt(50)))
		require.False(t, user.StudentMode)

		n, err := NewUsageLogRepository(tx).CountBySubscription(ctx, sub.ID)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("commits on success", func(t *testing.T) {
		err := manager.InTx(ctx, func(st subscription.Stores) error {
			sub.UsageFrequency = 7
			return st.Subscriptions.Update(ctx, sub)
		})
		require.NoError(t, err)

		got, err := subs.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		require.Equal(t, 7, got.UsageFrequency)
	})
}
