package bot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/drain-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/drain-bot/internal/config"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	"gitlab.com/yelinaung/drain-bot/internal/models"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
	"gitlab.com/yelinaung/drain-bot/internal/subscription/subscriptiontest"
)

const (
	testUserID int64 = 4242
	testChatID int64 = 4242
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	logger.InitHashSaltForTesting("test-salt-for-unit-tests-minimum-32-chars")
	os.Exit(m.Run())
}

// setupTestBot creates a Bot backed by in-memory stores and a fixed clock.
// The test user is whitelisted with a 50 INR budget cap.
func setupTestBot(t *testing.T) (*Bot, *subscriptiontest.Store, *mocks.MockBot) {
	t.Helper()

	store := subscriptiontest.NewStore()
	store.AddUser(models.User{
		ID:               testUserID,
		Username:         "testuser",
		FirstName:        "Asha",
		MonthlyBudgetCap: decimal.NewFromInt(50),
		Currency:         "INR",
	})

	svc := subscription.NewService(store.Users(), store.Subscriptions(), store.Usage(),
		subscription.WithClock(func() time.Time { return testNow }))

	cfg := &config.Config{
		TelegramBotToken:     "test-token",
		DatabaseURL:          "test-url",
		WhitelistedUserIDs:   []int64{testUserID},
		DefaultBudgetCap:     models.DefaultBudgetCap,
		DefaultCurrency:      models.DefaultCurrency,
		RenewalCheckSchedule: "0 9 * * *",
		RenewalReminderDays:  3,
		Timezone:             "UTC",
	}

	b, err := newBot(cfg, Deps{Users: store.Users(), Subscriptions: svc})
	require.NoError(t, err)
	b.now = func() time.Time { return testNow }

	mockBot := mocks.NewMockBot()
	b.messageSender = mockBot
	return b, store, mockBot
}

// addSubscription creates a subscription for the test user.
func addSubscription(t *testing.T, b *Bot, draft subscription.Draft) *models.Subscription {
	t.Helper()
	sub, err := b.subs.Create(context.Background(), testUserID, draft)
	require.NoError(t, err)
	return sub
}

func netflixDraft() subscription.Draft {
	return subscription.Draft{ServiceName: "Netflix", Cost: decimal.NewFromInt(649)}
}
