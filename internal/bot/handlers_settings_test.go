package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/drain-bot/internal/bot/mocks"
)

func TestHandleSettingsCore(t *testing.T) {
	t.Parallel()

	b, _, mockBot := setupTestBot(t)
	b.handleSettingsCore(context.Background(), mockBot, mocks.CommandUpdate(testChatID, testUserID, "/settings"))

	msg := mockBot.LastSentMessage().Text
	require.Contains(t, msg, "Monthly budget cap: <b>₹50.00</b>")
	require.Contains(t, msg, "Student mode: <b>off</b>")
	require.Contains(t, msg, "Currency: <b>INR</b>")
}

func TestHandleBudgetCore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("new cap rescores subscriptions", func(t *testing.T) {
		t.Parallel()
		b, _, mockBot := setupTestBot(t)
		sub := addSubscription(t, b, netflixDraft())
		require.Equal(t, 100, sub.DrainScore)

		b.handleBudgetCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/budget 1,000"))

		msg := mockBot.LastSentMessage().Text
		require.Contains(t, msg, "Settings Updated")
		require.Contains(t, msg, "Monthly budget cap: <b>₹1,000.00</b>")
		require.Contains(t, msg, "Recalculated 1 drain score.")

		sub, err := b.subs.Get(ctx, testUserID, sub.ID)
		require.NoError(t, err)
		require.Equal(t, 88, sub.DrainScore)
	})

	t.Run("zero is rejected", func(t *testing.T) {
		t.Parallel()
		b, _, mockBot := setupTestBot(t)
		b.handleBudgetCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/budget 0"))
		require.Contains(t, mockBot.LastSentMessage().Text, "Monthly budget cap must be greater than zero")
	})

	t.Run("invalid amount", func(t *testing.T) {
		t.Parallel()
		b, _, mockBot := setupTestBot(t)
		b.handleBudgetCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/budget abc"))
		require.Contains(t, mockBot.LastSentMessage().Text, "Invalid amount")
	})

	t.Run("usage", func(t *testing.T) {
		t.Parallel()
		b, _, mockBot := setupTestBot(t)
		b.handleBudgetCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/budget"))
		require.Contains(t, mockBot.LastSentMessage().Text, "Usage:")
	})
}

func TestHandleStudentCore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, _, mockBot := setupTestBot(t)
	addSubscription(t, b, netflixDraft())
	addSubscription(t, b, netflixDraft())

	b.handleStudentCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/student on"))
	msg := mockBot.LastSentMessage().Text
	require.Contains(t, msg, "Student mode: <b>on</b> (scored against ₹30.00)")
	require.Contains(t, msg, "Recalculated 2 drain scores.")

	b.handleStudentCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/student"))
	require.Contains(t, mockBot.LastSentMessage().Text, "Student mode: <b>off</b>")

	b.handleStudentCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/student"))
	require.Contains(t, mockBot.LastSentMessage().Text, "Student mode: <b>on</b>")

	b.handleStudentCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/student maybe"))
	require.Contains(t, mockBot.LastSentMessage().Text, "/student on|off")
}

func TestHandleCurrencyCore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("code is case insensitive", func(t *testing.T) {
		t.Parallel()
		b, _, mockBot := setupTestBot(t)
		b.handleCurrencyCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/currency usd"))
		msg := mockBot.LastSentMessage().Text
		require.Contains(t, msg, "Currency: <b>USD</b>")
		require.Contains(t, msg, "Monthly budget cap: <b>$50.00</b>")
	})

	t.Run("unsupported code", func(t *testing.T) {
		t.Parallel()
		b, _, mockBot := setupTestBot(t)
		b.handleCurrencyCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/currency XYZ"))
		require.Contains(t, mockBot.LastSentMessage().Text, "Unsupported currency")
	})

	t.Run("no argument lists currencies", func(t *testing.T) {
		t.Parallel()
		b, _, mockBot := setupTestBot(t)
		b.handleCurrencyCore(ctx, mockBot, mocks.CommandUpdate(testChatID, testUserID, "/currency"))
		msg := mockBot.LastSentMessage().Text
		require.Contains(t, msg, "Supported Currencies")
		require.Contains(t, msg, "₹ INR")
		require.Contains(t, msg, "$ USD")
	})
}
