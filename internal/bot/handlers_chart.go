package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
)

// handleChart handles the /chart command to generate a spend breakdown chart.
func (b *Bot) handleChart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleChartCore(ctx, tgBot, update)
}

// handleChartCore is the testable implementation of handleChart.
func (b *Bot) handleChartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	groupBy := strings.ToLower(extractCommandArgs(update.Message.Text, "/chart"))
	var title string
	switch groupBy {
	case "", chartByCategory:
		groupBy = chartByCategory
		title = "Monthly Spend by Category"
	case chartByTier:
		title = "Monthly Spend by Drain Tier"
	default:
		sendHTML(ctx, tg, chatID, "❌ Invalid chart type. Use <code>category</code> or <code>tier</code>.", nil)
		return
	}

	subs, err := b.subs.List(ctx, userID, subscription.SortByDrain)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch subscriptions for chart")
		sendHTML(ctx, tg, chatID, "❌ Failed to generate chart. Please try again.", nil)
		return
	}

	total := decimal.Zero
	for i := range subs {
		total = total.Add(subs[i].CostMonthly)
	}
	if !total.IsPositive() {
		sendHTML(ctx, tg, chatID, "📊 Nothing to chart yet. Add a paid subscription with /add.", nil)
		return
	}

	chartData, err := GenerateSubscriptionChart(subs, groupBy, title)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate chart")
		sendHTML(ctx, tg, chatID, "❌ Failed to generate chart. Please try again.", nil)
		return
	}

	currency := b.currencyFor(ctx, userID)
	caption := fmt.Sprintf("📊 <b>%s</b>\n\nTotal: %s/mo\nCount: %d subscriptions",
		title, money(total, currency), len(subs))

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: generateChartFilename(groupBy, b.now()), Data: bytes.NewReader(chartData)},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send chart document")
		sendHTML(ctx, tg, chatID, "❌ Failed to send chart. Please try again.", nil)
		return
	}

	logger.Log.Info().
		Str(logFieldUserHash, logger.HashUserID(userID)).
		Str("group_by", groupBy).
		Int("subscription_count", len(subs)).
		Msg("Chart generated successfully")
}
