package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
)

// handleExport handles the /export command.
func (b *Bot) handleExport(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleExportCore(ctx, tgBot, update)
}

// handleExportCore sends every subscription, paused ones included, as a CSV
// or XLSX document. CSV is the default.
func (b *Bot) handleExportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	format := strings.ToLower(extractCommandArgs(update.Message.Text, "/export"))
	if format == "" {
		format = exportCSV
	}
	if format != exportCSV && format != exportXLSX {
		sendHTML(ctx, tg, chatID, "❌ Invalid format. Use <code>/export csv</code> or <code>/export xlsx</code>.", nil)
		return
	}

	subs, err := b.subs.ListAll(ctx, userID, subscription.SortByName)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch subscriptions for export")
		sendHTML(ctx, tg, chatID, "❌ Failed to generate export. Please try again.", nil)
		return
	}
	if len(subs) == 0 {
		sendHTML(ctx, tg, chatID, "📭 Nothing to export yet.", nil)
		return
	}

	currency := b.currencyFor(ctx, userID)

	var data []byte
	switch format {
	case exportXLSX:
		data, err = GenerateSubscriptionsXLSX(subs, currency)
	default:
		data, err = GenerateSubscriptionsCSV(subs, currency)
	}
	if err != nil {
		logger.Log.Error().Err(err).Str("format", format).Msg("Failed to generate export")
		sendHTML(ctx, tg, chatID, "❌ Failed to generate export. Please try again.", nil)
		return
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: generateExportFilename(format, b.now()), Data: bytes.NewReader(data)},
		Caption:   fmt.Sprintf("📄 <b>Subscriptions Export</b>\n\n%d subscriptions", len(subs)),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send export document")
		sendHTML(ctx, tg, chatID, "❌ Failed to send export. Please try again.", nil)
		return
	}

	logger.Log.Info().
		Str(logFieldUserHash, logger.HashUserID(userID)).
		Str("format", format).
		Int("subscription_count", len(subs)).
		Msg("Export generated successfully")
}
