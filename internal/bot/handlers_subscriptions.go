package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/drain-bot/internal/models"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
)

const (
	deleteCallbackPrefix = "delete_"
	useCallbackPrefix    = "use_"

	deleteConfirmAction = "confirm"
	deleteCancelAction  = "cancel"

	// maxMessageLength leaves headroom below Telegram's 4096 character limit.
	maxMessageLength = 3800
	// maxUseButtons bounds the inline keyboard under /list.
	maxUseButtons = 12

	addUsage = `Usage: <code>/add &lt;name&gt; &lt;cost&gt; [cycle] [key=value ...]</code>
Example: <code>/add Netflix 649 monthly uses=4</code>`
	editUsage = `Usage: <code>/edit &lt;id&gt; key=value ...</code>
Example: <code>/edit 3 cost=799 cycle=annual</code>`
	useUsage    = "Usage: <code>/use &lt;id&gt; [minutes]</code>"
	deleteUsage = "Usage: <code>/delete &lt;id&gt;</code>"

	logFieldSubscriptionID = "subscription_id"
	logFieldUserHash       = "user_hash"
)

// currencyFor returns the user's display currency, or the configured default.
func (b *Bot) currencyFor(ctx context.Context, userID int64) string {
	user, err := b.subs.Settings(ctx, userID)
	if err != nil || user.Currency == "" {
		return b.cfg.DefaultCurrency
	}
	return user.Currency
}

// parseErrorMessage renders a command parse failure with its usage hint.
func parseErrorMessage(err error, usage string) string {
	if errors.Is(err, errMissingArgs) {
		return usage
	}
	return fmt.Sprintf("❌ %s.\n\n%s", escapeHTML(upperFirst(err.Error())), usage)
}

func useKeyboard(sub *appmodels.Subscription) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "✅ I used it", CallbackData: fmt.Sprintf("%s%d", useCallbackPrefix, sub.ID)}},
		},
	}
}

// handleAdd handles the /add command.
func (b *Bot) handleAdd(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAddCore(ctx, tgBot, update)
}

// handleAddCore is the testable implementation of handleAdd.
func (b *Bot) handleAddCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	draft, err := parseAddArgs(extractCommandArgs(update.Message.Text, "/add"), b.cfg.Location())
	if err != nil {
		sendHTML(ctx, tg, chatID, parseErrorMessage(err, addUsage), nil)
		return
	}

	sub, err := b.subs.Create(ctx, userID, draft)
	if err != nil {
		logger.Log.Warn().Err(err).Str(logFieldUserHash, logger.HashUserID(userID)).Msg("Failed to add subscription")
		sendHTML(ctx, tg, chatID, serviceErrorMessage(err), nil)
		return
	}
	b.clearPreview(userID)

	text := formatSaved("✅ <b>Subscription Added</b>", sub, b.currencyFor(ctx, userID), b.now())
	sendHTML(ctx, tg, chatID, text, useKeyboard(sub))
}

// handleList handles the /list command.
func (b *Bot) handleList(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleListCore(ctx, tgBot, update)
}

// handleListCore lists active subscriptions, sorted by the optional argument.
func (b *Bot) handleListCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	order := subscription.ParseSortOrder(extractCommandArgs(update.Message.Text, "/list"))
	subs, err := b.subs.List(ctx, userID, order)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUserHash, logger.HashUserID(userID)).Msg("Failed to list subscriptions")
		sendHTML(ctx, tg, chatID, "❌ Failed to load subscriptions. Please try again.", nil)
		return
	}

	if len(subs) == 0 {
		sendHTML(ctx, tg, chatID, "📭 No subscriptions yet.\n\nAdd one with <code>/add Netflix 649</code>.", nil)
		return
	}

	currency := b.currencyFor(ctx, userID)
	now := b.now()

	total := decimal.Zero
	cards := make([]string, len(subs))
	for i := range subs {
		total = total.Add(subs[i].CostMonthly)
		cards[i] = formatSubscription(&subs[i], currency, now)
	}

	header := fmt.Sprintf("📋 <b>Your Subscriptions</b> (%d, by %s)\n\n", len(subs), order)
	footer := fmt.Sprintf("\n\n<b>Total:</b> %s/mo", money(total, currency))

	chunks := chunkCards(header, cards, footer)
	for i, chunk := range chunks {
		var markup models.ReplyMarkup
		if i == len(chunks)-1 {
			markup = listKeyboard(subs)
		}
		sendHTML(ctx, tg, chatID, chunk, markup)
	}
}

// chunkCards joins cards into messages that stay under maxMessageLength.
func chunkCards(header string, cards []string, footer string) []string {
	var (
		chunks []string
		sb     strings.Builder
	)
	sb.WriteString(header)
	for i, card := range cards {
		if i > 0 && sb.Len()+len(card)+2 > maxMessageLength {
			chunks = append(chunks, strings.TrimRight(sb.String(), "\n"))
			sb.Reset()
		}
		sb.WriteString(card)
		sb.WriteString("\n\n")
	}
	chunks = append(chunks, strings.TrimRight(sb.String(), "\n")+footer)
	return chunks
}

func listKeyboard(subs []appmodels.Subscription) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for i := range subs {
		if i == maxUseButtons {
			break
		}
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         "✅ Used " + subs[i].ServiceName,
			CallbackData: fmt.Sprintf("%s%d", useCallbackPrefix, subs[i].ID),
		}})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// handleUse handles the /use command.
func (b *Bot) handleUse(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleUseCore(ctx, tgBot, update)
}

// handleUseCore logs one use of a subscription.
func (b *Bot) handleUseCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	fields := strings.Fields(extractCommandArgs(update.Message.Text, "/use"))
	if len(fields) == 0 || len(fields) > 2 {
		sendHTML(ctx, tg, chatID, useUsage, nil)
		return
	}
	id, err := parseID(fields[0])
	if err != nil {
		sendHTML(ctx, tg, chatID, parseErrorMessage(err, useUsage), nil)
		return
	}
	minutes := 0
	if len(fields) == 2 {
		minutes, err = strconv.Atoi(fields[1])
		if err != nil || minutes < 0 {
			sendHTML(ctx, tg, chatID, "❌ Minutes must be a whole number.\n\n"+useUsage, nil)
			return
		}
	}

	text, err := b.logUse(ctx, userID, id, minutes)
	if err != nil {
		sendHTML(ctx, tg, chatID, serviceErrorMessage(err), nil)
		return
	}
	sendHTML(ctx, tg, chatID, text, nil)
}

// logUse records a use and describes how the score moved.
func (b *Bot) logUse(ctx context.Context, userID int64, id, minutes int) (string, error) {
	before, err := b.subs.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	sub, err := b.subs.LogUsage(ctx, userID, id, minutes)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str(logFieldUserHash, logger.HashUserID(userID)).
			Int(logFieldSubscriptionID, id).
			Msg("Failed to log usage")
		return "", err
	}
	return fmt.Sprintf("✅ Logged a use of <b>%s</b>\nDrain %d → <b>%d</b> · %s",
		escapeHTML(sub.ServiceName), before.DrainScore, sub.DrainScore, sub.DrainTier.Label()), nil
}

// handleUseCallback handles the "I used it" button.
func (b *Bot) handleUseCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleUseCallbackCore(ctx, tgBot, update)
}

// handleUseCallbackCore is the testable implementation of handleUseCallback.
func (b *Bot) handleUseCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	query := update.CallbackQuery

	id, err := parseID(strings.TrimPrefix(query.Data, useCallbackPrefix))
	if err != nil {
		_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: query.ID})
		return
	}

	text, err := b.logUse(ctx, query.From.ID, id, 0)
	if err != nil {
		_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: query.ID,
			Text:            subscriptionNotFoundMsg,
		})
		return
	}

	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
		Text:            "✅ Use logged",
	})
	if query.Message.Message != nil {
		sendHTML(ctx, tg, query.Message.Message.Chat.ID, text, nil)
	}
}

// handleEdit handles the /edit command.
func (b *Bot) handleEdit(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleEditCore(ctx, tgBot, update)
}

// handleEditCore applies key=value changes to a subscription.
func (b *Bot) handleEditCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	id, patch, err := parseEditArgs(extractCommandArgs(update.Message.Text, "/edit"), b.cfg.Location())
	if err != nil {
		sendHTML(ctx, tg, chatID, parseErrorMessage(err, editUsage), nil)
		return
	}

	sub, err := b.subs.Update(ctx, userID, id, patch)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str(logFieldUserHash, logger.HashUserID(userID)).
			Int(logFieldSubscriptionID, id).
			Msg("Failed to edit subscription")
		sendHTML(ctx, tg, chatID, serviceErrorMessage(err), nil)
		return
	}

	title := "✏️ <b>Subscription Updated</b>"
	if !sub.IsActive {
		title = "⏸️ <b>Subscription Paused</b>\nIt no longer counts toward your totals."
	}
	sendHTML(ctx, tg, chatID, formatSaved(title, sub, b.currencyFor(ctx, userID), b.now()), nil)
}

// handleDelete handles the /delete command.
func (b *Bot) handleDelete(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteCore(ctx, tgBot, update)
}

// handleDeleteCore asks for confirmation before deleting a subscription.
func (b *Bot) handleDeleteCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	args := extractCommandArgs(update.Message.Text, "/delete")
	if args == "" {
		sendHTML(ctx, tg, chatID, deleteUsage, nil)
		return
	}
	id, err := parseID(args)
	if err != nil {
		sendHTML(ctx, tg, chatID, parseErrorMessage(err, deleteUsage), nil)
		return
	}

	sub, err := b.subs.Get(ctx, userID, id)
	if err != nil {
		sendHTML(ctx, tg, chatID, serviceErrorMessage(err), nil)
		return
	}

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "🗑️ Delete", CallbackData: fmt.Sprintf("%s%s_%d", deleteCallbackPrefix, deleteConfirmAction, sub.ID)},
			{Text: "⬅️ Keep", CallbackData: fmt.Sprintf("%s%s_%d", deleteCallbackPrefix, deleteCancelAction, sub.ID)},
		}},
	}
	sendHTML(ctx, tg, chatID,
		fmt.Sprintf("Delete <b>%s</b> <code>#%d</code>? Its usage history goes with it.", escapeHTML(sub.ServiceName), sub.ID),
		keyboard)
}

// handleDeleteCallback handles the delete confirmation buttons.
func (b *Bot) handleDeleteCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteCallbackCore(ctx, tgBot, update)
}

// handleDeleteCallbackCore is the testable implementation of handleDeleteCallback.
func (b *Bot) handleDeleteCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	query := update.CallbackQuery

	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: query.ID})

	action, rawID, ok := strings.Cut(strings.TrimPrefix(query.Data, deleteCallbackPrefix), "_")
	if !ok {
		return
	}
	id, err := parseID(rawID)
	if err != nil {
		return
	}

	var text string
	switch action {
	case deleteCancelAction:
		text = "👍 Kept it."
	case deleteConfirmAction:
		if err := b.subs.Delete(ctx, query.From.ID, id); err != nil {
			logger.Log.Warn().Err(err).
				Str(logFieldUserHash, logger.HashUserID(query.From.ID)).
				Int(logFieldSubscriptionID, id).
				Msg("Failed to delete subscription")
			text = serviceErrorMessage(err)
		} else {
			text = fmt.Sprintf("🗑️ Subscription <code>#%d</code> deleted.", id)
		}
	default:
		return
	}

	if query.Message.Message == nil {
		return
	}
	_, err = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    query.Message.Message.Chat.ID,
		MessageID: query.Message.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to edit delete confirmation")
	}
}

// handleRenewals handles the /renewals command.
func (b *Bot) handleRenewals(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleRenewalsCore(ctx, tgBot, update)
}

// handleRenewalsCore lists subscriptions renewing within the reminder window.
func (b *Bot) handleRenewalsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	days := b.cfg.RenewalReminderDays
	if days <= 0 {
		days = defaultRenewalsWindowDays
	}

	subs, err := b.subs.UpcomingRenewals(ctx, userID, time.Duration(days)*24*time.Hour)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUserHash, logger.HashUserID(userID)).Msg("Failed to load renewals")
		sendHTML(ctx, tg, chatID, "❌ Failed to load renewals. Please try again.", nil)
		return
	}
	if len(subs) == 0 {
		sendHTML(ctx, tg, chatID, fmt.Sprintf("📅 Nothing renews in the next %d days.", days), nil)
		return
	}

	currency := b.currencyFor(ctx, userID)
	now := b.now()

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 <b>Renewing in the next %d days</b>\n\n", days)
	for i := range subs {
		sb.WriteString(formatRenewalLine(&subs[i], currency, now))
		sb.WriteString("\n")
	}
	sendHTML(ctx, tg, chatID, strings.TrimRight(sb.String(), "\n"), nil)
}

const defaultRenewalsWindowDays = 7

// formatRenewalLine renders one upcoming renewal with its nudge.
func formatRenewalLine(sub *appmodels.Subscription, currency string, now time.Time) string {
	line := fmt.Sprintf("%s <b>%s</b> %s%s renews %s (%s)",
		sub.DrainTier.Emoji(), escapeHTML(sub.ServiceName),
		money(sub.OriginalCost, currency), cyclePer(sub.BillingCycle),
		renewalPhrase(sub.RenewalDate, now), sub.RenewalDate.Format(renewalDateLayout))
	if n := nudge(sub); n != "" {
		line += "\n   " + n
	}
	return line
}
