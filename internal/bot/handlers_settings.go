package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/drain-bot/internal/models"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
)

const studentCapFactor = "0.6"

// formatSettings renders the user's scoring settings.
func formatSettings(user *appmodels.User) string {
	var sb strings.Builder
	sb.WriteString("⚙️ <b>Settings</b>\n\n")
	fmt.Fprintf(&sb, "Monthly budget cap: <b>%s</b>\n", money(user.MonthlyBudgetCap, user.Currency))
	if user.StudentMode {
		effective := user.MonthlyBudgetCap.Mul(decimal.RequireFromString(studentCapFactor))
		fmt.Fprintf(&sb, "Student mode: <b>on</b> (scored against %s)\n", money(effective, user.Currency))
	} else {
		sb.WriteString("Student mode: <b>off</b>\n")
	}
	fmt.Fprintf(&sb, "Currency: <b>%s</b>", escapeHTML(user.Currency))
	return sb.String()
}

// handleSettings handles the /settings command.
func (b *Bot) handleSettings(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleSettingsCore(ctx, tgBot, update)
}

// handleSettingsCore shows the current settings.
func (b *Bot) handleSettingsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, err := b.subs.Settings(ctx, update.Message.From.ID)
	if err != nil {
		sendHTML(ctx, tg, chatID, genericFailureMsg, nil)
		return
	}

	text := formatSettings(user) + `

Change with <code>/budget 1500</code>, <code>/student on</code> or <code>/currency USD</code>.`
	sendHTML(ctx, tg, chatID, text, nil)
}

// applySettings stores patch and reports how many scores were recalculated.
func (b *Bot) applySettings(ctx context.Context, tg TelegramAPI, chatID, userID int64, patch subscription.SettingsPatch) {
	user, n, err := b.subs.UpdateSettings(ctx, userID, patch)
	if err != nil {
		logger.Log.Warn().Err(err).Str(logFieldUserHash, logger.HashUserID(userID)).Msg("Failed to update settings")
		sendHTML(ctx, tg, chatID, serviceErrorMessage(err), nil)
		return
	}

	text := fmt.Sprintf("✅ <b>Settings Updated</b>\n\n%s\n\n♻️ Recalculated %d drain %s.",
		strings.TrimPrefix(formatSettings(user), "⚙️ <b>Settings</b>\n\n"), n, pluralize(n, "score", "scores"))
	sendHTML(ctx, tg, chatID, text, nil)
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// handleBudget handles the /budget command.
func (b *Bot) handleBudget(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBudgetCore(ctx, tgBot, update)
}

// handleBudgetCore sets the monthly budget cap.
func (b *Bot) handleBudgetCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := extractCommandArgs(update.Message.Text, "/budget")
	if args == "" {
		sendHTML(ctx, tg, chatID, "Usage: <code>/budget &lt;amount&gt;</code>", nil)
		return
	}
	amount, err := parseAmount(args)
	if err != nil {
		sendHTML(ctx, tg, chatID, "❌ Invalid amount.\n\nUsage: <code>/budget &lt;amount&gt;</code>", nil)
		return
	}

	b.applySettings(ctx, tg, chatID, update.Message.From.ID, subscription.SettingsPatch{BudgetCap: &amount})
}

// handleStudent handles the /student command.
func (b *Bot) handleStudent(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStudentCore(ctx, tgBot, update)
}

// handleStudentCore toggles student mode. With no argument it flips the
// current value.
func (b *Bot) handleStudentCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	var on bool
	if args := extractCommandArgs(update.Message.Text, "/student"); args != "" {
		v, err := parseBool(args)
		if err != nil {
			sendHTML(ctx, tg, chatID, "Usage: <code>/student on|off</code>", nil)
			return
		}
		on = v
	} else {
		user, err := b.subs.Settings(ctx, userID)
		if err != nil {
			sendHTML(ctx, tg, chatID, genericFailureMsg, nil)
			return
		}
		on = !user.StudentMode
	}

	b.applySettings(ctx, tg, chatID, userID, subscription.SettingsPatch{StudentMode: &on})
}

// handleCurrency handles the /currency command.
func (b *Bot) handleCurrency(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCurrencyCore(ctx, tgBot, update)
}

// handleCurrencyCore sets the display currency. Amounts are relabelled, not
// converted.
func (b *Bot) handleCurrencyCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	code := strings.ToUpper(extractCommandArgs(update.Message.Text, "/currency"))
	if code == "" {
		var sb strings.Builder
		sb.WriteString("💱 <b>Supported Currencies</b>\n\n")
		for _, c := range appmodels.SupportedCurrencies {
			sym, _ := drain.CurrencySymbol(c)
			fmt.Fprintf(&sb, "• %s %s\n", sym, c)
		}
		sb.WriteString("\nUsage: <code>/currency USD</code>")
		sendHTML(ctx, tg, chatID, sb.String(), nil)
		return
	}

	b.applySettings(ctx, tg, chatID, update.Message.From.ID, subscription.SettingsPatch{Currency: &code})
}
