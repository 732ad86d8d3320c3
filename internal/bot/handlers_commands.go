package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/drain-bot/internal/models"
)

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	text := fmt.Sprintf(`👋 Welcome%s!

I track your paid subscriptions and give each one a <b>Drain Score</b> from 0 to 100. High scores mean you pay a lot for something you rarely use.

<b>Quick Start:</b>
• Add a subscription: <code>/add Netflix 649</code>
• Preview before adding: <code>/preview 1299 annual</code>
• Log a use whenever you use it: <code>/use 1</code>
• See what is draining you: <code>/list</code>

Use /help to see all available commands.`,
		formatGreeting(firstName))

	logger.Log.Debug().Str("chat_hash", logger.HashChatID(update.Message.Chat.ID)).Msg("Sending /start response")
	sendHTML(ctx, tg, update.Message.Chat.ID, text, nil)
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := `📚 <b>Available Commands</b>

<b>Subscriptions:</b>
• <code>/add &lt;name&gt; &lt;cost&gt; [cycle] [key=value]</code> - Add a subscription
  cycles: monthly, annual, weekly, lifetime
  options: uses=, category=, renews=YYYY-MM-DD, cancel=, downgrade=, color=
• <code>/preview &lt;cost&gt; [cycle] [uses=N]</code> - Estimate a Drain Score without saving
• <code>/use &lt;id&gt; [minutes]</code> - Log that you used a subscription
• <code>/edit &lt;id&gt; key=value ...</code> - Change fields (name, cost, cycle, uses, category, renews, cancel, downgrade, color, active)
• <code>/delete &lt;id&gt;</code> - Delete a subscription
• <code>/services [search]</code> - Popular services with cancel links

<b>Viewing:</b>
• <code>/list [drain|cost|name]</code> - Your active subscriptions
• <code>/renewals</code> - Subscriptions renewing soon
• <code>/dashboard</code> - Spend summary and savings
• <code>/history</code> - Monthly spend history
• <code>/chart</code> - Monthly spend by category
• <code>/export [csv|xlsx]</code> - Download your subscriptions

<b>Settings:</b>
• <code>/settings</code> - Show your settings
• <code>/budget &lt;amount&gt;</code> - Set your monthly budget cap
• <code>/student on|off</code> - Student mode lowers the cap to 60%
• <code>/currency &lt;code&gt;</code> - Display currency (` + strings.Join(appmodels.SupportedCurrencies, ", ") + `)

<b>Drain tiers:</b>
🔴 Critical above 70 · 🟡 Warning from 40 · 🟢 Healthy below 40`

	sendHTML(ctx, tg, update.Message.Chat.ID, text, nil)
}

// handleServices handles the /services command.
func (b *Bot) handleServices(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleServicesCore(ctx, tgBot, update)
}

// handleServicesCore lists popular services matching an optional search term.
func (b *Bot) handleServicesCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	query := extractCommandArgs(update.Message.Text, "/services")
	matches := appmodels.SearchPopularServices(query)
	if len(matches) == 0 {
		sendHTML(ctx, tg, update.Message.Chat.ID,
			fmt.Sprintf("No popular service matches <b>%s</b>. You can still add it with /add.", escapeHTML(query)), nil)
		return
	}

	var sb strings.Builder
	sb.WriteString("⭐ <b>Popular Services</b>\n\n")
	for _, s := range matches {
		fmt.Fprintf(&sb, "%s <b>%s</b> · %s", s.Category.Icon(), escapeHTML(s.Name), s.Category)
		if s.CancelURL != "" {
			fmt.Fprintf(&sb, ` · <a href="%s">cancel</a>`, escapeHTML(s.CancelURL))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nAdding one of these fills in its category, color and cancel link.")

	sendHTML(ctx, tg, update.Message.Chat.ID, sb.String(), nil)
}
