package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/drain-bot/internal/models"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
)

const (
	subscriptionNotFoundMsg = "❌ Subscription not found."
	genericFailureMsg       = "❌ Something went wrong. Please try again."
)

// extractCommandArgs strips the /command prefix (and optional @botname suffix)
// from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// escapeHTML escapes special HTML characters for Telegram messages.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}

// formatGreeting returns a greeting suffix with the user's name.
func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}

func money(amount decimal.Decimal, currency string) string {
	return drain.FormatCurrency(amount, currency)
}

// cyclePer is the short suffix shown after a charged amount.
func cyclePer(c drain.BillingCycle) string {
	switch c {
	case drain.Annual:
		return "/yr"
	case drain.Weekly:
		return "/wk"
	case drain.Lifetime:
		return " once"
	default:
		return "/mo"
	}
}

// renewalPhrase renders days until renewal as "today", "tomorrow" or "in N days".
func renewalPhrase(renewal, now time.Time) string {
	days := drain.DaysUntilRenewal(renewal, now)
	switch {
	case days < 0:
		return fmt.Sprintf("%d days ago", -days)
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

// lastUsedPhrase renders the recency of a subscription.
func lastUsedPhrase(lastUsed *time.Time, now time.Time) string {
	if lastUsed == nil {
		return "never used"
	}
	switch days := drain.DaysSinceLastUse(lastUsed, now); {
	case days <= 0:
		return "used today"
	case days == 1:
		return "used yesterday"
	default:
		return fmt.Sprintf("last used %d days ago", days)
	}
}

// nudge is the action suggested for a tier: cancel when critical, downgrade
// when warning. It returns "" when there is nothing to suggest.
func nudge(sub *appmodels.Subscription) string {
	switch sub.DrainTier {
	case drain.Critical:
		if sub.CancelURL != "" {
			return fmt.Sprintf(`👉 <a href="%s">Cancel now</a>`, escapeHTML(sub.CancelURL))
		}
		return "👉 Consider cancelling"
	case drain.Warning:
		if sub.DowngradeURL != "" {
			return fmt.Sprintf(`👉 <a href="%s">Downgrade plan</a>`, escapeHTML(sub.DowngradeURL))
		}
	}
	return ""
}

// formatSubscription renders one subscription card for list views.
func formatSubscription(sub *appmodels.Subscription, currency string, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s <b>%s</b> <code>#%d</code>\n",
		sub.DrainTier.Emoji(), escapeHTML(sub.ServiceName), sub.ID)
	fmt.Fprintf(&sb, "%s %s · %s%s",
		sub.Category.Icon(), sub.Category, money(sub.OriginalCost, currency), cyclePer(sub.BillingCycle))
	if sub.BillingCycle != drain.Monthly {
		fmt.Fprintf(&sb, " (%s/mo)", money(sub.CostMonthly, currency))
	}
	fmt.Fprintf(&sb, "\nDrain <b>%d</b> · %s\n", sub.DrainScore, sub.DrainTier.Label())

	if sub.BillingCycle != drain.Lifetime {
		fmt.Fprintf(&sb, "Renews %s · ", renewalPhrase(sub.RenewalDate, now))
	}
	fmt.Fprintf(&sb, "%d uses · %s", sub.UsageFrequency, lastUsedPhrase(sub.LastUsedDate, now))

	if sub.DrainTier == drain.Critical {
		fmt.Fprintf(&sb, "\n💸 Losing %s/yr", money(sub.AnnualLoss(), currency))
	}
	if n := nudge(sub); n != "" {
		sb.WriteString("\n" + n)
	}
	return sb.String()
}

// formatSaved renders the confirmation shown after a create or update.
func formatSaved(title string, sub *appmodels.Subscription, currency string, now time.Time) string {
	return fmt.Sprintf("%s\n\n%s", title, formatSubscription(sub, currency, now))
}

// serviceErrorMessage maps service errors to user-facing text.
func serviceErrorMessage(err error) string {
	switch {
	case errors.Is(err, subscription.ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), subscription.ErrInvalidInput.Error()+": ")
		return "❌ " + escapeHTML(upperFirst(msg)) + "."
	case errors.Is(err, subscription.ErrNotFound), errors.Is(err, subscription.ErrNotOwner):
		return subscriptionNotFoundMsg
	default:
		return genericFailureMsg
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// sendHTML sends an HTML message and logs failures.
func sendHTML(ctx context.Context, tg TelegramAPI, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: bot.True(),
		},
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := tg.SendMessage(ctx, params); err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to send message")
	}
}
