package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/analytics"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
)

// historyMonths is how many snapshots /history shows.
const historyMonths = 12

// handleDashboard handles the /dashboard command.
func (b *Bot) handleDashboard(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDashboardCore(ctx, tgBot, update)
}

// handleDashboardCore shows the spend summary, budget usage and overlaps.
func (b *Bot) handleDashboardCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	if b.analytics == nil {
		sendHTML(ctx, tg, chatID, "📊 The dashboard is not available right now.", nil)
		return
	}

	dash, err := b.analytics.Dashboard(ctx, userID)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUserHash, logger.HashUserID(userID)).Msg("Failed to load dashboard")
		sendHTML(ctx, tg, chatID, "❌ Failed to load the dashboard. Please try again.", nil)
		return
	}

	user, err := b.subs.Settings(ctx, userID)
	if err != nil {
		sendHTML(ctx, tg, chatID, genericFailureMsg, nil)
		return
	}

	sendHTML(ctx, tg, chatID, formatDashboard(dash, user.MonthlyBudgetCap, user.Currency), nil)
}

// budgetUsage returns spend as a whole percentage of budgetCap.
func budgetUsage(spend, budgetCap decimal.Decimal) int {
	if !budgetCap.IsPositive() {
		return 0
	}
	return int(spend.Div(budgetCap).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

func formatDashboard(d analytics.Dashboard, budgetCap decimal.Decimal, currency string) string {
	s := d.Summary

	var sb strings.Builder
	sb.WriteString("📊 <b>Dashboard</b>\n\n")
	fmt.Fprintf(&sb, "Monthly spend: <b>%s</b>\n", money(s.TotalMonthlySpend, currency))
	fmt.Fprintf(&sb, "Projected annual: <b>%s</b>\n", money(s.ProjectedAnnualSpend, currency))

	usage := budgetUsage(s.TotalMonthlySpend, budgetCap)
	fmt.Fprintf(&sb, "Budget: %d%% of %s\n", usage, money(budgetCap, currency))
	if s.TotalMonthlySpend.GreaterThan(budgetCap) {
		fmt.Fprintf(&sb, "⚠️ Over budget by <b>%s</b>\n", money(s.TotalMonthlySpend.Sub(budgetCap), currency))
	}

	fmt.Fprintf(&sb, "\n%d active · 🔴 %d · 🟡 %d · 🟢 %d\n",
		s.Counts.Total, s.Counts.Critical, s.Counts.Warning, s.Counts.Healthy)

	if s.PotentialMonthlySavings.IsPositive() {
		fmt.Fprintf(&sb, "\n💰 Cancel your critical drains to save <b>%s/mo</b> (%s/yr)\n",
			money(s.PotentialMonthlySavings, currency), money(s.PotentialAnnualSavings, currency))
	}

	if len(d.Overlaps) > 0 {
		sb.WriteString("\n🔁 <b>Overlaps</b>\n")
		for _, o := range d.Overlaps {
			fmt.Fprintf(&sb, "• %s: %s", escapeHTML(o.Category), escapeHTML(o.Recommendation))
			if o.PotentialSaving.IsPositive() {
				fmt.Fprintf(&sb, " Save %s/mo.", money(o.PotentialSaving, currency))
			}
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// handleHistory handles the /history command.
func (b *Bot) handleHistory(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHistoryCore(ctx, tgBot, update)
}

// handleHistoryCore shows recent monthly spend snapshots.
func (b *Bot) handleHistoryCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	if b.history == nil {
		sendHTML(ctx, tg, chatID, "📈 History is not available right now.", nil)
		return
	}

	snaps, err := b.history.GetByUserID(ctx, userID, historyMonths)
	if err != nil {
		logger.Log.Error().Err(err).Str(logFieldUserHash, logger.HashUserID(userID)).Msg("Failed to load history")
		sendHTML(ctx, tg, chatID, "❌ Failed to load history. Please try again.", nil)
		return
	}
	if len(snaps) == 0 {
		sendHTML(ctx, tg, chatID, "📈 No history yet. Snapshots are recorded once a month.", nil)
		return
	}

	currency := b.currencyFor(ctx, userID)

	var sb strings.Builder
	sb.WriteString("📈 <b>Spend History</b>\n\n<pre>")
	fmt.Fprintf(&sb, "%-9s %12s %12s\n", "Month", "Spend", "Savings")
	for _, s := range snaps {
		fmt.Fprintf(&sb, "%-9s %12s %12s\n", s.Label(),
			money(s.TotalMonthlySpend, currency), money(s.PotentialMonthlySavings, currency))
	}
	sb.WriteString("</pre>")
	sendHTML(ctx, tg, chatID, sb.String(), nil)
}
