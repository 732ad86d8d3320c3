package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	"gitlab.com/yelinaung/drain-bot/internal/preview"
)

const previewUsage = `Usage: <code>/preview &lt;cost&gt; [cycle] [uses=N]</code>
Change one field at a time: <code>/preview cycle=annual</code>, <code>/preview uses=8</code>
Start over with <code>/preview clear</code>.`

// previewIdleTTL is how long an untouched draft is kept.
const previewIdleTTL = 24 * time.Hour

type previewDraft struct {
	c       *preview.Controller
	touched time.Time
}

// previewFor returns the user's preview controller, creating it on first use.
// Drafts idle past previewIdleTTL are dropped. The caller must hold previewsMu.
func (b *Bot) previewFor(userID int64) *preview.Controller {
	now := b.now()
	for id, d := range b.previews {
		if now.Sub(d.touched) > previewIdleTTL {
			delete(b.previews, id)
		}
	}

	if d, ok := b.previews[userID]; ok {
		d.touched = now
		return d.c
	}
	c := preview.New(preview.Settings{})
	userHash := logger.HashUserID(userID)
	c.OnChange(func(e preview.Estimate, available bool) {
		event := logger.Log.Debug().Str(logFieldUserHash, userHash).Bool("available", available)
		if available {
			event = event.Int("score", e.Score).Str("tier", string(e.Tier))
		}
		event.Msg("Preview recomputed")
	})
	b.previews[userID] = &previewDraft{c: c, touched: now}
	return c
}

// clearPreview forgets the user's draft.
func (b *Bot) clearPreview(userID int64) {
	b.previewsMu.Lock()
	delete(b.previews, userID)
	b.previewsMu.Unlock()
}

// handlePreview handles the /preview command.
func (b *Bot) handlePreview(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handlePreviewCore(ctx, tgBot, update)
}

// handlePreviewCore updates the user's draft and shows the live estimate.
// Positional words set cost then cycle; key=value sets a single field and
// leaves the others as they were.
func (b *Bot) handlePreviewCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	args := extractCommandArgs(update.Message.Text, "/preview")
	if strings.EqualFold(args, "clear") {
		b.clearPreview(userID)
		sendHTML(ctx, tg, chatID, "🧹 Preview cleared.", nil)
		return
	}

	settings := preview.Settings{}
	if user, err := b.subs.Settings(ctx, userID); err == nil {
		settings = preview.SettingsFromUser(user)
	}
	currency := b.currencyFor(ctx, userID)

	positional, opts := splitOptions(args)
	for _, opt := range opts {
		switch opt.key {
		case "cost", "cycle", "uses":
		default:
			sendHTML(ctx, tg, chatID, fmt.Sprintf("❌ Unknown option %q.\n\n%s", escapeHTML(opt.key), previewUsage), nil)
			return
		}
	}

	b.previewsMu.Lock()
	c := b.previewFor(userID)
	c.SetSettings(settings)
	if len(positional) > 0 {
		c.SetCost(positional[0])
	}
	if len(positional) > 1 {
		c.SetCycle(positional[1])
	}
	for _, opt := range opts {
		switch opt.key {
		case "cost":
			c.SetCost(opt.value)
		case "cycle":
			c.SetCycle(opt.value)
		case "uses":
			c.SetUsage(opt.value)
		}
	}
	estimate, ok := c.Estimate()
	b.previewsMu.Unlock()

	sendHTML(ctx, tg, chatID, formatPreview(estimate, ok, currency, settings.StudentMode), nil)
}

// formatPreview renders the estimate card, or the empty-state hint when the
// cost is missing or not positive.
func formatPreview(e preview.Estimate, ok bool, currency string, student bool) string {
	if !ok {
		return "🔮 No preview available. Enter a cost greater than zero.\n\n" + previewUsage
	}

	var sb strings.Builder
	sb.WriteString("🔮 <b>Drain Score Preview</b>\n\n")
	fmt.Fprintf(&sb, "Monthly: <b>%s</b>\n", money(e.Monthly, currency))
	fmt.Fprintf(&sb, "Annual: <b>%s</b>\n", money(e.Annual, currency))
	fmt.Fprintf(&sb, "Cycle: %s · Uses: %d\n\n", e.Cycle, e.Frequency)
	fmt.Fprintf(&sb, "Drain <b>%d</b> · %s", e.Score, e.Tier.Label())
	if student {
		sb.WriteString("\n🎓 Student mode on")
	}
	fmt.Fprintf(&sb, "\n\n<i>Assumes %d days since last use. Nothing is saved until you /add it.</i>",
		preview.PlaceholderDaysSinceUse)
	return sb.String()
}
