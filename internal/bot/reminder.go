package bot

import (
	"context"
	"fmt"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/robfig/cron/v3"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/drain-bot/internal/models"
)

const (
	// RenewalCheckTimeout is the maximum time a single renewal check can take.
	RenewalCheckTimeout = 2 * time.Minute

	notificationRollover = "rollover"
	notificationReminder = "reminder"
)

// reminderKey identifies one reminder: a subscription and the renewal it is for.
type reminderKey struct {
	subID   int
	renewal string
}

// cronLogger routes scheduler logs through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// startRenewalScheduler runs the renewal check on the configured schedule.
func (b *Bot) startRenewalScheduler(ctx context.Context) error {
	if !b.cfg.RenewalCheckEnabled {
		logger.Log.Info().Msg("Renewal check is disabled")
		return nil
	}

	c := cron.New(
		cron.WithLocation(b.cfg.Location()),
		cron.WithLogger(cronLogger{}),
	)
	if _, err := c.AddFunc(b.cfg.RenewalCheckSchedule, func() { b.runRenewalCheck(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule renewal check: %w", err)
	}

	b.scheduler = c
	c.Start()

	logger.Log.Info().
		Str("schedule", b.cfg.RenewalCheckSchedule).
		Str("timezone", b.cfg.Timezone).
		Int("reminder_days", b.cfg.RenewalReminderDays).
		Msg("Renewal scheduler started")
	return nil
}

// stopRenewalScheduler stops the scheduler and waits for a running check.
func (b *Bot) stopRenewalScheduler() {
	if b.scheduler == nil {
		return
	}
	<-b.scheduler.Stop().Done()
	logger.Log.Info().Msg("Renewal scheduler stopped")
}

// runRenewalCheck rolls due renewals forward, tells their owners, and reminds
// users about renewals coming up within the reminder window.
func (b *Bot) runRenewalCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, RenewalCheckTimeout)
	defer cancel()

	users, err := b.users.GetAllUsers(checkCtx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch users for renewal check")
		return
	}
	allowed := make(map[int64]appmodels.User, len(users))
	for _, u := range users {
		if b.cfg.IsUserWhitelisted(u.ID, u.Username) {
			allowed[u.ID] = u
		}
	}

	rolled, err := b.subs.RollOverRenewals(checkCtx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Some renewals failed to roll over")
	}
	now := b.now()
	for i := range rolled {
		owner, ok := allowed[rolled[i].UserID]
		if !ok {
			continue
		}
		b.notify(checkCtx, owner.ID, formatRolloverNotice(&rolled[i], owner.Currency, now), notificationRollover)
	}

	b.sendRenewalReminders(checkCtx, allowed, now)
}

// sendRenewalReminders sends at most one reminder per subscription renewal.
func (b *Bot) sendRenewalReminders(ctx context.Context, users map[int64]appmodels.User, now time.Time) {
	days := b.cfg.RenewalReminderDays
	if days <= 0 {
		return
	}
	within := time.Duration(days) * 24 * time.Hour

	b.remindedMu.Lock()
	defer b.remindedMu.Unlock()

	today := now.Format(renewalDateLayout)
	for key := range b.reminded {
		if key.renewal < today {
			delete(b.reminded, key)
		}
	}

	for _, user := range users {
		subs, err := b.subs.UpcomingRenewals(ctx, user.ID, within)
		if err != nil {
			logger.Log.Warn().Err(err).Str(logFieldUserHash, logger.HashUserID(user.ID)).Msg("Failed to load upcoming renewals")
			continue
		}
		for i := range subs {
			key := reminderKey{subID: subs[i].ID, renewal: subs[i].RenewalDate.Format(renewalDateLayout)}
			if _, done := b.reminded[key]; done {
				continue
			}
			if b.notify(ctx, user.ID, formatReminder(&subs[i], user.Currency, now), notificationReminder) {
				b.reminded[key] = struct{}{}
			}
		}
	}
}

// notify sends a message to a user's private chat and reports success.
func (b *Bot) notify(ctx context.Context, userID int64, text, kind string) bool {
	_, err := b.messageSender.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    userID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: tgbot.True(),
		},
	})
	if err != nil {
		logger.Log.Warn().Err(err).
			Str(logFieldUserHash, logger.HashUserID(userID)).
			Str("kind", kind).
			Msg("Failed to send renewal notification")
		return false
	}
	remindersSent.WithLabelValues(kind).Inc()
	logger.Log.Debug().Str(logFieldUserHash, logger.HashUserID(userID)).Str("kind", kind).Msg("Sent renewal notification")
	return true
}

func formatRolloverNotice(sub *appmodels.Subscription, currency string, now time.Time) string {
	text := fmt.Sprintf("🔄 <b>%s</b> renewed for %s%s.\nNext renewal %s (%s).\nDrain <b>%d</b> · %s",
		escapeHTML(sub.ServiceName), money(sub.OriginalCost, currency), cyclePer(sub.BillingCycle),
		renewalPhrase(sub.RenewalDate, now), sub.RenewalDate.Format(renewalDateLayout),
		sub.DrainScore, sub.DrainTier.Label())
	if n := nudge(sub); n != "" {
		text += "\n" + n
	}
	return text
}

func formatReminder(sub *appmodels.Subscription, currency string, now time.Time) string {
	return "⏰ <b>Renewal coming up</b>\n\n" + formatRenewalLine(sub, currency, now)
}
