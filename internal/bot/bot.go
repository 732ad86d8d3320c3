// Package bot provides the Telegram bot initialization and handlers.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/robfig/cron/v3"
	"gitlab.com/yelinaung/drain-bot/internal/analytics"
	"gitlab.com/yelinaung/drain-bot/internal/config"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	"gitlab.com/yelinaung/drain-bot/internal/models"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
)

// UserStore registers Telegram users and lists them for reminders.
type UserStore interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetAllUsers(ctx context.Context) ([]models.User, error)
}

// HistoryReader returns monthly spend snapshots.
type HistoryReader interface {
	GetByUserID(ctx context.Context, userID int64, limit int) ([]models.HistorySnapshot, error)
}

// Deps are the application services the bot talks to.
type Deps struct {
	Users         UserStore
	Subscriptions *subscription.Service
	History       HistoryReader
	Analytics     analytics.Service
}

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot       *bot.Bot
	cfg       *config.Config
	users     UserStore
	subs      *subscription.Service
	history   HistoryReader
	analytics analytics.Service

	// messageSender is used outside of update handlers (renewal reminders).
	messageSender TelegramAPI

	previewsMu sync.Mutex
	previews   map[int64]*previewDraft

	remindedMu sync.Mutex
	reminded   map[reminderKey]struct{}

	scheduler *cron.Cron
	now       func() time.Time
}

// New creates a new Bot instance.
func New(cfg *config.Config, deps Deps) (*Bot, error) {
	b, err := newBot(cfg, deps)
	if err != nil {
		return nil, err
	}

	opts := []bot.Option{
		bot.WithMiddlewares(b.whitelistMiddleware, b.metricsMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.messageSender = telegramBot
	b.registerHandlers()

	return b, nil
}

func newBot(cfg *config.Config, deps Deps) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Users == nil || deps.Subscriptions == nil {
		return nil, errors.New("user store and subscription service are required")
	}
	return &Bot{
		cfg:       cfg,
		users:     deps.Users,
		subs:      deps.Subscriptions,
		history:   deps.History,
		analytics: deps.Analytics,
		previews:  make(map[int64]*previewDraft),
		reminded:  make(map[reminderKey]struct{}),
		now:       time.Now,
	}, nil
}

// Start begins polling for updates and runs the renewal scheduler until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	if err := b.startRenewalScheduler(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to start renewal scheduler")
	}
	defer b.stopRenewalScheduler()

	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// registerHandlers sets up command handlers.
func (b *Bot) registerHandlers() {
	commands := []struct {
		pattern string
		handler bot.HandlerFunc
	}{
		{"/start", b.handleStart},
		{"/help", b.handleHelp},
		{"/add", b.handleAdd},
		{"/preview", b.handlePreview},
		{"/list", b.handleList},
		{"/use", b.handleUse},
		{"/edit", b.handleEdit},
		{"/delete", b.handleDelete},
		{"/settings", b.handleSettings},
		{"/budget", b.handleBudget},
		{"/student", b.handleStudent},
		{"/currency", b.handleCurrency},
		{"/dashboard", b.handleDashboard},
		{"/history", b.handleHistory},
		{"/chart", b.handleChart},
		{"/export", b.handleExport},
		{"/services", b.handleServices},
		{"/renewals", b.handleRenewals},
	}
	for _, c := range commands {
		b.bot.RegisterHandler(bot.HandlerTypeMessageText, c.pattern, bot.MatchTypePrefix, c.handler)
	}

	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, deleteCallbackPrefix, bot.MatchTypePrefix, b.handleDeleteCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, useCallbackPrefix, bot.MatchTypePrefix, b.handleUseCallback)
}

// whitelistMiddleware checks if the user is whitelisted before processing.
func (b *Bot) whitelistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if !b.authorize(ctx, tgBot, update) {
			return
		}
		next(ctx, tgBot, update)
	}
}

// authorize reports whether the update may be handled, registering the
// sender on success and telling blocked users why nothing happens.
func (b *Bot) authorize(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) bool {
	userID := extractUserID(update)
	if userID == 0 {
		return false
	}

	username := extractUsername(update)
	logUserAction(userID, update)

	if !b.cfg.IsUserWhitelisted(userID, username) {
		logger.Log.Warn().
			Str("user_hash", logger.HashUserID(userID)).
			Msg("Blocked non-whitelisted user")
		if update.Message != nil {
			_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   "⛔ Sorry, you are not authorized to use this bot.",
			})
		}
		return false
	}

	if err := b.ensureUserRegistered(ctx, update); err != nil {
		logger.Log.Error().
			Str("user_hash", logger.HashUserID(userID)).
			Err(err).
			Msg("Failed to register user")
	}
	return true
}

// logUserAction logs the user's input without exposing ids or content.
func logUserAction(userID int64, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("chat_hash", logger.HashChatID(msg.Chat.ID))

		if cmd := commandName(msg.Text); cmd != "" {
			event = event.Str("command", cmd)
		} else if msg.Text != "" {
			event = event.Str("text", logger.SanitizeText(msg.Text))
		}

		event.Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUsername gets the username from the update.
func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.Username
	}
	if update.EditedMessage != nil && update.EditedMessage.From != nil {
		return update.EditedMessage.From.Username
	}
	return ""
}

// ensureUserRegistered creates or updates the user record. New users get the
// configured default budget cap and currency; existing settings are kept.
func (b *Bot) ensureUserRegistered(ctx context.Context, update *tgmodels.Update) error {
	var from *tgmodels.User
	switch {
	case update.Message != nil && update.Message.From != nil:
		from = update.Message.From
	case update.CallbackQuery != nil:
		from = &update.CallbackQuery.From
	default:
		return nil
	}

	user := &models.User{
		ID:               from.ID,
		Username:         from.Username,
		FirstName:        from.FirstName,
		LastName:         from.LastName,
		MonthlyBudgetCap: b.cfg.DefaultBudgetCap,
		Currency:         b.cfg.DefaultCurrency,
	}

	if err := b.users.UpsertUser(ctx, user); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	if update.EditedMessage != nil && update.EditedMessage.From != nil {
		return update.EditedMessage.From.ID
	}
	return 0
}

// defaultHandler handles unrecognized messages.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	logger.Log.Debug().
		Str("chat_hash", logger.HashChatID(update.Message.Chat.ID)).
		Msg("Default handler triggered")

	text := "I didn't understand that. Use /help to see available commands."
	if strings.HasPrefix(update.Message.Text, "/") {
		text = "Unknown command. Use /help to see available commands."
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send default response")
	}
}
