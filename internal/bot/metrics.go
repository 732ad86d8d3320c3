package bot

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drainbot_commands_total",
		Help: "Bot commands received, by command.",
	}, []string{"command"})

	remindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drainbot_renewal_notifications_total",
		Help: "Renewal notifications sent, by kind.",
	}, []string{"kind"})
)

var knownCommands = map[string]bool{
	"start": true, "help": true, "add": true, "preview": true, "list": true,
	"use": true, "edit": true, "delete": true, "settings": true, "budget": true,
	"student": true, "currency": true, "dashboard": true, "history": true,
	"chart": true, "export": true, "services": true, "renewals": true,
}

// commandName returns the bare command of a message ("/list@drainbot cost" is
// "list"), or "" when text is not a command.
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.TrimPrefix(strings.Fields(text + " ")[0], "/")
	if at := strings.Index(name, "@"); at != -1 {
		name = name[:at]
	}
	return strings.ToLower(name)
}

// commandLabel bounds the metric label to the known command set.
func commandLabel(text string) string {
	name := commandName(text)
	if name == "" {
		return ""
	}
	if knownCommands[name] {
		return name
	}
	return "unknown"
}

func (b *Bot) metricsMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		if update.Message != nil {
			if label := commandLabel(update.Message.Text); label != "" {
				commandsTotal.WithLabelValues(label).Inc()
			}
		}
		next(ctx, tgBot, update)
	}
}
