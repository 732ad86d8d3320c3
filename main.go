// Package main is the entry point for the subscription drain tracker Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/yelinaung/drain-bot/internal/analytics"
	"gitlab.com/yelinaung/drain-bot/internal/bot"
	"gitlab.com/yelinaung/drain-bot/internal/config"
	"gitlab.com/yelinaung/drain-bot/internal/database"
	"gitlab.com/yelinaung/drain-bot/internal/gemini"
	"gitlab.com/yelinaung/drain-bot/internal/health"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	"gitlab.com/yelinaung/drain-bot/internal/repository"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
	"gitlab.com/yelinaung/drain-bot/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("drain-bot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	logger.InitHashSalt()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		Exporter:    cfg.OTelExporter,
		ServiceName: cfg.OTelServiceName,
		Version:     version,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	userRepo := repository.NewUserRepository(pool)
	subRepo := repository.NewSubscriptionRepository(pool)
	usageRepo := repository.NewUsageLogRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)

	var source analytics.Service = analytics.NewLocalService(subRepo)
	if cfg.AnalyticsEnabled() {
		client, err := analytics.NewClient(cfg.AnalyticsBaseURL, cfg.AnalyticsAPIToken, cfg.AnalyticsTimeout)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to create analytics client")
		}
		source = client
		logger.Log.Info().Msg("Using remote analytics service")
	}
	dashboards := analytics.NewCachedService(source, cfg.AnalyticsCacheTTL)

	opts := []subscription.Option{
		subscription.WithTransactor(repository.NewTxManager(pool)),
		subscription.WithInvalidator(dashboards),
	}
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to create Gemini client, category suggestions disabled")
		} else {
			opts = append(opts, subscription.WithCategorySuggester(geminiClient))
			logger.Log.Info().Msg("Gemini category suggestions enabled")
		}
	}
	subService := subscription.NewService(userRepo, subRepo, usageRepo, opts...)

	healthServer := health.New(cfg.HealthAddr, cfg.MetricsEnabled, pool, nil)
	go func() {
		if err := healthServer.Start(); err != nil {
			logger.Log.Error().Err(err).Msg("Health server stopped")
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Failed to shut down health server")
		}
	}()

	telegramBot, err := bot.New(cfg, bot.Deps{
		Users:         userRepo,
		Subscriptions: subService,
		History:       historyRepo,
		Analytics:     dashboards,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		cancel()
	}()

	telegramBot.Start(ctx)
}
