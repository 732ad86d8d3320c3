// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

// Telemetry exporters.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
)

const (
	defaultAnalyticsTimeout  = 5 * time.Second
	defaultAnalyticsCacheTTL = 5 * time.Minute
	defaultRenewalSchedule   = "0 9 * * *"
	defaultReminderDays      = 3
	maxReminderDays          = 30
	defaultTimezone          = "Asia/Kolkata"
	defaultHealthAddr        = ":8080"
	defaultServiceName       = "drain-bot"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken     string
	DatabaseURL          string
	GeminiAPIKey         string
	LogLevel             string
	LogFormat            string
	WhitelistedUserIDs   []int64
	WhitelistedUsernames []string

	DefaultBudgetCap decimal.Decimal
	DefaultCurrency  string

	AnalyticsBaseURL  string
	AnalyticsAPIToken string
	AnalyticsTimeout  time.Duration
	AnalyticsCacheTTL time.Duration

	RenewalCheckEnabled  bool
	RenewalCheckSchedule string
	RenewalReminderDays  int
	Timezone             string

	HealthAddr      string
	MetricsEnabled  bool
	OTelExporter    string
	OTelServiceName string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		LogFormat:         os.Getenv("LOG_FORMAT"),
		AnalyticsBaseURL:  strings.TrimSpace(os.Getenv("ANALYTICS_BASE_URL")),
		AnalyticsAPIToken: os.Getenv("ANALYTICS_API_TOKEN"),
	}

	cfg.DefaultBudgetCap = models.DefaultBudgetCap
	if capStr := os.Getenv("DEFAULT_BUDGET_CAP"); capStr != "" {
		if v, err := decimal.NewFromString(strings.TrimSpace(capStr)); err == nil && v.IsPositive() {
			cfg.DefaultBudgetCap = v
		}
	}

	cfg.DefaultCurrency = models.DefaultCurrency
	if cur := strings.ToUpper(strings.TrimSpace(os.Getenv("DEFAULT_CURRENCY"))); cur != "" && models.IsSupportedCurrency(cur) {
		cfg.DefaultCurrency = cur
	}

	cfg.AnalyticsTimeout = durationOrDefault(os.Getenv("ANALYTICS_TIMEOUT"), defaultAnalyticsTimeout)
	cfg.AnalyticsCacheTTL = durationOrDefault(os.Getenv("ANALYTICS_CACHE_TTL"), defaultAnalyticsCacheTTL)

	cfg.RenewalCheckEnabled = os.Getenv("RENEWAL_CHECK_ENABLED") == "true"
	cfg.RenewalCheckSchedule = defaultRenewalSchedule
	if sched := strings.TrimSpace(os.Getenv("RENEWAL_CHECK_SCHEDULE")); sched != "" {
		cfg.RenewalCheckSchedule = sched
	}
	cfg.RenewalReminderDays = defaultReminderDays
	if daysStr := os.Getenv("RENEWAL_REMINDER_DAYS"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d >= 0 && d <= maxReminderDays {
			cfg.RenewalReminderDays = d
		}
	}
	cfg.Timezone = defaultTimezone
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			cfg.Timezone = tz
		}
	}

	cfg.HealthAddr = defaultHealthAddr
	if addr := strings.TrimSpace(os.Getenv("HEALTH_ADDR")); addr != "" {
		cfg.HealthAddr = addr
	}
	cfg.MetricsEnabled = os.Getenv("METRICS_ENABLED") == "true"

	cfg.OTelExporter = strings.ToLower(strings.TrimSpace(os.Getenv("OTEL_EXPORTER")))
	if cfg.OTelExporter == "" {
		cfg.OTelExporter = ExporterNone
	}
	cfg.OTelServiceName = defaultServiceName
	if name := strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")); name != "" {
		cfg.OTelServiceName = name
	}

	whitelistStr := os.Getenv("WHITELISTED_USER_IDS")
	if whitelistStr != "" {
		for idStr := range strings.SplitSeq(whitelistStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				continue
			}
			cfg.WhitelistedUserIDs = append(cfg.WhitelistedUserIDs, id)
		}
	}

	whitelistUsernames := os.Getenv("WHITELISTED_USERNAMES")
	if whitelistUsernames != "" {
		for username := range strings.SplitSeq(whitelistUsernames, ",") {
			username = strings.TrimSpace(username)
			if username == "" {
				continue
			}
			// Remove @ prefix if present
			username = strings.TrimPrefix(username, "@")
			cfg.WhitelistedUsernames = append(cfg.WhitelistedUsernames, username)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationOrDefault(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if len(c.WhitelistedUserIDs) == 0 && len(c.WhitelistedUsernames) == 0 {
		errs = append(errs, "at least one whitelisted user (WHITELISTED_USER_IDS or WHITELISTED_USERNAMES) is required")
	}

	if _, err := cron.ParseStandard(c.RenewalCheckSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("RENEWAL_CHECK_SCHEDULE is invalid: %v", err))
	}

	switch c.OTelExporter {
	case ExporterNone, ExporterStdout, ExporterOTLPGRPC, ExporterOTLPHTTP:
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER must be one of none, stdout, otlp-grpc, otlp-http (got %q)", c.OTelExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// AnalyticsEnabled reports whether a remote analytics service is configured.
func (c *Config) AnalyticsEnabled() bool {
	return c.AnalyticsBaseURL != ""
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsUserWhitelisted checks if a Telegram user ID or username is in the whitelist.
// Returns true if either the user ID or username is whitelisted.
func (c *Config) IsUserWhitelisted(userID int64, username string) bool {
	if slices.Contains(c.WhitelistedUserIDs, userID) {
		return true
	}

	// Check username whitelist (case-insensitive)
	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, whitelisted := range c.WhitelistedUsernames {
			if strings.EqualFold(whitelisted, username) {
				return true
			}
		}
	}

	return false
}
