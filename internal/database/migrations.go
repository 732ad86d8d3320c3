package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		username TEXT,
		first_name TEXT,
		last_name TEXT,
		monthly_budget_cap DECIMAL(12, 2) NOT NULL DEFAULT 50 CHECK (monthly_budget_cap > 0),
		student_mode BOOLEAN NOT NULL DEFAULT FALSE,
		currency TEXT NOT NULL DEFAULT 'INR',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS subscriptions (
		id SERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		service_name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'Other',
		original_cost DECIMAL(12, 2) NOT NULL CHECK (original_cost >= 0),
		billing_cycle TEXT NOT NULL DEFAULT 'Monthly',
		cost_monthly DECIMAL(12, 2) NOT NULL DEFAULT 0,
		renewal_date TIMESTAMPTZ NOT NULL,
		usage_frequency INTEGER NOT NULL DEFAULT 0 CHECK (usage_frequency >= 0),
		last_used_date TIMESTAMPTZ,
		drain_score INTEGER NOT NULL DEFAULT 0 CHECK (drain_score BETWEEN 0 AND 100),
		drain_tier TEXT NOT NULL DEFAULT 'healthy',
		cancel_url TEXT NOT NULL DEFAULT '',
		downgrade_url TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '#6366f1',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`ALTER TABLE subscriptions ADD COLUMN IF NOT EXISTS billing_day SMALLINT NOT NULL DEFAULT 0
		CHECK (billing_day BETWEEN 0 AND 31)`,

	`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_renewal_date ON subscriptions(renewal_date) WHERE is_active`,

	`CREATE TABLE IF NOT EXISTS usage_logs (
		id SERIAL PRIMARY KEY,
		subscription_id INTEGER NOT NULL REFERENCES subscriptions(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		minutes_used INTEGER NOT NULL DEFAULT 0,
		used_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_usage_logs_subscription_id ON usage_logs(subscription_id)`,

	`CREATE TABLE IF NOT EXISTS history_snapshots (
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		month SMALLINT NOT NULL CHECK (month BETWEEN 1 AND 12),
		year SMALLINT NOT NULL,
		total_monthly_spend DECIMAL(12, 2) NOT NULL DEFAULT 0,
		potential_monthly_savings DECIMAL(12, 2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, year, month)
	)`,
}

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
