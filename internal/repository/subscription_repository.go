package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/drain-bot/internal/database"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

// SubscriptionRepository handles subscription database operations.
type SubscriptionRepository struct {
	db database.PGXDB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db database.PGXDB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, service_name, category, original_cost, billing_cycle, cost_monthly,
	renewal_date, billing_day, usage_frequency, last_used_date, drain_score, drain_tier,
	cancel_url, downgrade_url, color, is_active, created_at, updated_at`

// Create inserts a subscription and fills in its ID and timestamps.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, service_name, category, original_cost, billing_cycle, cost_monthly,
			renewal_date, billing_day, usage_frequency, last_used_date, drain_score, drain_tier,
			cancel_url, downgrade_url, color, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`, sub.UserID, sub.ServiceName, string(sub.Category), sub.OriginalCost, string(sub.BillingCycle), sub.CostMonthly,
		sub.RenewalDate, sub.BillingDay, sub.UsageFrequency, sub.LastUsedDate, sub.DrainScore, string(sub.DrainTier),
		sub.CancelURL, sub.DowngradeURL, sub.Color, sub.IsActive,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// GetByID retrieves a subscription by ID.
func (r *SubscriptionRepository) GetByID(ctx context.Context, id int) (*models.Subscription, error) {
	row := r.db.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// GetByUserID returns a user's subscriptions, newest first.
func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID int64, activeOnly bool) ([]models.Subscription, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND (is_active OR NOT $2)
		ORDER BY created_at DESC, id DESC
	`, userID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// GetRenewingBefore returns active subscriptions whose renewal date is before cutoff.
func (r *SubscriptionRepository) GetRenewingBefore(ctx context.Context, cutoff time.Time) ([]models.Subscription, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE is_active AND renewal_date < $1
		ORDER BY renewal_date, id
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query renewing subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// Update writes every mutable column of sub.
func (r *SubscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	err := r.db.QueryRow(ctx, `
		UPDATE subscriptions SET
			service_name = $2, category = $3, original_cost = $4, billing_cycle = $5, cost_monthly = $6,
			renewal_date = $7, billing_day = $8, usage_frequency = $9, last_used_date = $10, drain_score = $11,
			drain_tier = $12, cancel_url = $13, downgrade_url = $14, color = $15, is_active = $16, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, sub.ID, sub.ServiceName, string(sub.Category), sub.OriginalCost, string(sub.BillingCycle), sub.CostMonthly,
		sub.RenewalDate, sub.BillingDay, sub.UsageFrequency, sub.LastUsedDate, sub.DrainScore, string(sub.DrainTier),
		sub.CancelURL, sub.DowngradeURL, sub.Color, sub.IsActive,
	).Scan(&sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

// Delete removes a subscription and its usage logs.
func (r *SubscriptionRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete subscription: %w", pgx.ErrNoRows)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub                   models.Subscription
		category, cycle, tier string
	)
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.ServiceName, &category, &sub.OriginalCost, &cycle, &sub.CostMonthly,
		&sub.RenewalDate, &sub.BillingDay, &sub.UsageFrequency, &sub.LastUsedDate, &sub.DrainScore, &tier,
		&sub.CancelURL, &sub.DowngradeURL, &sub.Color, &sub.IsActive, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Category = models.Category(category)
	sub.BillingCycle = drain.BillingCycle(cycle)
	sub.DrainTier = drain.Tier(tier)
	return &sub, nil
}

func scanSubscriptions(rows pgx.Rows) ([]models.Subscription, error) {
	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}
	return subs, nil
}
