package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/drain-bot/internal/database"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

// UsageLogRepository records usage events.
type UsageLogRepository struct {
	db database.PGXDB
}

// NewUsageLogRepository creates a new UsageLogRepository.
func NewUsageLogRepository(db database.PGXDB) *UsageLogRepository {
	return &UsageLogRepository{db: db}
}

// Create inserts a usage log entry.
func (r *UsageLogRepository) Create(ctx context.Context, log *models.UsageLog) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO usage_logs (subscription_id, user_id, minutes_used, used_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, log.SubscriptionID, log.UserID, log.MinutesUsed, log.UsedAt).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("failed to create usage log: %w", err)
	}
	return nil
}

// CountBySubscription returns the number of usage events logged for a subscription.
func (r *UsageLogRepository) CountBySubscription(ctx context.Context, subscriptionID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM usage_logs WHERE subscription_id = $1`, subscriptionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage logs: %w", err)
	}
	return n, nil
}
