package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/drain-bot/internal/database"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

// HistoryRepository reads monthly spend snapshots. Snapshots are produced by
// the analytics service; this side never writes them.
type HistoryRepository struct {
	db database.PGXDB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db database.PGXDB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// GetByUserID returns the most recent limit snapshots, oldest first.
func (r *HistoryRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]models.HistorySnapshot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, month, year, total_monthly_spend, potential_monthly_savings, created_at
		FROM (
			SELECT * FROM history_snapshots
			WHERE user_id = $1
			ORDER BY year DESC, month DESC
			LIMIT $2
		) recent
		ORDER BY year, month
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var snapshots []models.HistorySnapshot
	for rows.Next() {
		var h models.HistorySnapshot
		if err := rows.Scan(&h.UserID, &h.Month, &h.Year, &h.TotalMonthlySpend, &h.PotentialMonthlySavings, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history snapshot: %w", err)
		}
		snapshots = append(snapshots, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return snapshots, nil
}
