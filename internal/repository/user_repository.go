// Package repository persists users, subscriptions, usage logs and history snapshots.
package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/database"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

// UserRepository handles user database operations.
type UserRepository struct {
	db database.PGXDB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db database.PGXDB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
	monthly_budget_cap, student_mode, currency, created_at, updated_at`

// UpsertUser creates a user or refreshes their Telegram profile.
// Scoring settings are only set on insert; existing settings are kept.
func (r *UserRepository) UpsertUser(ctx context.Context, user *models.User) error {
	budgetCap := user.MonthlyBudgetCap
	if !budgetCap.IsPositive() {
		budgetCap = models.DefaultBudgetCap
	}
	currency := user.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, username, first_name, last_name, monthly_budget_cap, student_mode, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = NOW()
	`, user.ID, user.Username, user.FirstName, user.LastName, budgetCap, user.StudentMode, currency)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their Telegram ID.
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).Scan(
		&user.ID, &user.Username, &user.FirstName, &user.LastName,
		&user.MonthlyBudgetCap, &user.StudentMode, &user.Currency,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateSettings stores the scoring and display settings of a user.
func (r *UserRepository) UpdateSettings(
	ctx context.Context,
	userID int64,
	budgetCap decimal.Decimal,
	studentMode bool,
	currency string,
) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET monthly_budget_cap = $2, student_mode = $3, currency = $4, updated_at = NOW()
		WHERE id = $1
	`, userID, budgetCap, studentMode, currency)
	if err != nil {
		return fmt.Errorf("failed to update user settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update user settings: user %d not found", userID)
	}
	return nil
}

// GetAllUsers returns every registered user.
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.FirstName, &u.LastName,
			&u.MonthlyBudgetCap, &u.StudentMode, &u.Currency,
			&u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
