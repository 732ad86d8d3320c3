package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/drain-bot/internal/database"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
)

// TxManager runs a unit of work with repositories bound to one transaction.
type TxManager struct {
	db database.TxBeginner
}

// NewTxManager creates a new TxManager.
func NewTxManager(db database.TxBeginner) *TxManager {
	return &TxManager{db: db}
}

// InTx commits when fn succeeds and rolls back otherwise.
func (m *TxManager) InTx(ctx context.Context, fn func(subscription.Stores) error) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(subscription.Stores{
		Users:         NewUserRepository(tx),
		Subscriptions: NewSubscriptionRepository(tx),
		Usage:         NewUsageLogRepository(tx),
	}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
