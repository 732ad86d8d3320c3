// Package subscriptiontest provides in-memory stores for tests that exercise
// the subscription service without a database.
package subscriptiontest

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

// Store implements the user, subscription and usage stores in memory.
// Missing rows are reported as wrapped pgx.ErrNoRows, like the repositories.
type Store struct {
	mu     sync.Mutex
	users  map[int64]models.User
	subs   map[int]models.Subscription
	usage  []models.UsageLog
	nextID int

	// Err, when set, is returned by every write.
	Err error
	// FailUpdate, when set, is consulted before each subscription update;
	// a non-nil result fails that update.
	FailUpdate func(sub *models.Subscription) error
}


// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:  make(map[int64]models.User),
		subs:   make(map[int]models.Subscription),
		nextID: 1,
	}
}

// Users exposes the user half of the store.
func (s *Store) Users() *UserStore { return &UserStore{s} }

// Subscriptions exposes the subscription half of the store.
func (s *Store) Subscriptions() *SubscriptionStore { return &SubscriptionStore{s} }

// Usage exposes the usage log half of the store.
func (s *Store) Usage() *UsageStore { return &UsageStore{s} }

// AddUser inserts or replaces a user, applying the same defaults as the database.
func (s *Store) AddUser(u models.User) {
	if !u.MonthlyBudgetCap.IsPositive() {
		u.MonthlyBudgetCap = models.DefaultBudgetCap
	}
	if u.Currency == "" {
		u.Currency = models.DefaultCurrency
	}
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
}

// Atomic runs fn and restores the previous state when fn fails. It is not
// isolated from concurrent writers.
func (s *Store) Atomic(fn func() error) error {
	s.mu.Lock()
	users := maps.Clone(s.users)
	subs := maps.Clone(s.subs)
	usage := slices.Clone(s.usage)
	nextID := s.nextID
	s.mu.Unlock()

	err := fn()
	if err != nil {
		s.mu.Lock()
		s.users, s.subs, s.usage, s.nextID = users, subs, usage, nextID
		s.mu.Unlock()
	}
	return err
}

// UsageLogs returns a copy of every recorded usage log.
func (s *Store) UsageLogs() []models.UsageLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.usage)
}

// UserStore is the user view of a Store.
type UserStore struct{ s *Store }

// UpsertUser creates a user or refreshes the profile, keeping settings.
func (u *UserStore) UpsertUser(_ context.Context, user *models.User) error {
	u.s.mu.Lock()
	existing, ok := u.s.users[user.ID]
	u.s.mu.Unlock()
	if ok {
		existing.Username = user.Username
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		u.s.AddUser(existing)
		return nil
	}
	u.s.AddUser(*user)
	return nil
}

// GetUserByID returns a copy of the user.
func (u *UserStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, fmt.Errorf("failed to get user: %w", pgx.ErrNoRows)
	}
	return &user, nil
}

// UpdateSettings stores scoring settings.
func (u *UserStore) UpdateSettings(_ context.Context, userID int64, budgetCap decimal.Decimal, studentMode bool, currency string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.Err != nil {
		return u.s.Err
	}
	user, ok := u.s.users[userID]
	if !ok {
		return fmt.Errorf("failed to update user settings: user %d not found", userID)
	}
	user.MonthlyBudgetCap = budgetCap
	user.StudentMode = studentMode
	user.Currency = currency
	u.s.users[userID] = user
	return nil
}

// GetAllUsers returns every user ordered by ID.
func (u *UserStore) GetAllUsers(_ context.Context) ([]models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	out := make([]models.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		out = append(out, user)
	}
	slices.SortFunc(out, func(a, b models.User) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}

// SubscriptionStore is the subscription view of a Store.
type SubscriptionStore struct{ s *Store }

// Create assigns an ID and timestamps.
func (r *SubscriptionStore) Create(_ context.Context, sub *models.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	now := time.Now()
	sub.ID = r.s.nextID
	r.s.nextID++
	sub.CreatedAt = now
	sub.UpdatedAt = now
	r.s.subs[sub.ID] = *sub
	return nil
}

// GetByID returns a copy of the subscription.
func (r *SubscriptionStore) GetByID(_ context.Context, id int) (*models.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[id]
	if !ok {
		return nil, fmt.Errorf("failed to get subscription: %w", pgx.ErrNoRows)
	}
	return &sub, nil
}

// GetByUserID returns the user's subscriptions, newest first.
func (r *SubscriptionStore) GetByUserID(_ context.Context, userID int64, activeOnly bool) ([]models.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Subscription
	for _, sub := range r.s.subs {
		if sub.UserID != userID || (activeOnly && !sub.IsActive) {
			continue
		}
		out = append(out, sub)
	}
	slices.SortFunc(out, func(a, b models.Subscription) int { return b.ID - a.ID })
	return out, nil
}

// GetRenewingBefore returns active subscriptions renewing before cutoff.
func (r *SubscriptionStore) GetRenewingBefore(_ context.Context, cutoff time.Time) ([]models.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Subscription
	for _, sub := range r.s.subs {
		if sub.IsActive && sub.RenewalDate.Before(cutoff) {
			out = append(out, sub)
		}
	}
	slices.SortFunc(out, func(a, b models.Subscription) int {
		if c := a.RenewalDate.Compare(b.RenewalDate); c != 0 {
			return c
		}
		return a.ID - b.ID
	})
	return out, nil
}

// Update replaces the stored subscription.
func (r *SubscriptionStore) Update(_ context.Context, sub *models.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.subs[sub.ID]; !ok {
		return fmt.Errorf("failed to update subscription: %w", pgx.ErrNoRows)
	}
	if r.s.FailUpdate != nil {
		if err := r.s.FailUpdate(sub); err != nil {
			return err
		}
	}
	sub.UpdatedAt = time.Now()
	r.s.subs[sub.ID] = *sub
	return nil
}

// Delete removes the subscription and its usage logs.
func (r *SubscriptionStore) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.subs[id]; !ok {
		return fmt.Errorf("failed to delete subscription: %w", pgx.ErrNoRows)
	}
	delete(r.s.subs, id)
	r.s.usage = slices.DeleteFunc(r.s.usage, func(l models.UsageLog) bool { return l.SubscriptionID == id })
	return nil
}

// UsageStore is the usage view of a Store.
type UsageStore struct{ s *Store }

// Create appends a usage log.
func (u *UsageStore) Create(_ context.Context, log *models.UsageLog) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.Err != nil {
		return u.s.Err
	}
	log.ID = len(u.s.usage) + 1
	u.s.usage = append(u.s.usage, *log)
	return nil
}
