package subscription

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/logger"
	"gitlab.com/yelinaung/drain-bot/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRenewalOffset is used when a new subscription has no renewal date.
const DefaultRenewalOffset = 30 * 24 * time.Hour

var (
	// ErrNotFound is returned when a subscription or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotOwner is returned when a subscription belongs to another user.
	ErrNotOwner = errors.New("subscription belongs to another user")
	// ErrInvalidInput wraps every validation failure.
	ErrInvalidInput = errors.New("invalid input")
)

// UserStore persists users and their scoring settings.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateSettings(ctx context.Context, userID int64, budgetCap decimal.Decimal, studentMode bool, currency string) error
}

// SubscriptionStore persists subscriptions.
type SubscriptionStore interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id int) (*models.Subscription, error)
	GetByUserID(ctx context.Context, userID int64, activeOnly bool) ([]models.Subscription, error)
	GetRenewingBefore(ctx context.Context, cutoff time.Time) ([]models.Subscription, error)
	Update(ctx context.Context, sub *models.Subscription) error
	Delete(ctx context.Context, id int) error
}

// UsageStore records usage events.
type UsageStore interface {
	Create(ctx context.Context, log *models.UsageLog) error
}

// CategorySuggester guesses a category from a service name.
type CategorySuggester interface {
	CategoryFor(ctx context.Context, serviceName string) (models.Category, error)
}

// Invalidator is notified after any change to a user's portfolio.
type Invalidator interface {
	Invalidate(userID int64)
}

// Stores groups the stores one unit of work writes through.
type Stores struct {
	Users         UserStore
	Subscriptions SubscriptionStore
	Usage         UsageStore
}

// Transactor runs fn with stores bound to a single transaction. An error from
// fn rolls every write back.
type Transactor interface {
	InTx(ctx context.Context, fn func(Stores) error) error
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCategorySuggester sets the fallback used when a draft has no category
// and the service is not in the catalog.
func WithCategorySuggester(cs CategorySuggester) Option {
	return func(s *Service) { s.suggester = cs }
}

// WithInvalidator registers a cache to invalidate after mutations.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidators = append(s.invalidators, inv) }
}

// WithTransactor makes multi-row writes atomic. Without one, writes are
// applied in sequence.
func WithTransactor(tx Transactor) Option {
	return func(s *Service) { s.tx = tx }
}

// Service owns every write to a subscription's derived fields.
type Service struct {
	users         UserStore
	subscriptions SubscriptionStore
	usage         UsageStore
	tx            Transactor
	suggester     CategorySuggester
	invalidators  []Invalidator
	now           func() time.Time
	inst          instruments
}

// NewService creates a Service.
func NewService(users UserStore, subs SubscriptionStore, usage UsageStore, opts ...Option) *Service {
	s := &Service{
		users:         users,
		subscriptions: subs,
		usage:         usage,
		now:           time.Now,
		inst:          newInstruments(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Draft holds the user-entered fields of a new subscription.
type Draft struct {
	ServiceName    string
	Category       models.Category
	Cost           decimal.Decimal
	BillingCycle   drain.BillingCycle
	RenewalDate    *time.Time
	UsageFrequency int
	CancelURL      string
	DowngradeURL   string
	Color          string
}

// Patch holds a partial edit. Nil fields are left unchanged.
type Patch struct {
	ServiceName    *string
	Category       *models.Category
	Cost           *decimal.Decimal
	BillingCycle   *drain.BillingCycle
	RenewalDate    *time.Time
	UsageFrequency *int
	CancelURL      *string
	DowngradeURL   *string
	Color          *string
	IsActive       *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// SettingsPatch holds a partial settings edit.
type SettingsPatch struct {
	BudgetCap   *decimal.Decimal
	StudentMode *bool
	Currency    *string
}

// SortOrder selects how List orders subscriptions.
type SortOrder string

// Sort orders.
const (
	SortByDrain SortOrder = "drain"
	SortByCost  SortOrder = "cost"
	SortByName  SortOrder = "name"
)

// ParseSortOrder matches a sort order name; anything unknown sorts by drain.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortByCost:
		return SortByCost
	case SortByName:
		return SortByName
	default:
		return SortByDrain
	}
}

// Create validates draft, derives the drain fields and stores the subscription.
func (s *Service) Create(ctx context.Context, userID int64, draft Draft) (*models.Subscription, error) {
	ctx, span := s.inst.tracer.Start(ctx, "subscription.Create")
	defer span.End()

	now := s.now()

	name, err := validateName(draft.ServiceName)
	if err != nil {
		return nil, spanError(span, err)
	}

	cycle := draft.BillingCycle
	if cycle == "" {
		cycle = drain.Monthly
	}

	renewal := now.Add(DefaultRenewalOffset)
	if draft.RenewalDate != nil {
		renewal = *draft.RenewalDate
	}

	cancelURL, err := validateURL("cancel URL", draft.CancelURL)
	if err != nil {
		return nil, spanError(span, err)
	}
	downgradeURL, err := validateURL("downgrade URL", draft.DowngradeURL)
	if err != nil {
		return nil, spanError(span, err)
	}

	for _, check := range []error{
		validateCost(draft.Cost),
		validateCycle(cycle),
		validateUsage(draft.UsageFrequency),
		validateFutureRenewal(renewal, now),
	} {
		if check != nil {
			return nil, spanError(span, check)
		}
	}

	popular, isPopular := models.LookupPopularService(name)

	category := draft.Category
	if category == "" {
		category = s.defaultCategory(ctx, name, popular, isPopular)
	}
	if err := validateCategory(category); err != nil {
		return nil, spanError(span, err)
	}

	color := strings.TrimSpace(draft.Color)
	if color == "" {
		color = models.DefaultColor
		if isPopular {
			color = popular.Color
		}
	}
	if err := validateColor(color); err != nil {
		return nil, spanError(span, err)
	}

	if cancelURL == "" && isPopular {
		cancelURL = popular.CancelURL
	}

	user, err := s.owner(ctx, userID)
	if err != nil {
		return nil, spanError(span, err)
	}

	sub := &models.Subscription{
		UserID:         userID,
		ServiceName:    name,
		Category:       category,
		OriginalCost:   draft.Cost.Round(2),
		BillingCycle:   cycle,
		RenewalDate:    renewal,
		BillingDay:     renewal.Day(),
		UsageFrequency: draft.UsageFrequency,
		CancelURL:      cancelURL,
		DowngradeURL:   downgradeURL,
		Color:          color,
		IsActive:       true,
	}
	res := Recompute(sub, user, now)

	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, spanError(span, fmt.Errorf("failed to store subscription: %w", err))
	}

	s.afterWrite(ctx, span, TriggerCreate, sub, res)
	return sub, nil
}

func (s *Service) defaultCategory(
	ctx context.Context,
	name string,
	popular models.PopularService,
	isPopular bool,
) models.Category {
	if isPopular {
		return popular.Category
	}
	if s.suggester == nil {
		return models.CategoryOther
	}
	c, err := s.suggester.CategoryFor(ctx, name)
	if err != nil || !c.Valid() {
		logger.Log.Debug().Err(err).
			Str("service", logger.SanitizeServiceName(name)).
			Msg("Category suggestion unavailable, using Other")
		return models.CategoryOther
	}
	return c
}

// Get returns a subscription owned by userID.
func (s *Service) Get(ctx context.Context, userID int64, id int) (*models.Subscription, error) {
	sub, err := s.subscriptions.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if sub.UserID != userID {
		return nil, ErrNotOwner
	}
	return sub, nil
}

// List returns the user's active subscriptions in the requested order.
func (s *Service) List(ctx context.Context, userID int64, order SortOrder) ([]models.Subscription, error) {
	subs, err := s.subscriptions.GetByUserID(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	SortSubscriptions(subs, order)
	return subs, nil
}

// ListAll returns every subscription the user owns, paused ones included.
func (s *Service) ListAll(ctx context.Context, userID int64, order SortOrder) ([]models.Subscription, error) {
	subs, err := s.subscriptions.GetByUserID(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	SortSubscriptions(subs, order)
	return subs, nil
}

// SortSubscriptions orders subs in place. Ties fall back to name, then ID.
func SortSubscriptions(subs []models.Subscription, order SortOrder) {
	slices.SortStableFunc(subs, func(a, b models.Subscription) int {
		var c int
		switch order {
		case SortByCost:
			c = b.CostMonthly.Cmp(a.CostMonthly)
		case SortByName:
			c = 0
		default:
			c = cmp.Compare(b.DrainScore, a.DrainScore)
		}
		if c != 0 {
			return c
		}
		if c = cmp.Compare(strings.ToLower(a.ServiceName), strings.ToLower(b.ServiceName)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Update applies patch, revalidates and recomputes the derived fields.
func (s *Service) Update(ctx context.Context, userID int64, id int, patch Patch) (*models.Subscription, error) {
	ctx, span := s.inst.tracer.Start(ctx, "subscription.Update", trace.WithAttributes(attribute.Int("subscription.id", id)))
	defer span.End()

	if patch.IsEmpty() {
		return nil, spanError(span, fmt.Errorf("%w: nothing to update", ErrInvalidInput))
	}

	sub, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, spanError(span, err)
	}

	if err := applyPatch(sub, patch); err != nil {
		return nil, spanError(span, err)
	}

	user, err := s.owner(ctx, userID)
	if err != nil {
		return nil, spanError(span, err)
	}

	res := Recompute(sub, user, s.now())
	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, spanError(span, fmt.Errorf("failed to store subscription: %w", err))
	}

	s.afterWrite(ctx, span, TriggerUpdate, sub, res)
	return sub, nil
}

func applyPatch(sub *models.Subscription, p Patch) error {
	if p.ServiceName != nil {
		name, err := validateName(*p.ServiceName)
		if err != nil {
			return err
		}
		sub.ServiceName = name
	}
	if p.Category != nil {
		if err := validateCategory(*p.Category); err != nil {
			return err
		}
		sub.Category = *p.Category
	}
	if p.Cost != nil {
		if err := validateCost(*p.Cost); err != nil {
			return err
		}
		sub.OriginalCost = p.Cost.Round(2)
	}
	if p.BillingCycle != nil {
		if err := validateCycle(*p.BillingCycle); err != nil {
			return err
		}
		sub.BillingCycle = *p.BillingCycle
	}
	if p.RenewalDate != nil {
		if p.RenewalDate.IsZero() {
			return fmt.Errorf("%w: renewal date is required", ErrInvalidInput)
		}
		sub.RenewalDate = *p.RenewalDate
		sub.BillingDay = p.RenewalDate.Day()
	}
	if p.UsageFrequency != nil {
		if err := validateUsage(*p.UsageFrequency); err != nil {
			return err
		}
		sub.UsageFrequency = *p.UsageFrequency
	}
	if p.CancelURL != nil {
		u, err := validateURL("cancel URL", *p.CancelURL)
		if err != nil {
			return err
		}
		sub.CancelURL = u
	}
	if p.DowngradeURL != nil {
		u, err := validateURL("downgrade URL", *p.DowngradeURL)
		if err != nil {
			return err
		}
		sub.DowngradeURL = u
	}
	if p.Color != nil {
		if err := validateColor(*p.Color); err != nil {
			return err
		}
		sub.Color = *p.Color
	}
	if p.IsActive != nil {
		sub.IsActive = *p.IsActive
	}
	return nil
}

// LogUsage records one use: frequency goes up by one, last used becomes now,
// and the score is recomputed.
func (s *Service) LogUsage(ctx context.Context, userID int64, id, minutes int) (*models.Subscription, error) {
	ctx, span := s.inst.tracer.Start(ctx, "subscription.LogUsage", trace.WithAttributes(attribute.Int("subscription.id", id)))
	defer span.End()

	if minutes < 0 {
		return nil, spanError(span, fmt.Errorf("%w: minutes must not be negative", ErrInvalidInput))
	}

	sub, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, spanError(span, err)
	}

	user, err := s.owner(ctx, userID)
	if err != nil {
		return nil, spanError(span, err)
	}

	now := s.now()
	sub.UsageFrequency++
	sub.LastUsedDate = &now
	res := Recompute(sub, user, now)

	err = s.inTx(ctx, func(st Stores) error {
		if err := st.Usage.Create(ctx, &models.UsageLog{
			SubscriptionID: sub.ID,
			UserID:         userID,
			MinutesUsed:    minutes,
			UsedAt:         now,
		}); err != nil {
			return fmt.Errorf("failed to store usage log: %w", err)
		}
		if err := st.Subscriptions.Update(ctx, sub); err != nil {
			return fmt.Errorf("failed to store subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, spanError(span, err)
	}

	s.afterWrite(ctx, span, TriggerUsage, sub, res)
	return sub, nil
}

// Delete removes a subscription owned by userID.
func (s *Service) Delete(ctx context.Context, userID int64, id int) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.subscriptions.Delete(ctx, id); err != nil {
		return mapStoreError(err)
	}
	logger.Log.Info().
		Str("user_hash", logger.HashUserID(userID)).
		Int("subscription_id", id).
		Msg("Subscription deleted")
	s.invalidate(userID)
	return nil
}

// Settings returns the user's scoring settings.
func (s *Service) Settings(ctx context.Context, userID int64) (*models.User, error) {
	return s.owner(ctx, userID)
}

// UpdateSettings stores new settings and recomputes every subscription the user owns.
// Settings and scores are written in one unit of work. It returns the updated user and the number of subscriptions recomputed.
func (s *Service) UpdateSettings(ctx context.Context, userID int64, patch SettingsPatch) (*models.User, int, error) {
	ctx, span := s.inst.tracer.Start(ctx, "subscription.UpdateSettings")
	defer span.End()

	user, err := s.owner(ctx, userID)
	if err != nil {
		return nil, 0, spanError(span, err)
	}

	updated := *user
	if patch.BudgetCap != nil {
		updated.MonthlyBudgetCap = patch.BudgetCap.Round(2)
	}
	if patch.StudentMode != nil {
		updated.StudentMode = *patch.StudentMode
	}
	if patch.Currency != nil {
		updated.Currency = strings.ToUpper(strings.TrimSpace(*patch.Currency))
	}
	if err := validateSettings(updated.MonthlyBudgetCap, updated.Currency); err != nil {
		return nil, 0, spanError(span, err)
	}

	now := s.now()
	var (
		subs    []models.Subscription
		results []drain.Result
	)
	err = s.inTx(ctx, func(st Stores) error {
		if err := st.Users.UpdateSettings(ctx, userID, updated.MonthlyBudgetCap, updated.StudentMode, updated.Currency); err != nil {
			return fmt.Errorf("failed to store settings: %w", err)
		}

		var err error
		subs, err = st.Subscriptions.GetByUserID(ctx, userID, false)
		if err != nil {
			return fmt.Errorf("failed to load subscriptions: %w", err)
		}

		results = make([]drain.Result, len(subs))
		for i := range subs {
			results[i] = Recompute(&subs[i], &updated, now)
			if err := st.Subscriptions.Update(ctx, &subs[i]); err != nil {
				return fmt.Errorf("failed to store subscription %d: %w", subs[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, spanError(span, err)
	}
	for _, res := range results {
		s.inst.record(ctx, TriggerSettings, res)
	}

	logger.Log.Info().
		Str("user_hash", logger.HashUserID(userID)).
		Str("budget_cap", updated.MonthlyBudgetCap.StringFixed(2)).
		Bool("student_mode", updated.StudentMode).
		Int("recomputed", len(subs)).
		Msg("Settings updated")

	s.invalidate(userID)
	return &updated, len(subs), nil
}

// UpcomingRenewals returns the user's active subscriptions renewing within the window.
func (s *Service) UpcomingRenewals(ctx context.Context, userID int64, within time.Duration) ([]models.Subscription, error) {
	subs, err := s.subscriptions.GetByUserID(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	now := s.now()
	cutoff := now.Add(within)
	var out []models.Subscription
	for _, sub := range subs {
		if sub.BillingCycle == drain.Lifetime {
			continue
		}
		if !sub.RenewalDate.Before(now) && !sub.RenewalDate.After(cutoff) {
			out = append(out, sub)
		}
	}
	slices.SortFunc(out, func(a, b models.Subscription) int {
		return a.RenewalDate.Compare(b.RenewalDate)
	})
	return out, nil
}

// inTx runs fn atomically when a Transactor is configured, otherwise
// against the service's own stores.
func (s *Service) inTx(ctx context.Context, fn func(Stores) error) error {
	if s.tx != nil {
		return s.tx.InTx(ctx, fn)
	}
	return fn(Stores{Users: s.users, Subscriptions: s.subscriptions, Usage: s.usage})
}

func (s *Service) owner(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return user, nil
}

func (s *Service) afterWrite(ctx context.Context, span trace.Span, trigger Trigger, sub *models.Subscription, res drain.Result) {
	span.SetAttributes(
		attribute.Int("subscription.id", sub.ID),
		attribute.Int("drain.score", res.Score),
		attribute.String("drain.tier", string(res.Tier)),
	)
	s.inst.record(ctx, trigger, res)

	logger.Log.Info().
		Str("user_hash", logger.HashUserID(sub.UserID)).
		Int("subscription_id", sub.ID).
		Str("trigger", string(trigger)).
		Int("score", res.Score).
		Str("tier", string(res.Tier)).
		Msg("Drain score recomputed")

	s.invalidate(sub.UserID)
}

func (s *Service) invalidate(userID int64) {
	for _, inv := range s.invalidators {
		inv.Invalidate(userID)
	}
}

func mapStoreError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
