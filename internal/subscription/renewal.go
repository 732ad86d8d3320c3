package subscription

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/yelinaung/drain-bot/internal/logger"
	"gitlab.com/yelinaung/drain-bot/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// RollOverRenewals advances every due renewal date past now and recomputes
// the drain fields against the owner's current settings. Lifetime purchases
// are skipped. It returns the subscriptions that were rolled over; a failure on
// one subscription does not stop the others.
func (s *Service) RollOverRenewals(ctx context.Context) ([]models.Subscription, error) {
	ctx, span := s.inst.tracer.Start(ctx, "subscription.RollOverRenewals")
	defer span.End()

	now := s.now()
	due, err := s.subscriptions.GetRenewingBefore(ctx, now)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("failed to load due renewals: %w", err))
	}

	owners := make(map[int64]*models.User)
	var (
		rolled []models.Subscription
		errs   []error
	)
	for i := range due {
		sub := &due[i]
		next, ok := NextRenewal(sub.RenewalDate, sub.BillingDay, sub.BillingCycle, now)
		if !ok {
			continue
		}

		user, cached := owners[sub.UserID]
		if !cached {
			user, err = s.owner(ctx, sub.UserID)
			if err != nil {
				errs = append(errs, fmt.Errorf("subscription %d: %w", sub.ID, err))
				continue
			}
			owners[sub.UserID] = user
		}

		sub.RenewalDate = next
		res := Recompute(sub, user, now)
		if err := s.subscriptions.Update(ctx, sub); err != nil {
			errs = append(errs, fmt.Errorf("subscription %d: %w", sub.ID, err))
			continue
		}
		s.inst.record(ctx, TriggerRenewal, res)
		s.invalidate(sub.UserID)
		rolled = append(rolled, *sub)
	}

	span.SetAttributes(
		attribute.Int("renewals.due", len(due)),
		attribute.Int("renewals.rolled", len(rolled)),
	)
	logger.Log.Info().
		Int("due", len(due)).
		Int("rolled", len(rolled)).
		Int("failed", len(errs)).
		Msg("Renewal rollover finished")

	if len(errs) > 0 {
		return rolled, spanError(span, errors.Join(errs...))
	}
	return rolled, nil
}
