package subscription

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: service name is required", ErrInvalidInput)
	}
	if len(name) > models.MaxServiceNameLength {
		return "", fmt.Errorf("%w: service name exceeds %d characters", ErrInvalidInput, models.MaxServiceNameLength)
	}
	return name, nil
}

func validateCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return fmt.Errorf("%w: cost must not be negative", ErrInvalidInput)
	}
	return nil
}

func validateCycle(cycle drain.BillingCycle) error {
	if !cycle.Valid() {
		return fmt.Errorf("%w: unknown billing cycle %q", ErrInvalidInput, cycle)
	}
	return nil
}

func validateCategory(c models.Category) error {
	if !c.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, c)
	}
	return nil
}

func validateUsage(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: usage frequency must not be negative", ErrInvalidInput)
	}
	return nil
}

func validateFutureRenewal(renewal, now time.Time) error {
	if !renewal.After(now) {
		return fmt.Errorf("%w: renewal date must be in the future", ErrInvalidInput)
	}
	return nil
}

// validateURL accepts an empty string or an absolute http(s) URL.
func validateURL(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %s must be an http(s) URL", ErrInvalidInput, field)
	}
	return raw, nil
}

func validateColor(c string) error {
	if !colorPattern.MatchString(c) {
		return fmt.Errorf("%w: color must look like #RRGGBB", ErrInvalidInput)
	}
	return nil
}

func validateSettings(budgetCap decimal.Decimal, currency string) error {
	if !budgetCap.IsPositive() {
		return fmt.Errorf("%w: monthly budget cap must be greater than zero", ErrInvalidInput)
	}
	if !models.IsSupportedCurrency(currency) {
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidInput, currency)
	}
	return nil
}
