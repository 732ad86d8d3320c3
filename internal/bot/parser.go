package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
)

const renewalDateLayout = "2006-01-02"

var (
	errMissingArgs  = errors.New("missing arguments")
	errInvalidCost  = errors.New("invalid cost")
	errInvalidID    = errors.New("invalid subscription id")
	errEmptyPatch   = errors.New("nothing to change")
	errMissingValue = errors.New("option has no value")
)

// amountRegex matches plain amounts like "5", "499", "12.5", "12.50".
var amountRegex = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)

// parseAmount accepts amounts with an optional currency symbol and
// thousands separators, e.g. "₹1,299" or "$9.99".
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$₹€£")
	s = strings.ReplaceAll(s, ",", "")
	if !amountRegex.MatchString(s) {
		return decimal.Zero, errInvalidCost
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errInvalidCost
	}
	return amount, nil
}

// parseBool accepts on/off, yes/no and true/false.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes", "true", "1":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func parseUses(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("uses must be a whole number, got %q", s)
	}
	return n, nil
}

func parseRenewalDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(renewalDateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("renewal date must look like YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

func parseCycle(s string) (drain.BillingCycle, error) {
	c, ok := drain.ParseBillingCycle(s)
	if !ok {
		return "", fmt.Errorf("unknown billing cycle %q", s)
	}
	return c, nil
}

func parseCategoryOption(s string) (models.Category, error) {
	c, ok := models.ParseCategory(s)
	if !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// option is a key=value pair from a command line.
type option struct {
	key   string
	value string
}

// splitOptions separates leading positional words from trailing key=value
// options. Words after an option without "=" extend that option's value, so
// "name=Apple Music" keeps the space.
func splitOptions(args string) ([]string, []option) {
	var (
		positional []string
		opts       []option
	)
	for _, word := range strings.Fields(args) {
		if key, value, ok := strings.Cut(word, "="); ok && key != "" {
			opts = append(opts, option{key: strings.ToLower(key), value: value})
			continue
		}
		if len(opts) > 0 {
			last := &opts[len(opts)-1]
			if last.value == "" {
				last.value = word
			} else {
				last.value += " " + word
			}
			continue
		}
		positional = append(positional, word)
	}
	return positional, opts
}

// parseAddArgs parses "/add <name> <cost> [cycle] [key=value ...]".
func parseAddArgs(args string, loc *time.Location) (subscription.Draft, error) {
	var draft subscription.Draft

	positional, opts := splitOptions(args)
	if len(positional) < 2 {
		return draft, errMissingArgs
	}

	if len(positional) >= 3 {
		last := positional[len(positional)-1]
		if cycle, ok := drain.ParseBillingCycle(last); ok {
			if _, err := parseAmount(positional[len(positional)-2]); err == nil {
				draft.BillingCycle = cycle
				positional = positional[:len(positional)-1]
			}
		}
	}

	cost, err := parseAmount(positional[len(positional)-1])
	if err != nil {
		return draft, err
	}
	draft.Cost = cost
	draft.ServiceName = strings.Join(positional[:len(positional)-1], " ")

	for _, opt := range opts {
		if opt.value == "" {
			return draft, fmt.Errorf("%w: %s", errMissingValue, opt.key)
		}
		switch opt.key {
		case "uses":
			draft.UsageFrequency, err = parseUses(opt.value)
		case "category":
			draft.Category, err = parseCategoryOption(opt.value)
		case "renews":
			var renewal time.Time
			renewal, err = parseRenewalDate(opt.value, loc)
			draft.RenewalDate = &renewal
		case "cycle":
			draft.BillingCycle, err = parseCycle(opt.value)
		case "cancel":
			draft.CancelURL = opt.value
		case "downgrade":
			draft.DowngradeURL = opt.value
		case "color":
			draft.Color = opt.value
		default:
			err = fmt.Errorf("unknown option %q", opt.key)
		}
		if err != nil {
			return draft, err
		}
	}

	return draft, nil
}

// parseEditArgs parses "/edit <id> key=value [key=value ...]".
func parseEditArgs(args string, loc *time.Location) (int, subscription.Patch, error) {
	var patch subscription.Patch

	positional, opts := splitOptions(args)
	if len(positional) == 0 {
		return 0, patch, errMissingArgs
	}
	id, err := parseID(positional[0])
	if err != nil {
		return 0, patch, err
	}
	if len(positional) > 1 {
		return id, patch, fmt.Errorf("unexpected %q, use key=value", positional[1])
	}
	if len(opts) == 0 {
		return id, patch, errEmptyPatch
	}

	for _, opt := range opts {
		value := opt.value
		if value == "" && opt.key != "cancel" && opt.key != "downgrade" {
			return id, patch, fmt.Errorf("%w: %s", errMissingValue, opt.key)
		}
		switch opt.key {
		case "name":
			patch.ServiceName = &value
		case "cost":
			var cost decimal.Decimal
			cost, err = parseAmount(value)
			patch.Cost = &cost
		case "cycle":
			var cycle drain.BillingCycle
			cycle, err = parseCycle(value)
			patch.BillingCycle = &cycle
		case "uses":
			var uses int
			uses, err = parseUses(value)
			patch.UsageFrequency = &uses
		case "category":
			var category models.Category
			category, err = parseCategoryOption(value)
			patch.Category = &category
		case "renews":
			var renewal time.Time
			renewal, err = parseRenewalDate(value, loc)
			patch.RenewalDate = &renewal
		case "cancel":
			patch.CancelURL = &value
		case "downgrade":
			patch.DowngradeURL = &value
		case "color":
			patch.Color = &value
		case "active":
			var active bool
			active, err = parseBool(value)
			patch.IsActive = &active
		default:
			err = fmt.Errorf("unknown option %q", opt.key)
		}
		if err != nil {
			return id, patch, err
		}
	}

	return id, patch, nil
}

// parseID parses a subscription id, accepting an optional leading "#".
func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
