package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-analyze/charts"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

const (
	chartByCategory = "category"
	chartByTier     = "tier"
)

var errNothingToChart = errors.New("no subscriptions to chart")

// chartSlice is one labelled pie slice.
type chartSlice struct {
	Label string
	Value decimal.Decimal
}

// GenerateSubscriptionChart renders a pie chart of monthly-equivalent cost,
// grouped by category or by drain tier. Returns PNG image as bytes.
func GenerateSubscriptionChart(subs []models.Subscription, groupBy, title string) ([]byte, error) {
	var parts []chartSlice
	switch groupBy {
	case chartByTier:
		parts = aggregateByTier(subs)
	default:
		parts = aggregateByCategory(subs)
	}
	if len(parts) == 0 {
		return nil, errNothingToChart
	}

	values := make([]float64, len(parts))
	names := make([]string, len(parts))
	for i, s := range parts {
		values[i] = s.Value.InexactFloat64()
		names[i] = s.Label
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}

// aggregateByCategory sums monthly cost per category in display order,
// skipping empty and zero-cost categories.
func aggregateByCategory(subs []models.Subscription) []chartSlice {
	totals := make(map[models.Category]decimal.Decimal)
	for i := range subs {
		totals[subs[i].Category] = totals[subs[i].Category].Add(subs[i].CostMonthly)
	}

	var out []chartSlice
	for _, c := range models.Categories {
		if v := totals[c]; v.IsPositive() {
			out = append(out, chartSlice{Label: string(c), Value: v})
		}
	}
	return out
}

// aggregateByTier sums monthly cost per drain tier, most severe first.
func aggregateByTier(subs []models.Subscription) []chartSlice {
	totals := make(map[drain.Tier]decimal.Decimal)
	for i := range subs {
		totals[subs[i].DrainTier] = totals[subs[i].DrainTier].Add(subs[i].CostMonthly)
	}

	names := map[drain.Tier]string{
		drain.Critical: "Critical",
		drain.Warning:  "Warning",
		drain.Healthy:  "Healthy",
	}

	var out []chartSlice
	for _, t := range []drain.Tier{drain.Critical, drain.Warning, drain.Healthy} {
		if v := totals[t]; v.IsPositive() {
			out = append(out, chartSlice{Label: names[t], Value: v})
		}
	}
	return out
}

// generateChartFilename creates a filename like "drain_category_2026-01-31.png".
func generateChartFilename(groupBy string, now time.Time) string {
	return fmt.Sprintf("drain_%s_%s.png", groupBy, now.Format("2006-01-02"))
}
