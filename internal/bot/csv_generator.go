package bot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"gitlab.com/yelinaung/drain-bot/internal/models"
)

const (
	exportCSV  = "csv"
	exportXLSX = "xlsx"

	exportDateLayout = "2006-01-02"
)

// exportHeader is shared by the CSV and XLSX exports.
var exportHeader = []string{
	"ID", "Service", "Category", "Cost", "Billing Cycle", "Monthly Cost", "Annual Cost",
	"Currency", "Renewal Date", "Uses", "Last Used", "Drain Score", "Tier", "Active", "Cancel URL",
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(exportDateLayout)
}

// subscriptionRecord flattens a subscription into export columns.
func subscriptionRecord(sub *models.Subscription, currency string) []string {
	return []string{
		strconv.Itoa(sub.ID),
		sub.ServiceName,
		string(sub.Category),
		sub.OriginalCost.StringFixed(2),
		string(sub.BillingCycle),
		sub.CostMonthly.StringFixed(2),
		sub.AnnualLoss().StringFixed(2),
		currency,
		sub.RenewalDate.Format(exportDateLayout),
		strconv.Itoa(sub.UsageFrequency),
		formatOptionalDate(sub.LastUsedDate),
		strconv.Itoa(sub.DrainScore),
		string(sub.DrainTier),
		strconv.FormatBool(sub.IsActive),
		sub.CancelURL,
	}
}

// GenerateSubscriptionsCSV generates a CSV file from a list of subscriptions.
func GenerateSubscriptionsCSV(subs []models.Subscription, currency string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range subs {
		if err := writer.Write(subscriptionRecord(&subs[i], currency)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// generateExportFilename creates a filename like "subscriptions_2026-01-31.csv".
func generateExportFilename(format string, now time.Time) string {
	return fmt.Sprintf("subscriptions_%s.%s", now.Format(exportDateLayout), format)
}
