package bot

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

const summarySheet = "Summary"

// GenerateSubscriptionsXLSX builds a workbook with one row per subscription
// on the first sheet and per-tier totals on a Summary sheet.
func GenerateSubscriptionsXLSX(subs []models.Subscription, currency string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write XLSX header: %w", err)
	}

	row := 2
	for i := range subs {
		sub := &subs[i]
		excelRow := []interface{}{
			sub.ID,
			sub.ServiceName,
			string(sub.Category),
			sub.OriginalCost.InexactFloat64(),
			string(sub.BillingCycle),
			sub.CostMonthly.InexactFloat64(),
			sub.AnnualLoss().InexactFloat64(),
			currency,
			sub.RenewalDate.Format(exportDateLayout),
			sub.UsageFrequency,
			formatOptionalDate(sub.LastUsedDate),
			sub.DrainScore,
			string(sub.DrainTier),
			sub.IsActive,
			sub.CancelURL,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve XLSX cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return nil, fmt.Errorf("failed to write XLSX row: %w", err)
		}
		row++
	}

	if err := writeSummarySheet(f, subs); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write XLSX: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, subs []models.Subscription) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	header := []interface{}{"Tier", "Count", "Monthly Cost", "Annual Cost"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}

	type tally struct {
		count   int
		monthly decimal.Decimal
	}
	tallies := make(map[drain.Tier]*tally)
	for i := range subs {
		if !subs[i].IsActive {
			continue
		}
		t, ok := tallies[subs[i].DrainTier]
		if !ok {
			t = &tally{}
			tallies[subs[i].DrainTier] = t
		}
		t.count++
		t.monthly = t.monthly.Add(subs[i].CostMonthly)
	}

	row := 2
	totalCount := 0
	totalMonthly := decimal.Zero
	for _, tier := range []drain.Tier{drain.Critical, drain.Warning, drain.Healthy} {
		t, ok := tallies[tier]
		if !ok {
			t = &tally{}
		}
		totalCount += t.count
		totalMonthly = totalMonthly.Add(t.monthly)

		excelRow := []interface{}{string(tier), t.count, t.monthly.InexactFloat64(), drain.AnnualCost(t.monthly).InexactFloat64()}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("failed to resolve summary cell: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &excelRow); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
		row++
	}

	totalRow := []interface{}{"total", totalCount, totalMonthly.InexactFloat64(), drain.AnnualCost(totalMonthly).InexactFloat64()}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to resolve summary cell: %w", err)
	}
	if err := f.SetSheetRow(summarySheet, cell, &totalRow); err != nil {
		return fmt.Errorf("failed to write summary total: %w", err)
	}
	return nil
}
