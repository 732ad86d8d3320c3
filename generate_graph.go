//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/drain-bot/internal/bot"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

func main() {
	subs := []models.Subscription{
		{ServiceName: "Netflix", Category: models.CategoryOTT, CostMonthly: decimal.NewFromInt(649)},
		{ServiceName: "Disney+", Category: models.CategoryOTT, CostMonthly: decimal.NewFromInt(299)},
		{ServiceName: "Spotify", Category: models.CategoryMusic, CostMonthly: decimal.NewFromInt(119)},
		{ServiceName: "Notion", Category: models.CategoryProductivity, CostMonthly: decimal.NewFromInt(400)},
		{ServiceName: "iCloud", Category: models.CategoryCloud, CostMonthly: decimal.NewFromInt(75)},
	}

	chartData, err := bot.GenerateSubscriptionChart(subs, "category", "Monthly Spend by Category")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Created graph.png - Example subscription spend chart")
}
