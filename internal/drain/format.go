package drain

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"INR": "₹",
	"EUR": "€",
	"GBP": "£",
}

// CurrencySymbol returns the display symbol for an ISO code.
func CurrencySymbol(code string) (string, bool) {
	s, ok := currencySymbols[strings.ToUpper(code)]
	return s, ok
}

// FormatCurrency renders amount with thousands grouping and two decimals,
// e.g. "₹1,234.50". Unknown codes are prefixed with the code itself.
func FormatCurrency(amount decimal.Decimal, code string) string {
	value := humanize.FormatFloat("#,###.##", amount.Round(2).Abs().InexactFloat64())
	sign := ""
	if amount.Round(2).IsNegative() {
		sign = "-"
	}
	if sym, ok := CurrencySymbol(code); ok {
		return sign + sym + value
	}
	return sign + strings.ToUpper(code) + " " + value
}
