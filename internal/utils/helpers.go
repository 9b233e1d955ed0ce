package utils

import (
	"fmt"
	"strconv"

	"github.com/joseph-ayodele/jobsite-invoices/internal/entity"
)

func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// FormatMoney renders an amount as dollars with two decimals ($1234.50).
// Negative amounts keep the sign in front of the symbol.
func FormatMoney(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

// FormatNumber renders a quantity or percentage without trailing zeros (2, 1.5, 8.25).
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func FormatPercent(v float64) string {
	return FormatNumber(v) + "%"
}

// LineSummary renders an item as "name: qty × $rate = $line".
func LineSummary(li entity.LineItem) string {
	return fmt.Sprintf("%s: %s × %s = %s", li.Name, FormatNumber(li.Qty), FormatMoney(li.Rate), FormatMoney(li.Total()))
}
