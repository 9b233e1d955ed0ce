// Package totals derives subtotal, tax and total amounts from line items.
//
// Arithmetic runs on exact decimals and only the value returned by
// ComputeTotal is rounded (half away from zero, two places). Rates passed to
// ComputeTotal are fractions (0.08 for 8%); invoices store percentages, use
// PercentToFraction to convert.
package totals

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/jobsite-invoices/internal/entity"
)

// Places is the number of decimal places totals are rounded to.
const Places = 2

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ComputeSubtotal sums qty*rate over items. No rounding is applied.
func ComputeSubtotal(items []entity.LineItem) float64 {
	if !finiteItems(items) {
		return floatSubtotal(items)
	}
	return subtotal(items).InexactFloat64()
}

// ComputeTotal applies markup and then tax to the subtotal and rounds the result.
// Both taxRate and markup are fractional multipliers.
func ComputeTotal(items []entity.LineItem, taxRate, markup float64) float64 {
	if !finiteItems(items) || !finite(taxRate) || !finite(markup) {
		total := floatSubtotal(items) * (1 + markup) * (1 + taxRate)
		return math.Round(total*100) / 100
	}
	withMarkup := subtotal(items).Mul(one.Add(decimal.NewFromFloat(markup)))
	total := withMarkup.Mul(one.Add(decimal.NewFromFloat(taxRate)))
	return total.Round(Places).InexactFloat64()
}

// PercentToFraction converts a stored tax rate (8.0) to the multiplier form (0.08).
func PercentToFraction(percent float64) float64 {
	if !finite(percent) {
		return percent / 100
	}
	return decimal.NewFromFloat(percent).Div(hundred).InexactFloat64()
}

// Totals is the frozen snapshot written onto an invoice at save time.
type Totals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// ForInvoice computes the snapshot for a tax rate given as a percentage.
// Markup is always zero on the invoice flow. Total is ComputeTotal's rounded
// value and Tax is whatever remains above the unrounded subtotal, so
// Subtotal+Tax equals Total exactly in decimal.
func ForInvoice(items []entity.LineItem, ratePercent float64) Totals {
	sub := ComputeSubtotal(items)
	total := ComputeTotal(items, PercentToFraction(ratePercent), 0)

	if !finiteItems(items) || !finite(total) {
		return Totals{Subtotal: sub, Tax: total - sub, Total: total}
	}
	tax := decimal.NewFromFloat(total).Sub(subtotal(items))
	return Totals{Subtotal: sub, Tax: tax.InexactFloat64(), Total: total}
}

func subtotal(items []entity.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Qty).Mul(decimal.NewFromFloat(it.Rate)))
	}
	return sum
}

func floatSubtotal(items []entity.LineItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Qty * it.Rate
	}
	return sum
}

func finiteItems(items []entity.LineItem) bool {
	for _, it := range items {
		if !finite(it.Qty) || !finite(it.Rate) {
			return false
		}
	}
	return true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
