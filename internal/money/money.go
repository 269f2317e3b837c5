// Package money holds the rounding and tax rules shared by carts, sales and
// receipts. Every amount that crosses a boundary has exactly two decimals.
package money

import "github.com/shopspring/decimal"

const Places = 2

// TaxRate is applied on top of pre-tax totals at presentation time only.
var TaxRate = decimal.RequireFromString("0.05")

// Round rounds half away from zero to two decimals.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

func LineSubtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return Round(price.Mul(decimal.NewFromInt(int64(quantity))))
}

// Sum adds the amounts and rounds once at the end.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Round(total)
}

func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Mul(TaxRate))
}

func WithTax(subtotal decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Add(Tax(subtotal)))
}

func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
