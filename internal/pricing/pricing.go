// Package pricing computes order totals from reserved line items.
package pricing

import "github.com/shopspring/decimal"

var (
	// FreeShippingThreshold is the smallest subtotal that ships for free.
	FreeShippingThreshold = decimal.RequireFromString("50.00")
	// FlatShippingRate is charged below the threshold.
	FlatShippingRate = decimal.RequireFromString("5.00")
)

// Line is one priced cart entry.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal is unit price times quantity, rounded to cents.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// Totals holds the monetary breakdown of an order. LineSubtotals is in the
// same order as the input lines.
type Totals struct {
	LineSubtotals []decimal.Decimal
	Subtotal      decimal.Decimal
	Shipping      decimal.Decimal
	Tax           decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
}

// Calculate prices lines. Tax and discount are always zero.
func Calculate(lines []Line) Totals {
	t := Totals{
		LineSubtotals: make([]decimal.Decimal, len(lines)),
		Subtotal:      decimal.Zero,
		Tax:           decimal.Zero,
		Discount:      decimal.Zero,
	}

	for i, l := range lines {
		s := l.Subtotal()
		t.LineSubtotals[i] = s
		t.Subtotal = t.Subtotal.Add(s)
	}

	t.Shipping = Shipping(t.Subtotal)
	t.Total = t.Subtotal.Add(t.Shipping).Add(t.Tax).Sub(t.Discount).Round(2)
	return t
}

// Shipping returns the shipping cost for a subtotal.
func Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.LessThan(FreeShippingThreshold) {
		return FlatShippingRate
	}
	return decimal.Zero
}
