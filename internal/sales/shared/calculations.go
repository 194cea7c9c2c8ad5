package shared

import "github.com/shopspring/decimal"

// LineTotal returns quantity × unit price rounded to two places.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// UnitPrice derives the unit price of a stored line. A zero quantity yields
// the total itself.
func UnitPrice(total, quantity decimal.Decimal) decimal.Decimal {
	if quantity.IsZero() {
		return total
	}
	return total.Div(quantity).Round(2)
}
