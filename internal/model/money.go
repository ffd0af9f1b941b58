package model

import "github.com/shopspring/decimal"

// AmountScale is the number of decimal places amounts are kept to.
const AmountScale = 2

// FitsScale reports whether d has no significant digits beyond AmountScale.
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(AmountScale))
}
