package integration

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// RoundAmount rounds a monetary value to two decimals, half away from zero
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatAmount renders a monetary value with exactly two decimals and no
// thousands separators: 100 -> "100.00", 99.999 -> "100.00"
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// TaxOf returns base * rate / 100 rounded to two decimals
func TaxOf(base, rate decimal.Decimal) decimal.Decimal {
	return RoundAmount(base.Mul(rate).Div(hundred))
}

// ExcludeTax returns the net amount of a tax-inclusive gross at rate
func ExcludeTax(gross, rate decimal.Decimal) decimal.Decimal {
	return RoundAmount(gross.Div(hundred.Add(rate).Div(hundred)))
}
