package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}

// RoundDownToStep rounds quantity down to a multiple of step. A non-positive
// step falls back to precision decimals.
func RoundDownToStep(quantity, step float64, precision int) float64 {
	if quantity <= 0 {
		return 0
	}

	if step <= 0 {
		return RoundToDecimalPrecision(quantity, precision)
	}

	q := decimal.NewFromFloat(quantity)
	s := decimal.NewFromFloat(step)

	return q.Div(s).Floor().Mul(s).InexactFloat64()
}

// RoundToTick rounds price to the nearest multiple of tick. A non-positive
// tick falls back to precision decimals.
func RoundToTick(price, tick float64, precision int) float64 {
	if tick <= 0 {
		return decimal.NewFromFloat(price).Round(int32(precision)).InexactFloat64()
	}

	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)

	return p.Div(t).Round(0).Mul(t).InexactFloat64()
}

// CalculateQuantityForNotional returns the largest quantity, rounded down to
// step, whose value at price does not exceed notional.
func CalculateQuantityForNotional(notional, price, step float64, precision int) float64 {
	if price <= 0 || notional <= 0 {
		return 0
	}

	n := decimal.NewFromFloat(notional)
	p := decimal.NewFromFloat(price)

	return RoundDownToStep(n.Div(p).InexactFloat64(), step, precision)
}
