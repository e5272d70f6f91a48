// Package decimalx provides small fixed-point decimal helpers shared across
// the indicator engine, coordinator, and backtester.
package decimalx

import (
	"math"

	"github.com/shopspring/decimal"
)

// Precision is the internal working precision for derived values (prices,
// offsets, averages). Inputs may carry less; outputs are rounded to this
// many fractional digits to keep repeated arithmetic from drifting.
const Precision = 8

// Round rounds d to Precision fractional digits.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

// RoundTo rounds d to places fractional digits, used for fill-price
// rounding driven by PortfolioConfig.PriceRounding.
func RoundTo(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// Clamp01 clamps f into [0, 1].
func Clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ClampDecimal01 clamps d into [0, 1].
func ClampDecimal01(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return d
}

// StdDev returns the population standard deviation of values, computed in
// float64 per the ratios-only floating point carve-out.
func StdDev(values []decimal.Decimal) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	floats := make([]float64, n)
	var sum float64
	for i, v := range values {
		f, _ := v.Float64()
		floats[i] = f
		sum += f
	}
	mean := sum / float64(n)

	var sqDiff float64
	for _, f := range floats {
		d := f - mean
		sqDiff += d * d
	}

	return math.Sqrt(sqDiff / float64(n))
}

// Mean returns the arithmetic mean of decimals, rounded to Precision.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return Round(sum.Div(decimal.NewFromInt(int64(len(values)))))
}

// PercentDiff returns (a-b)/b as a decimal, or zero if b is zero.
func PercentDiff(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return Round(a.Sub(b).Div(b))
}

// MaxDecimal returns the larger of a and b.
func MaxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
