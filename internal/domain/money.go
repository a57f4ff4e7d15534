package domain

import "math"

// RoundMoney rounds a monetary amount to 2 fractional digits. All monetary
// fields crossing the output boundary are fixed-precision.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundRate rounds a rate or ratio to 4 fractional digits.
func RoundRate(v float64) float64 {
	return math.Round(v*10000) / 10000
}
