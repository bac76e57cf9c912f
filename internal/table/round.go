package table

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds v to places decimal digits, half to even, on the shortest
// decimal representation of v (so 2.675 rounds to 2.68, not 2.67).
// A negative places, NaN or an infinity returns v unchanged.
func Round(v float64, places int) float64 {
	if places < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).RoundBank(int32(places)).InexactFloat64()
}
