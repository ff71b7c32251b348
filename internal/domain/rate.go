package domain

import "math"

// rate math is done in integer basis points with floor semantics at both
// steps: the float rate is floored into basis points once, and the product is
// floored by integer division. One policy, applied uniformly to house fees,
// transfer tax, rob fines and steal fractions.

const rateBasis = 10000

// RateToBasisPoints converts a configured float rate to basis points.
func RateToBasisPoints(rate float64) int64 {
	if rate <= 0 {
		return 0
	}
	bps := int64(math.Floor(rate * rateBasis))
	if bps > rateBasis {
		return rateBasis
	}
	return bps
}

// ApplyRate returns floor(amount * rate) computed through basis points.
// Negative amounts yield zero; rates are clamped to [0, 1].
func ApplyRate(amount int64, rate float64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount * RateToBasisPoints(rate) / rateBasis
}
