package models

import "math"

// PendingAmount is the outstanding balance of a deal: discussed minus paid,
// never below zero.
func PendingAmount(discussed, paid float64) float64 {
	pending := RoundAmount(discussed - paid)
	if pending < 0 {
		return 0
	}
	return pending
}

// RoundAmount rounds to two fractional digits.
func RoundAmount(value float64) float64 {
	return math.Round(value*100) / 100
}

// MaxAmount is the exclusive upper bound of a NUMERIC(14,2) column.
const MaxAmount = 1e12

// ValidAmount reports whether value is a finite, non-negative amount that
// still fits the storage column once rounded.
func ValidAmount(value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return false
	}
	return RoundAmount(value) < MaxAmount
}
