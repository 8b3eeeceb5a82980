package grading

import (
	"errors"
	"math"

	"github.com/volatiletech/null/v8"
)

var (
	// ErrNoRemainingWeight is returned when no weight is left to reach a target grade.
	ErrNoRemainingWeight    = errors.New("no remaining weight to reach the desired grade")
	ErrRemainingWeightRange = errors.New("remaining weight must be between 0 and 1")
	ErrNonFiniteInput       = errors.New("grade estimate inputs must be finite numbers")
)

// EstimateRequiredScore returns the percentage a student needs on the remaining
// remainingWeight (0..1] of the grade to finish at desired, given the current grade.
// An absent current grade counts as 0.
//
// The result is not clamped: above 100 means the goal cannot be reached,
// below 0 means it is already exceeded.
func EstimateRequiredScore(current null.Float64, desired, remainingWeight float64) (float64, error) {
	cur := 0.0
	if current.Valid {
		cur = current.Float64
	}
	if !isFinite(cur) || !isFinite(desired) || !isFinite(remainingWeight) {
		return 0, ErrNonFiniteInput
	}
	if remainingWeight < 0 || remainingWeight > 1 {
		return 0, ErrRemainingWeightRange
	}
	if remainingWeight == 0 {
		return 0, ErrNoRemainingWeight
	}
	return (desired - cur*(1-remainingWeight)) / remainingWeight, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
