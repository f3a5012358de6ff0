// Package safemath provides checked integer arithmetic for custody
// accounting. Every helper reports overflow instead of wrapping; the
// engines treat a returned ErrOverflow as fatal for the whole call.
package safemath

import (
	"math"
	"time"

	"github.com/credence-labs/credence-core/pkg/contracts"
)

// Add returns a+b or ErrOverflow when the sum leaves the int64 range.
func Add(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, contracts.ErrOverflow
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, contracts.ErrOverflow
	}
	return a + b, nil
}

// Sub returns a-b or ErrOverflow on underflow/overflow.
func Sub(a, b int64) (int64, error) {
	if b > 0 && a < math.MinInt64+b {
		return 0, contracts.ErrOverflow
	}
	if b < 0 && a > math.MaxInt64+b {
		return 0, contracts.ErrOverflow
	}
	return a - b, nil
}

// Mul returns a*b or ErrOverflow.
func Mul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/b != a {
		return 0, contracts.ErrOverflow
	}
	return p, nil
}

// AddDuration returns a+b or ErrOverflow. Durations here are always
// non-negative; negative inputs are rejected as overflow.
func AddDuration(a, b time.Duration) (time.Duration, error) {
	if a < 0 || b < 0 {
		return 0, contracts.ErrOverflow
	}
	if a > math.MaxInt64-b {
		return 0, contracts.ErrOverflow
	}
	return a + b, nil
}

// BondEnd returns start+duration, rejecting sums that leave the
// representable timestamp domain.
func BondEnd(start time.Time, duration time.Duration) (time.Time, error) {
	if duration < 0 {
		return time.Time{}, contracts.ErrOverflow
	}
	end := start.Add(duration)
	if end.Before(start) {
		return time.Time{}, contracts.ErrOverflow
	}
	return end, nil
}

// RequirePositive rejects non-positive amounts.
func RequirePositive(amount int64) error {
	if amount <= 0 {
		return contracts.ErrInvalidAmount
	}
	return nil
}

// RequireRange rejects amounts outside [min, max].
func RequireRange(amount, min, max int64) error {
	if amount <= 0 {
		return contracts.ErrInvalidAmount
	}
	if amount < min {
		return contracts.ErrAmountBelowMinimum
	}
	if amount > max {
		return contracts.ErrAmountAboveMaximum
	}
	return nil
}
