// Package interp provides index lookups on 1D coordinate axes.
package interp

import (
	"fmt"
	"math"
)

// Tolerance is the absolute difference under which two coordinate values are the same point.
const Tolerance = 1e-6

// IsAscending reports whether the axis values are strictly increasing.
func IsAscending(axis []float64) bool {
	for i := 1; i < len(axis); i++ {
		if axis[i] <= axis[i-1] {
			return false
		}
	}
	return true
}

// IsDescending reports whether the axis values are strictly decreasing.
func IsDescending(axis []float64) bool {
	for i := 1; i < len(axis); i++ {
		if axis[i] >= axis[i-1] {
			return false
		}
	}
	return true
}

// IsMonotonic reports whether the axis is strictly increasing or strictly decreasing.
func IsMonotonic(axis []float64) bool {
	return IsAscending(axis) || IsDescending(axis)
}

// NearestIndex finds the index of the value closest to target in a monotonic axis.
// Ties resolve to the lower index.
func NearestIndex(axis []float64, target float64) (int, error) {
	if len(axis) == 0 {
		return 0, fmt.Errorf("empty axis")
	}
	if math.IsNaN(target) {
		return 0, fmt.Errorf("target is NaN")
	}
	if !IsMonotonic(axis) {
		return 0, fmt.Errorf("axis is not monotonic")
	}

	desc := len(axis) > 1 && axis[0] > axis[len(axis)-1]
	less := func(i int) bool {
		if desc {
			return axis[i] > target
		}
		return axis[i] < target
	}

	// Binary search for the first value not on the near side of target.
	left, right := 0, len(axis)-1
	for left < right {
		mid := (left + right) / 2
		if less(mid) {
			left = mid + 1
		} else {
			right = mid
		}
	}

	// Check if left-1 is closer (or equally close).
	if left > 0 && math.Abs(axis[left-1]-target) <= math.Abs(axis[left]-target) {
		return left - 1, nil
	}
	return left, nil
}

// ExactIndex returns the index of target in axis, or -1 when no value lies within Tolerance.
func ExactIndex(axis []float64, target float64) int {
	for i, v := range axis {
		if math.Abs(v-target) <= Tolerance {
			return i
		}
	}
	return -1
}
