// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max.
// If min exceeds the floating point, then the function returns the min.
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// ClipInterval is a wrapper to use Clip with an r1.Interval instead of
// a separate max and min value
func ClipInterval(value float64, interval r1.Interval) float64 {
	return Clip(value, interval.Min, interval.Max)
}

// ClipSlice clips each element of values to within [min, max],
// returning a new slice and leaving values unmodified.
func ClipSlice(values []float64, min, max float64) []float64 {
	clipped := make([]float64, len(values))
	for i, value := range values {
		clipped[i] = Clip(value, min, max)
	}
	return clipped
}

// Linspace returns n evenly spaced values over the closed interval
// [start, stop]. A single point collapses to start.
func Linspace(start, stop float64, n int) []float64 {
	if n == 1 {
		return []float64{start}
	}

	points := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range points {
		points[i] = start + float64(i)*step
	}
	return points
}

// Ones returns a slice of n float64's, each equal to 1.0
func Ones(n int) []float64 {
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1.0
	}
	return ones
}
