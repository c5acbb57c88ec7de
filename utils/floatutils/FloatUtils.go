// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the
// max. If min exceeds the floating point, then the function returns
// the min.
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// Min calculates and returns the minimum float64 in a list
func Min(floats ...float64) float64 {
	min := floats[0]
	for _, val := range floats {
		if val < min {
			min = val
		}
	}
	return min
}

// Max calculates and returns the maximum float64 in a list
func Max(floats ...float64) float64 {
	max := floats[0]
	for _, val := range floats {
		if val > max {
			max = val
		}
	}
	return max
}

// ArgMax returns the indices of the maximum value in a list. Multiple
// indices are returned when the maximum value is repeated.
func ArgMax(floats ...float64) []int {
	max, indices := floats[0], []int{0}
	for i, value := range floats {
		if i == 0 {
			continue
		}
		if value > max {
			max = value
			indices = []int{i}
		} else if value == max {
			indices = append(indices, i)
		}
	}
	return indices
}

// LogSumExp computes the log of the sum of exponentials of the input,
// shifted by the maximum for numerical stability.
func LogSumExp(floats ...float64) float64 {
	max := Max(floats...)
	sum := 0.0
	for _, val := range floats {
		sum += math.Exp(val - max)
	}
	return max + math.Log(sum)
}

// Softmax computes the normalized exponential of the input. The
// returned values are non-negative and sum to 1.
func Softmax(floats []float64) []float64 {
	max := Max(floats...)
	probs := make([]float64, len(floats))
	sum := 0.0
	for i, val := range floats {
		probs[i] = math.Exp(val - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Mean returns the arithmetic mean of the input, or 0 for an empty
// input.
func Mean(floats []float64) float64 {
	if len(floats) == 0 {
		return 0
	}
	sum := 0.0
	for _, val := range floats {
		sum += val
	}
	return sum / float64(len(floats))
}
