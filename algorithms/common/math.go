package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Statistical and array helpers shared by the vocoder stages.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Norm(data, 2) / math.Sqrt(float64(len(data)))
}

// Energy returns the sum of squares.
func Energy(data []float64) float64 {
	return floats.Dot(data, data)
}

// CenteredMovingAverage smooths data with a window of width values centered on
// each sample. Edges average over the part of the window that exists.
func CenteredMovingAverage(data []float64, width int) []float64 {
	result := make([]float64, len(data))
	if len(data) == 0 {
		return result
	}
	if width <= 1 {
		copy(result, data)
		return result
	}

	// prefix sums keep this linear in len(data)
	prefix := make([]float64, len(data)+1)
	floats.CumSum(prefix[1:], data)

	half := width / 2
	for i := range data {
		start := max(i-half, 0)
		end := min(i+half+1, len(data))
		result[i] = (prefix[end] - prefix[start]) / float64(end-start)
	}
	return result
}

// MinMaxFilter returns the running minimum and maximum of data over a
// centered window of width values.
func MinMaxFilter(data []float64, width int) (lo, hi []float64) {
	lo = make([]float64, len(data))
	hi = make([]float64, len(data))
	half := max(width/2, 0)
	for i := range data {
		start := max(i-half, 0)
		end := min(i+half+1, len(data))
		seg := data[start:end]
		lo[i] = floats.Min(seg)
		hi[i] = floats.Max(seg)
	}
	return lo, hi
}

// ParabolicPeak refines the location of an extremum at index peakIdx by
// fitting a parabola through it and its two neighbours.
func ParabolicPeak(data []float64, peakIdx int) float64 {
	if peakIdx <= 0 || peakIdx >= len(data)-1 {
		return float64(peakIdx)
	}

	y1 := data[peakIdx-1]
	y2 := data[peakIdx]
	y3 := data[peakIdx+1]

	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2

	if a == 0 {
		return float64(peakIdx)
	}

	return float64(peakIdx) - b/(2*a)
}

// Clamp constrains a value to a range
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
