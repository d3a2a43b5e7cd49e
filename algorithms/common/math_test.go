package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndRMS(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Mean(nil))
	assert.Zero(t, RMS(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
	assert.InDelta(t, math.Sqrt(7.5), RMS([]float64{1, 2, 3, 4}), 1e-12)
	assert.InDelta(t, 30, Energy([]float64{1, 2, 3, 4}), 1e-12)
}

func TestCenteredMovingAverage(t *testing.T) {
	t.Parallel()

	data := []float64{0, 3, 6, 9, 12}
	assert.InDeltaSlice(t, []float64{1.5, 3, 6, 9, 10.5}, CenteredMovingAverage(data, 3), 1e-12)
	assert.Equal(t, data, CenteredMovingAverage(data, 1))
	assert.Empty(t, CenteredMovingAverage(nil, 3))
}

func TestMinMaxFilter(t *testing.T) {
	t.Parallel()

	lo, hi := MinMaxFilter([]float64{3, 1, 4, 1, 5}, 3)
	assert.Equal(t, []float64{1, 1, 1, 1, 1}, lo)
	assert.Equal(t, []float64{3, 4, 4, 5, 5}, hi)
}

func TestParabolicPeak(t *testing.T) {
	t.Parallel()

	// samples of -(x-2.25)^2
	data := make([]float64, 5)
	for i := range data {
		d := float64(i) - 2.25
		data[i] = -d * d
	}
	assert.InDelta(t, 2.25, ParabolicPeak(data, 2), 1e-12)
	assert.InDelta(t, 0, ParabolicPeak(data, 0), 0)
	assert.InDelta(t, 1, ParabolicPeak([]float64{1, 1, 1}, 1), 0)
}

func TestPowersOfTwo(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1024, NextPowerOfTwo(1000))
	assert.Equal(t, 1024, NextPowerOfTwo(1024))
	assert.Equal(t, 1, NextPowerOfTwo(-3))
	assert.InDelta(t, 0.5, Clamp(2, -0.5, 0.5), 0)
}
