package vocoder

import (
	"math"

	"github.com/RyanBlaney/sonido-world/algorithms/spectral"
)

// Analyzer runs the vocoder stages. It keeps no state between calls other
// than the synthesis noise seed, so one Analyzer may serve a whole session.
type Analyzer struct {
	fft  *spectral.FFT
	seed uint64
}

// NewAnalyzer creates an Analyzer with the default noise seed.
func NewAnalyzer() *Analyzer {
	return &Analyzer{fft: spectral.NewFFT(), seed: 1}
}

// fillTimeAxis writes i*framePeriod/1000 seconds into timeAxis.
func fillTimeAxis(timeAxis []float64, framePeriod float64) {
	for i := range timeAxis {
		timeAxis[i] = float64(i) * framePeriod / 1000.0
	}
}

// sampleIndex maps a time in seconds to the nearest sample, clamped to x.
func sampleIndex(t float64, fs, xLength int) int {
	idx := int(math.Round(t * float64(fs)))
	return min(max(idx, 0), max(xLength-1, 0))
}

// oddLength returns 2*round(half)+1.
func oddLength(half float64) int {
	return 2*int(math.Round(half)) + 1
}
