package filters

import (
	"math"
)

// DCRemoval is a one-pole DC blocker:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// The pitch estimators run it forward and backward over the waveform so the
// low-cut does not shift the signal in time.
//
// Reference: Julius O. Smith III, "Introduction to Digital Filters with Audio
// Applications", https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
type DCRemoval struct {
	poleLocation float64 // R, 0 < R < 1

	x1 float64
	y1 float64
}

// NewDCRemoval creates a DC blocker with R = 0.995.
func NewDCRemoval() *DCRemoval {
	return &DCRemoval{poleLocation: 0.995}
}

// NewDCRemovalWithCutoff derives R from a -3dB cutoff using R = 1 - 2*pi*fc/fs.
// Results outside (0, 1) are clamped.
func NewDCRemovalWithCutoff(sampleRate int, cutoffFreq float64) *DCRemoval {
	dc := NewDCRemoval()
	if sampleRate > 0 && cutoffFreq > 0 {
		dc.poleLocation = 1.0 - 2.0*math.Pi*cutoffFreq/float64(sampleRate)
		switch {
		case dc.poleLocation >= 1.0:
			dc.poleLocation = 0.999
		case dc.poleLocation <= 0.0:
			dc.poleLocation = 0.001
		}
	}
	return dc
}

// Process filters one sample.
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.x1 + dc.poleLocation*dc.y1
	dc.x1 = input
	dc.y1 = output
	return output
}

// ProcessBuffer filters a whole buffer, carrying state from previous calls.
func (dc *DCRemoval) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = dc.Process(sample)
	}
	return output
}

// FiltFilt runs the filter forward, then backward over the reversed output,
// starting from a cleared state both times. The result has zero phase.
func (dc *DCRemoval) FiltFilt(input []float64) []float64 {
	dc.Reset()
	forward := dc.ProcessBuffer(input)
	reverse(forward)

	dc.Reset()
	output := dc.ProcessBuffer(forward)
	reverse(output)
	dc.Reset()
	return output
}

// Reset clears the filter state.
func (dc *DCRemoval) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
