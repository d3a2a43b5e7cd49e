// Package vocoder is a reference implementation of the WORLD analysis and
// synthesis stages: two pitch estimators (Dio and Harvest), pitch refinement
// (StoneMask), spectral envelope (CheapTrick), aperiodicity (D4C) and
// resynthesis.
//
// Every stage writes into caller-owned slices sized with the helpers in this
// file, so the bridge can hand registered buffers straight to the algorithms.
// The numerics are simplified; the shapes, defaults and size formulas follow
// WORLD exactly.
package vocoder

import (
	"math"
)

const (
	// DefaultF0 replaces unvoiced or too-low f0 when a stage needs a period.
	DefaultF0 = 500.0

	// DefaultF0Floor and DefaultF0Ceil bound every pitch search.
	DefaultF0Floor = 71.0
	DefaultF0Ceil  = 800.0

	// DefaultFramePeriod is the analysis hop in milliseconds.
	DefaultFramePeriod = 5.0

	// minAperiodicity and maxAperiodicity clamp every D4C output value.
	minAperiodicity = 0.001
	maxAperiodicity = 0.999

	safeGuardMinimum = 1e-12
)

// DioOption configures the Dio pitch estimator.
type DioOption struct {
	F0Floor          float64
	F0Ceil           float64
	ChannelsInOctave float64
	FramePeriod      float64 // ms
	// Speed decimates the waveform before the search. 1 is full resolution,
	// values are clamped to [1, 12].
	Speed int
	// AllowedRange is the largest relative jump between neighbouring frames
	// before the middle frame is treated as an error.
	AllowedRange float64
}

// DefaultDioOption returns WORLD's Dio defaults.
func DefaultDioOption() DioOption {
	return DioOption{
		F0Floor:          DefaultF0Floor,
		F0Ceil:           DefaultF0Ceil,
		ChannelsInOctave: 2.0,
		FramePeriod:      DefaultFramePeriod,
		Speed:            1,
		AllowedRange:     0.1,
	}
}

// HarvestOption configures the Harvest pitch estimator.
type HarvestOption struct {
	F0Floor     float64
	F0Ceil      float64
	FramePeriod float64 // ms
}

// DefaultHarvestOption returns WORLD's Harvest defaults.
func DefaultHarvestOption() HarvestOption {
	return HarvestOption{
		F0Floor:     DefaultF0Floor,
		F0Ceil:      DefaultF0Ceil,
		FramePeriod: DefaultFramePeriod,
	}
}

// CheapTrickOption configures spectral envelope estimation.
type CheapTrickOption struct {
	Q1      float64
	F0Floor float64
	FFTSize int
}

// DefaultCheapTrickOption returns WORLD's CheapTrick defaults for fs.
func DefaultCheapTrickOption(fs int) CheapTrickOption {
	return CheapTrickOption{
		Q1:      -0.15,
		F0Floor: DefaultF0Floor,
		FFTSize: FFTSizeForCheapTrick(fs, DefaultF0Floor),
	}
}

// D4COption configures aperiodicity estimation.
type D4COption struct {
	// Threshold is the voicing decision level. Frames scoring below it are
	// reported as fully aperiodic. Zero disables the decision.
	Threshold float64
}

// DefaultD4COption returns WORLD's D4C defaults.
func DefaultD4COption() D4COption {
	return D4COption{Threshold: 0.85}
}

// SamplesForDio returns the number of frames Dio produces for xLength samples.
func SamplesForDio(fs, xLength int, framePeriod float64) int {
	return int(1000.0*float64(xLength)/float64(fs)/framePeriod) + 1
}

// SamplesForHarvest returns the number of frames Harvest produces for xLength samples.
func SamplesForHarvest(fs, xLength int, framePeriod float64) int {
	return int(1000.0*float64(xLength)/float64(fs)/framePeriod) + 1
}

// FFTSizeForCheapTrick returns the smallest power of two that holds a
// three-period window of the lowest f0.
func FFTSizeForCheapTrick(fs int, f0Floor float64) int {
	return int(math.Pow(2.0, 1.0+math.Floor(math.Log2(3.0*float64(fs)/f0Floor+1))))
}

// SynthesisLength returns the number of samples Synthesis writes for
// f0Length frames, or -1 when that count does not fit in an int.
func SynthesisLength(f0Length int, framePeriod float64, fs int) int {
	span := float64(f0Length-1) * framePeriod / 1000.0 * float64(fs)
	if math.IsNaN(span) || span < 0 || span >= math.MaxInt {
		return -1
	}
	return int(span) + 1
}

// EnvelopeBins is the row length of spectrogram and aperiodicity grids.
func EnvelopeBins(fftSize int) int {
	return fftSize/2 + 1
}
