package pipeline

import (
	"github.com/RyanBlaney/sonido-world/algorithms/vocoder"
)

// Library is the analysis and synthesis backend a Session delegates to.
// Every method writes into the caller-owned output slices; shapes are
// validated by the Session before the call.
type Library interface {
	Dio(x []float64, fs int, opt vocoder.DioOption, timeAxis, f0 []float64)
	Harvest(x []float64, fs int, opt vocoder.HarvestOption, timeAxis, f0 []float64)
	StoneMask(x []float64, fs int, timeAxis, f0, refined []float64)
	CheapTrick(x []float64, fs int, timeAxis, f0 []float64, opt vocoder.CheapTrickOption, spectrogram [][]float64)
	D4C(x []float64, fs int, timeAxis, f0 []float64, fftSize int, opt vocoder.D4COption, aperiodicity [][]float64)
	Synthesis(f0 []float64, spectrogram, aperiodicity [][]float64, fftSize int, framePeriod float64, fs int, y []float64)
}

var _ Library = (*vocoder.Analyzer)(nil)

// Options are the four option records shared by every stage of a session.
type Options struct {
	SampleRate int
	Dio        vocoder.DioOption
	Harvest    vocoder.HarvestOption
	CheapTrick vocoder.CheapTrickOption
	D4C        vocoder.D4COption
}

// DefaultOptions returns the library defaults for sample rate fs.
func DefaultOptions(fs int) Options {
	return Options{
		SampleRate: fs,
		Dio:        vocoder.DefaultDioOption(),
		Harvest:    vocoder.DefaultHarvestOption(),
		CheapTrick: vocoder.DefaultCheapTrickOption(fs),
		D4C:        vocoder.DefaultD4COption(),
	}
}

// withPitchRange overrides the f0 search range. Non-positive values keep
// the current setting. A new floor also resizes the CheapTrick transform.
func (o Options) withPitchRange(f0Floor, f0Ceil float64) Options {
	if f0Floor > 0 {
		o.Dio.F0Floor = f0Floor
		o.Harvest.F0Floor = f0Floor
		o.CheapTrick.F0Floor = f0Floor
		o.CheapTrick.FFTSize = vocoder.FFTSizeForCheapTrick(o.SampleRate, f0Floor)
	}
	if f0Ceil > 0 {
		o.Dio.F0Ceil = f0Ceil
		o.Harvest.F0Ceil = f0Ceil
	}
	return o
}
