package vocoder

import (
	"math"

	"github.com/RyanBlaney/sonido-world/algorithms/common"
	"github.com/RyanBlaney/sonido-world/algorithms/windowing"
)

// CheapTrick estimates the spectral envelope. For every frame it takes the
// power spectrum of a pitch-adaptive Hann window spanning three periods,
// smooths it over one f0 in frequency, and lifters the cepstrum with the
// smoothing and q1 compensation lifters.
//
// Each row of spectrogram must hold opt.FFTSize/2+1 values. Frames with f0 at
// or below opt.F0Floor are analysed with DefaultF0.
func (a *Analyzer) CheapTrick(x []float64, fs int, timeAxis, f0 []float64, opt CheapTrickOption, spectrogram [][]float64) {
	fftSize := opt.FFTSize
	for i, row := range spectrogram {
		current := f0[i]
		if current <= opt.F0Floor {
			current = DefaultF0
		}
		a.cheapTrickFrame(x, fs, timeAxis[i], current, opt.Q1, fftSize, row)
	}
}

func (a *Analyzer) cheapTrickFrame(x []float64, fs int, t, f0, q1 float64, fftSize int, row []float64) {
	if fftSize < 4 || len(x) == 0 {
		fillFloor(row)
		return
	}
	fsf := float64(fs)
	// the window never exceeds the transform
	length := min(oddLength(1.5*fsf/f0), fftSize-1)
	win, err := windowing.New(windowing.KindHann, length, true)
	if err != nil {
		fillFloor(row)
		return
	}
	frame := win.Segment(x, sampleIndex(t, fs, len(x)))
	// unit power window so the envelope level does not depend on f0
	norm := math.Sqrt(common.Energy(win.Coefficients()))
	for j := range frame {
		frame[j] /= norm
	}

	power := a.fft.PowerSpectrum(frame, fftSize)
	width := int(math.Round(f0 * float64(fftSize) / fsf))
	smoothed := common.CenteredMovingAverage(power, width)

	half := make([]complex128, len(smoothed))
	for k, p := range smoothed {
		half[k] = complex(math.Log(p+safeGuardMinimum), 0)
	}
	cepstrum := a.fft.InverseHalfSpectrum(half, fftSize)

	for n := range cepstrum {
		quefrency := float64(min(n, fftSize-n)) / fsf
		cepstrum[n] *= smoothingLifter(quefrency, f0) * compensationLifter(quefrency, f0, q1)
	}

	spectrum := a.fft.Compute(cepstrum)
	for k := range min(len(row), len(spectrum)) {
		row[k] = math.Max(math.Exp(real(spectrum[k])), safeGuardMinimum)
	}
}

func smoothingLifter(q, f0 float64) float64 {
	if q == 0 {
		return 1
	}
	arg := math.Pi * f0 * q
	return math.Sin(arg) / arg
}

func compensationLifter(q, f0, q1 float64) float64 {
	return (1.0 - 2.0*q1) + 2.0*q1*math.Cos(2.0*math.Pi*q*f0)
}

func fillFloor(row []float64) {
	for k := range row {
		row[k] = safeGuardMinimum
	}
}
