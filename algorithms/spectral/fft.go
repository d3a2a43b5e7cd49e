package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp with the fixed-size real transforms the vocoder uses.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the Fast Fourier Transform of a real signal.
// go-dsp handles all sizes, including non-power-of-2.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// ComputeInverseReal computes the inverse FFT and returns the real part only
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))
	for i, val := range result {
		realResult[i] = real(val)
	}
	return realResult
}

// HalfSpectrum transforms frame zero-padded (or truncated) to fftSize and
// returns the fftSize/2+1 non-negative frequency bins.
func (f *FFT) HalfSpectrum(frame []float64, fftSize int) []complex128 {
	padded := make([]float64, fftSize)
	copy(padded, frame)
	full := fft.FFTReal(padded)
	return full[:fftSize/2+1]
}

// PowerSpectrum returns |X(k)|^2 for the fftSize/2+1 non-negative bins of frame.
func (f *FFT) PowerSpectrum(frame []float64, fftSize int) []float64 {
	half := f.HalfSpectrum(frame, fftSize)
	power := make([]float64, len(half))
	for i, c := range half {
		power[i] = real(c)*real(c) + imag(c)*imag(c)
	}
	return power
}

// InverseHalfSpectrum rebuilds the Hermitian spectrum from its fftSize/2+1
// non-negative bins and returns the real signal of length fftSize.
func (f *FFT) InverseHalfSpectrum(half []complex128, fftSize int) []float64 {
	full := make([]complex128, fftSize)
	copy(full, half)
	for k := fftSize/2 + 1; k < fftSize; k++ {
		full[k] = cmplx.Conj(full[fftSize-k])
	}
	return f.ComputeInverseReal(full)
}

// Autocorrelation returns r[0..maxLag] of x computed through the Wiener-Khinchin
// relation. The transform is padded so the result is linear, not circular.
func (f *FFT) Autocorrelation(x []float64, maxLag int) []float64 {
	if maxLag >= len(x) {
		maxLag = len(x) - 1
	}
	if maxLag < 0 {
		return []float64{}
	}

	size := nextPow2(len(x) + maxLag + 1)
	power := f.PowerSpectrum(x, size)
	half := make([]complex128, len(power))
	for i, p := range power {
		half[i] = complex(p, 0)
	}
	r := f.InverseHalfSpectrum(half, size)
	return r[:maxLag+1]
}

// CrossCorrelation returns c[tau] = sum_j a[j]*b[j+tau] for tau in [0, maxLag].
func (f *FFT) CrossCorrelation(a, b []float64, maxLag int) []float64 {
	size := nextPow2(len(a) + len(b))
	fa := f.HalfSpectrum(a, size)
	fb := f.HalfSpectrum(b, size)
	prod := make([]complex128, len(fa))
	for i := range fa {
		prod[i] = cmplx.Conj(fa[i]) * fb[i]
	}
	c := f.InverseHalfSpectrum(prod, size)
	if maxLag+1 > len(c) {
		maxLag = len(c) - 1
	}
	return c[:maxLag+1]
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
