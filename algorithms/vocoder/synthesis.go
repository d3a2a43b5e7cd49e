package vocoder

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
)

// Synthesis resynthesizes a waveform from f0, spectrogram and aperiodicity by
// pulse overlap-add. Pulses are placed by integrating the per-sample f0;
// unvoiced stretches are driven at DefaultF0 with noise only. Every pulse adds
// a zero-phase periodic response shaped by sp*(1-ap) and a random-phase noise
// response shaped by sp*ap, both centred on the pulse.
//
// y must hold SynthesisLength(len(f0), framePeriod, fs) samples; it is
// overwritten.
func (a *Analyzer) Synthesis(f0 []float64, spectrogram, aperiodicity [][]float64, fftSize int, framePeriod float64, fs int, y []float64) {
	clear(y)
	if len(f0) == 0 || fftSize < 2 || fs <= 0 || framePeriod <= 0 {
		return
	}
	if len(spectrogram) < len(f0) || len(aperiodicity) < len(f0) {
		return
	}

	rng := rand.New(rand.NewPCG(a.seed, uint64(len(y))))
	fsf := float64(fs)
	bins := EnvelopeBins(fftSize)
	phase := 0.0

	for n := range y {
		framePos := float64(n) / fsf * 1000.0 / framePeriod
		current, voiced := interpolateF0(f0, framePos)
		if !voiced {
			current = DefaultF0
		}
		phase += 2 * math.Pi * current / fsf
		if n > 0 && phase < 2*math.Pi {
			continue
		}
		phase = math.Mod(phase, 2*math.Pi)

		frame := min(int(math.Round(framePos)), len(f0)-1)
		period := fsf / current
		response := a.pulseResponse(spectrogram[frame], aperiodicity[frame], voiced, period, fftSize, bins, rng)
		addCentered(y, response, n)
	}
}

// interpolateF0 linearly interpolates f0 at a fractional frame index. A
// position touching an unvoiced frame is unvoiced.
func interpolateF0(f0 []float64, pos float64) (float64, bool) {
	i := int(math.Floor(pos))
	if i >= len(f0)-1 {
		last := f0[len(f0)-1]
		return last, last > 0
	}
	left, right := f0[i], f0[i+1]
	if left <= 0 || right <= 0 {
		return 0, false
	}
	frac := pos - float64(i)
	return left + frac*(right-left), true
}

func (a *Analyzer) pulseResponse(sp, ap []float64, voiced bool, period float64, fftSize, bins int, rng *rand.Rand) []float64 {
	periodic := make([]complex128, bins)
	noise := make([]complex128, bins)
	noiseGain := math.Sqrt(period)

	for k := range min(bins, len(sp)) {
		aperiodic := 1.0
		if voiced && k < len(ap) {
			aperiodic = ap[k]
		}
		power := math.Max(sp[k], 0)
		periodic[k] = complex(math.Sqrt(power*(1-aperiodic)), 0)

		amplitude := math.Sqrt(power*aperiodic) * noiseGain
		if k == 0 || k == bins-1 {
			noise[k] = complex(amplitude, 0)
			continue
		}
		noise[k] = cmplx.Rect(amplitude, 2*math.Pi*rng.Float64())
	}

	out := a.fft.InverseHalfSpectrum(periodic, fftSize)
	noiseOut := a.fft.InverseHalfSpectrum(noise, fftSize)
	for i := range out {
		out[i] += noiseOut[i]
	}
	return fftShift(out)
}

// fftShift rotates a zero-phase response so its peak sits at len/2.
func fftShift(x []float64) []float64 {
	half := len(x) / 2
	out := make([]float64, len(x))
	copy(out, x[half:])
	copy(out[len(x)-half:], x[:half])
	return out
}

// addCentered overlap-adds response into y with its middle on sample n.
func addCentered(y, response []float64, n int) {
	start := n - len(response)/2
	for i, v := range response {
		j := start + i
		if j >= 0 && j < len(y) {
			y[j] += v
		}
	}
}
