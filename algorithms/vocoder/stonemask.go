package vocoder

import (
	"math"

	"github.com/RyanBlaney/sonido-world/algorithms/common"
	"github.com/RyanBlaney/sonido-world/algorithms/windowing"
)

const (
	stoneMaskHarmonics = 6
	// stoneMaskMaxDeviation is the largest relative change accepted from
	// refinement. Larger moves keep the input estimate.
	stoneMaskMaxDeviation = 0.2
	stoneMaskOversample   = 8
)

// StoneMask refines an f0 track by locating the first harmonics of each
// voiced frame in a Blackman-windowed spectrum. Each harmonic peak is
// interpolated on the log power spectrum and the estimates are averaged with
// their power as weight. refined may alias f0.
func (a *Analyzer) StoneMask(x []float64, fs int, timeAxis, f0, refined []float64) {
	for i := range refined {
		current := f0[i]
		if current <= 0 || len(x) == 0 || fs <= 0 {
			refined[i] = 0
			continue
		}
		estimate := a.stoneMaskFrame(x, fs, timeAxis[i], current)
		if math.IsNaN(estimate) || math.Abs(estimate-current)/current > stoneMaskMaxDeviation {
			estimate = current
		}
		refined[i] = estimate
	}
}

func (a *Analyzer) stoneMaskFrame(x []float64, fs int, t, f0 float64) float64 {
	fsf := float64(fs)
	win, err := windowing.New(windowing.KindBlackman, oddLength(1.5*fsf/f0), true)
	if err != nil {
		return f0
	}
	frame := win.Segment(x, sampleIndex(t, fs, len(x)))

	fftSize := common.NextPowerOfTwo(win.Size()) * stoneMaskOversample
	power := a.fft.PowerSpectrum(frame, fftSize)
	binHz := fsf / float64(fftSize)

	logPower := make([]float64, len(power))
	for k, p := range power {
		logPower[k] = math.Log(p + safeGuardMinimum)
	}

	weighted, total := 0.0, 0.0
	for h := 1; h <= stoneMaskHarmonics; h++ {
		lo := int(math.Ceil((float64(h) - 0.5) * f0 / binHz))
		hi := int(math.Floor((float64(h) + 0.5) * f0 / binHz))
		if lo < 1 || hi >= len(power)-1 {
			break
		}
		peak := lo
		for k := lo + 1; k <= hi; k++ {
			if power[k] > power[peak] {
				peak = k
			}
		}
		if peak == lo || peak == hi {
			continue
		}
		freq := common.ParabolicPeak(logPower, peak) * binHz
		weighted += power[peak] * freq / float64(h)
		total += power[peak]
	}
	if total <= 0 {
		return f0
	}
	return weighted / total
}
