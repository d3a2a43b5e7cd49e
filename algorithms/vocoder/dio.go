package vocoder

import (
	"math"

	"github.com/RyanBlaney/sonido-world/algorithms/common"
	"github.com/RyanBlaney/sonido-world/algorithms/filters"
	"github.com/RyanBlaney/sonido-world/algorithms/windowing"
)

const (
	dioVoicingThreshold = 0.5
	// dioOctaveRatio keeps the shortest-lag peak scoring within this ratio of
	// the best peak, which suppresses sub-octave errors on periodic input.
	dioOctaveRatio = 0.9
	dioSilenceRMS  = 1e-6
	dioLowCutHz    = 20.0
)

// Dio estimates f0 with a normalized autocorrelation search over the lag
// range [fs/F0Ceil, fs/F0Floor]. The autocorrelation of each Hann-windowed
// frame is divided by the window's own autocorrelation so peaks of a
// periodic signal score close to one at every lag. f0 is 0 for unvoiced
// frames.
//
// timeAxis and f0 must have the same length, normally
// SamplesForDio(fs, len(x), opt.FramePeriod).
func (a *Analyzer) Dio(x []float64, fs int, opt DioOption, timeAxis, f0 []float64) {
	fillTimeAxis(timeAxis, opt.FramePeriod)
	if len(x) == 0 || fs <= 0 {
		clear(f0)
		return
	}

	speed := min(max(opt.Speed, 1), 12)
	filtered := filters.NewDCRemovalWithCutoff(fs, dioLowCutHz).FiltFilt(x)
	decimated, fsd := decimate(filtered, fs, speed)

	minLag := max(int(math.Floor(fsd/opt.F0Ceil)), 2)
	maxLag := int(math.Ceil(fsd / opt.F0Floor))
	frameLen := oddLength(1.5 * fsd / opt.F0Floor)
	maxLag = min(maxLag, frameLen-2)

	win, err := windowing.New(windowing.KindHann, frameLen, true)
	if err != nil || minLag >= maxLag {
		clear(f0)
		return
	}
	winACF := a.fft.Autocorrelation(win.Coefficients(), maxLag+1)

	for i, t := range timeAxis {
		center := sampleIndex(t, int(fsd), len(decimated))
		frame := win.Segment(decimated, center)
		f0[i] = a.dioFrame(frame, winACF, fsd, minLag, maxLag)
	}
	fixF0Jumps(f0, opt.AllowedRange)
}

func (a *Analyzer) dioFrame(frame, winACF []float64, fsd float64, minLag, maxLag int) float64 {
	if common.RMS(frame) < dioSilenceRMS {
		return 0
	}
	acf := a.fft.Autocorrelation(frame, maxLag+1)
	if acf[0] <= 0 {
		return 0
	}

	score := make([]float64, len(acf))
	for lag := range acf {
		if winACF[lag] > 0 {
			score[lag] = (acf[lag] / acf[0]) / (winACF[lag] / winACF[0])
		}
	}

	best := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		if isLocalMax(score, lag) && score[lag] > best {
			best = score[lag]
		}
	}
	if best < dioVoicingThreshold {
		return 0
	}

	for lag := minLag; lag <= maxLag; lag++ {
		if isLocalMax(score, lag) && score[lag] >= dioOctaveRatio*best {
			period := common.ParabolicPeak(score, lag)
			return fsd / period
		}
	}
	return 0
}

func isLocalMax(x []float64, i int) bool {
	return i > 0 && i < len(x)-1 && x[i] >= x[i-1] && x[i] > x[i+1]
}

// decimate averages groups of speed samples.
func decimate(x []float64, fs, speed int) ([]float64, float64) {
	if speed == 1 {
		return x, float64(fs)
	}
	out := make([]float64, (len(x)+speed-1)/speed)
	for i := range out {
		start := i * speed
		end := min(start+speed, len(x))
		out[i] = common.Mean(x[start:end])
	}
	return out, float64(fs) / float64(speed)
}

// fixF0Jumps unvoices isolated frames that differ from both voiced
// neighbours by more than allowedRange.
func fixF0Jumps(f0 []float64, allowedRange float64) {
	if allowedRange <= 0 || len(f0) < 3 {
		return
	}
	orig := append([]float64(nil), f0...)
	for i := 1; i < len(orig)-1; i++ {
		prev, cur, next := orig[i-1], orig[i], orig[i+1]
		if cur == 0 || prev == 0 || next == 0 {
			continue
		}
		if math.Abs(cur-prev)/prev > allowedRange && math.Abs(cur-next)/next > allowedRange {
			f0[i] = 0
		}
	}
}
