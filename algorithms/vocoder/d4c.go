package vocoder

import (
	"math"

	"github.com/RyanBlaney/sonido-world/algorithms/common"
	"github.com/RyanBlaney/sonido-world/algorithms/windowing"
)

// band edges of the voicing score, in Hz
const (
	d4cLowerBound  = 100.0
	d4cMiddleBound = 4000.0
	d4cUpperBound  = 7900.0
)

// D4C estimates band aperiodicity as the ratio of the lower to the upper
// envelope of a four-period Blackman spectrum, both taken over one f0 in
// frequency. Unvoiced frames, and frames whose voicing score falls below
// opt.Threshold, are fully aperiodic. Values are clamped to [0.001, 0.999].
//
// Each row of aperiodicity must hold fftSize/2+1 values.
func (a *Analyzer) D4C(x []float64, fs int, timeAxis, f0 []float64, fftSize int, opt D4COption, aperiodicity [][]float64) {
	for i, row := range aperiodicity {
		if f0[i] <= 0 || len(x) == 0 || fftSize < 4 {
			fillAperiodic(row)
			continue
		}
		a.d4cFrame(x, fs, timeAxis[i], f0[i], fftSize, opt.Threshold, row)
	}
}

func (a *Analyzer) d4cFrame(x []float64, fs int, t, f0 float64, fftSize int, threshold float64, row []float64) {
	fsf := float64(fs)
	length := min(oddLength(2.0*fsf/f0), fftSize-1)
	win, err := windowing.New(windowing.KindBlackman, length, true)
	if err != nil {
		fillAperiodic(row)
		return
	}
	frame := win.Segment(x, sampleIndex(t, fs, len(x)))
	power := a.fft.PowerSpectrum(frame, fftSize)

	if threshold > 0 && voicingScore(power, fsf, fftSize) < threshold {
		fillAperiodic(row)
		return
	}

	width := max(int(math.Round(f0*float64(fftSize)/fsf)), 3)
	lo, hi := common.MinMaxFilter(power, width)
	ratio := make([]float64, len(power))
	for k := range power {
		if hi[k] > 0 {
			ratio[k] = lo[k] / hi[k]
		} else {
			ratio[k] = 1
		}
	}
	smoothed := common.CenteredMovingAverage(ratio, width)
	for k := range min(len(row), len(smoothed)) {
		row[k] = common.Clamp(math.Sqrt(smoothed[k]), minAperiodicity, maxAperiodicity)
	}
}

// voicingScore is the share of 100-7900 Hz power that lies below 4 kHz.
func voicingScore(power []float64, fs float64, fftSize int) float64 {
	bin := func(hz float64) int {
		return min(int(math.Round(hz*float64(fftSize)/fs)), len(power)-1)
	}
	b0, b1, b2 := bin(d4cLowerBound), bin(d4cMiddleBound), bin(d4cUpperBound)
	low, all := 0.0, 0.0
	for k := b0; k <= b2; k++ {
		all += power[k]
		if k <= b1 {
			low += power[k]
		}
	}
	if all <= 0 {
		return 0
	}
	return low / all
}

func fillAperiodic(row []float64) {
	for k := range row {
		row[k] = maxAperiodicity
	}
}
