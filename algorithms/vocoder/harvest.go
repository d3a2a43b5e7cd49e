package vocoder

import (
	"math"

	"github.com/RyanBlaney/sonido-world/algorithms/common"
	"github.com/RyanBlaney/sonido-world/algorithms/filters"
	"github.com/RyanBlaney/sonido-world/algorithms/windowing"
)

const (
	harvestThreshold       = 0.15
	harvestFallbackMaximum = 0.35
	harvestSilenceEnergy   = 1e-10
)

// Harvest estimates f0 with the cumulative mean normalized difference
// function (YIN). The difference function is built from one FFT
// cross-correlation per frame and running energies, and the first dip below
// the absolute threshold wins. f0 is 0 for unvoiced frames.
func (a *Analyzer) Harvest(x []float64, fs int, opt HarvestOption, timeAxis, f0 []float64) {
	fillTimeAxis(timeAxis, opt.FramePeriod)
	if len(x) == 0 || fs <= 0 {
		clear(f0)
		return
	}

	filtered := filters.NewDCRemovalWithCutoff(fs, dioLowCutHz).FiltFilt(x)
	fsf := float64(fs)
	minLag := max(int(math.Floor(fsf/opt.F0Ceil)), 2)
	maxLag := int(math.Ceil(fsf / opt.F0Floor))
	if minLag >= maxLag {
		clear(f0)
		return
	}
	integration := maxLag

	for i, t := range timeAxis {
		center := sampleIndex(t, fs, len(filtered))
		// segment starts half an integration window before the frame centre
		segment := windowing.Extract(filtered, center+maxLag/2, integration+maxLag+1)
		f0[i] = a.harvestFrame(segment, integration, minLag, maxLag, fsf)
	}
}

func (a *Analyzer) harvestFrame(segment []float64, integration, minLag, maxLag int, fs float64) float64 {
	head := segment[:integration]
	e0 := common.Energy(head)
	if e0 < harvestSilenceEnergy {
		return 0
	}

	r := a.fft.CrossCorrelation(head, segment, maxLag+1)

	// energy of segment[tau : tau+integration] for every tau
	prefix := make([]float64, len(segment)+1)
	for j, v := range segment {
		prefix[j+1] = prefix[j] + v*v
	}

	cmndf := make([]float64, len(r))
	cmndf[0] = 1
	running := 0.0
	for tau := 1; tau < len(r); tau++ {
		eTau := prefix[tau+integration] - prefix[tau]
		d := math.Max(e0+eTau-2*r[tau], 0)
		running += d
		if running > 0 {
			cmndf[tau] = d * float64(tau) / running
		} else {
			cmndf[tau] = 1
		}
	}

	lag := -1
	for tau := minLag; tau <= maxLag && tau+1 < len(cmndf); tau++ {
		if cmndf[tau] < harvestThreshold {
			for tau+1 < len(cmndf) && cmndf[tau+1] < cmndf[tau] {
				tau++
			}
			lag = tau
			break
		}
	}
	if lag < 0 {
		best := minLag
		for tau := minLag; tau <= maxLag && tau < len(cmndf); tau++ {
			if cmndf[tau] < cmndf[best] {
				best = tau
			}
		}
		if cmndf[best] > harvestFallbackMaximum {
			return 0
		}
		lag = best
	}

	period := common.ParabolicPeak(cmndf, lag)
	if period <= 0 {
		return 0
	}
	return fs / period
}
