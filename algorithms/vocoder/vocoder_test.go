package vocoder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFS     = 48000
	testLength = 4800
)

func sine(freq float64, fs, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(fs))
	}
	return x
}

func constant(n int, v float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = v
	}
	return x
}

func grid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	for i := range g {
		g[i] = make([]float64, cols)
	}
	return g
}

func TestSizeFormulas(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 21, SamplesForDio(48000, 4800, 5))
	assert.Equal(t, 21, SamplesForHarvest(48000, 4800, 5))
	assert.Equal(t, 11, SamplesForDio(48000, 4800, 10))
	assert.Equal(t, 4801, SynthesisLength(21, 5, 48000))
	assert.Equal(t, 1, SynthesisLength(1, 5, 48000))
	assert.Equal(t, -1, SynthesisLength(21, 1e300, 48000))
	assert.Equal(t, -1, SynthesisLength(21, math.NaN(), 48000))

	tests := []struct {
		fs      int
		f0Floor float64
		want    int
	}{
		{48000, 71, 2048},
		{44100, 71, 2048},
		{16000, 71, 1024},
		{48000, 40, 4096},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FFTSizeForCheapTrick(tt.fs, tt.f0Floor), "fs=%d floor=%v", tt.fs, tt.f0Floor)
	}

	assert.Equal(t, 1025, EnvelopeBins(2048))
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	dio := DefaultDioOption()
	assert.InDelta(t, 71, dio.F0Floor, 0)
	assert.InDelta(t, 800, dio.F0Ceil, 0)
	assert.InDelta(t, 2, dio.ChannelsInOctave, 0)
	assert.InDelta(t, 5, dio.FramePeriod, 0)
	assert.Equal(t, 1, dio.Speed)
	assert.InDelta(t, 0.1, dio.AllowedRange, 0)

	assert.Equal(t, HarvestOption{F0Floor: 71, F0Ceil: 800, FramePeriod: 5}, DefaultHarvestOption())
	assert.Equal(t, CheapTrickOption{Q1: -0.15, F0Floor: 71, FFTSize: 2048}, DefaultCheapTrickOption(48000))
	assert.InDelta(t, 0.85, DefaultD4COption().Threshold, 0)
}

func TestPitchEstimatorsFindSine(t *testing.T) {
	t.Parallel()

	x := sine(200, testFS, testLength)
	n := SamplesForDio(testFS, testLength, 5)

	tests := []struct {
		name string
		run  func(a *Analyzer, timeAxis, f0 []float64)
	}{
		{"dio", func(a *Analyzer, timeAxis, f0 []float64) {
			a.Dio(x, testFS, DefaultDioOption(), timeAxis, f0)
		}},
		{"harvest", func(a *Analyzer, timeAxis, f0 []float64) {
			a.Harvest(x, testFS, DefaultHarvestOption(), timeAxis, f0)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			timeAxis := make([]float64, n)
			f0 := make([]float64, n)
			tt.run(NewAnalyzer(), timeAxis, f0)

			for i, ts := range timeAxis {
				assert.InDelta(t, float64(i)*0.005, ts, 1e-12)
			}
			for i := 5; i <= 15; i++ {
				assert.InDelta(t, 200, f0[i], 1.0, "frame %d", i)
			}
		})
	}
}

func TestPitchEstimatorsSilence(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	x := make([]float64, testLength)
	n := SamplesForDio(testFS, testLength, 5)

	timeAxis := make([]float64, n)
	f0 := constant(n, 123)
	a.Dio(x, testFS, DefaultDioOption(), timeAxis, f0)
	assert.Equal(t, make([]float64, n), f0)

	f0 = constant(n, 123)
	a.Harvest(x, testFS, DefaultHarvestOption(), timeAxis, f0)
	assert.Equal(t, make([]float64, n), f0)
}

func TestPitchEstimatorsEmptySearchRange(t *testing.T) {
	t.Parallel()

	// a floor above fs leaves no lag to search
	x := sine(200, testFS, testLength)
	n := SamplesForDio(testFS, testLength, 5)
	a := NewAnalyzer()

	timeAxis := make([]float64, n)
	f0 := constant(n, 123)
	a.Harvest(x, testFS, HarvestOption{F0Floor: 60000, F0Ceil: 800, FramePeriod: 5}, timeAxis, f0)
	assert.Equal(t, make([]float64, n), f0)
	assert.InDelta(t, 0.1, timeAxis[n-1], 1e-12)

	dio := DefaultDioOption()
	dio.F0Floor = 60000
	f0 = constant(n, 123)
	a.Dio(x, testFS, dio, timeAxis, f0)
	assert.Equal(t, make([]float64, n), f0)
}

func TestFixF0Jumps(t *testing.T) {
	t.Parallel()

	f0 := []float64{200, 200, 400, 200, 0, 300, 0}
	fixF0Jumps(f0, 0.1)
	assert.Equal(t, []float64{200, 200, 0, 200, 0, 300, 0}, f0)
}

func TestStoneMask(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	x := sine(200, testFS, testLength)
	n := SamplesForDio(testFS, testLength, 5)
	timeAxis := make([]float64, n)
	fillTimeAxis(timeAxis, 5)

	t.Run("refines toward the harmonic", func(t *testing.T) {
		t.Parallel()
		f0 := constant(n, 195)
		f0[0] = 0
		refined := make([]float64, n)
		a.StoneMask(x, testFS, timeAxis, f0, refined)
		assert.Zero(t, refined[0])
		for i := 3; i <= 17; i++ {
			assert.InDelta(t, 200, refined[i], 0.5, "frame %d", i)
		}
	})

	t.Run("large moves keep the estimate", func(t *testing.T) {
		t.Parallel()
		f0 := constant(n, 300)
		a.StoneMask(x, testFS, timeAxis, f0, f0)
		for i := 3; i <= 17; i++ {
			assert.InDelta(t, 300, f0[i], 0, "frame %d", i)
		}
	})
}

func TestCheapTrick(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	opt := DefaultCheapTrickOption(testFS)
	n := SamplesForDio(testFS, testLength, 5)
	timeAxis := make([]float64, n)
	fillTimeAxis(timeAxis, 5)
	f0 := constant(n, 200)

	sp := grid(n, EnvelopeBins(opt.FFTSize))
	a.CheapTrick(sine(200, testFS, testLength), testFS, timeAxis, f0, opt, sp)
	for i, row := range sp {
		require.Len(t, row, 1025)
		for k, v := range row {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "frame %d bin %d", i, k)
			require.GreaterOrEqual(t, v, safeGuardMinimum)
		}
	}
	assert.Greater(t, sp[10][9], sp[10][600])

	silent := grid(n, EnvelopeBins(opt.FFTSize))
	a.CheapTrick(make([]float64, testLength), testFS, timeAxis, make([]float64, n), opt, silent)
	for _, row := range silent {
		for _, v := range row {
			assert.InDelta(t, safeGuardMinimum, v, 1e-15)
		}
	}
}

func TestD4C(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	n := SamplesForDio(testFS, testLength, 5)
	timeAxis := make([]float64, n)
	fillTimeAxis(timeAxis, 5)
	f0 := constant(n, 200)
	f0[0], f0[n-1] = 0, 0

	ap := grid(n, EnvelopeBins(2048))
	a.D4C(sine(200, testFS, testLength), testFS, timeAxis, f0, 2048, DefaultD4COption(), ap)

	for _, v := range ap[0] {
		assert.InDelta(t, maxAperiodicity, v, 0)
	}
	for _, v := range ap[n-1] {
		assert.InDelta(t, maxAperiodicity, v, 0)
	}
	for i := 1; i < n-1; i++ {
		lowest := maxAperiodicity
		for _, v := range ap[i] {
			assert.GreaterOrEqual(t, v, minAperiodicity)
			assert.LessOrEqual(t, v, maxAperiodicity)
			lowest = math.Min(lowest, v)
		}
		assert.Less(t, lowest, maxAperiodicity, "frame %d", i)
	}
}

func TestSynthesis(t *testing.T) {
	t.Parallel()

	const fftSize = 2048
	n := 21
	yLength := SynthesisLength(n, 5, testFS)

	t.Run("silent envelope", func(t *testing.T) {
		t.Parallel()
		y := constant(yLength, 1)
		NewAnalyzer().Synthesis(constant(n, 200), grid(n, 1025), grid(n, 1025), fftSize, 5, testFS, y)
		assert.Equal(t, make([]float64, yLength), y)
	})

	t.Run("deterministic output", func(t *testing.T) {
		t.Parallel()
		sp := grid(n, 1025)
		ap := grid(n, 1025)
		for i := range sp {
			for k := range sp[i] {
				sp[i][k] = 1e-4
				ap[i][k] = 0.5
			}
		}
		f0 := constant(n, 200)
		f0[10] = 0

		first := make([]float64, yLength)
		second := make([]float64, yLength)
		NewAnalyzer().Synthesis(f0, sp, ap, fftSize, 5, testFS, first)
		NewAnalyzer().Synthesis(f0, sp, ap, fftSize, 5, testFS, second)
		assert.Equal(t, first, second)

		energy := 0.0
		for _, v := range first {
			require.False(t, math.IsNaN(v))
			energy += v * v
		}
		assert.Greater(t, energy, 0.0)

		other := make([]float64, yLength)
		reseeded := NewAnalyzer()
		reseeded.seed = 7
		reseeded.Synthesis(f0, sp, ap, fftSize, 5, testFS, other)
		assert.NotEqual(t, first, other)
	})
}

func TestAnalysisChainShapes(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	x := sine(220, testFS, testLength)
	n := SamplesForDio(testFS, testLength, 5)
	timeAxis := make([]float64, n)
	f0 := make([]float64, n)
	a.Dio(x, testFS, DefaultDioOption(), timeAxis, f0)
	a.StoneMask(x, testFS, timeAxis, f0, f0)

	opt := DefaultCheapTrickOption(testFS)
	sp := grid(n, EnvelopeBins(opt.FFTSize))
	ap := grid(n, EnvelopeBins(opt.FFTSize))
	a.CheapTrick(x, testFS, timeAxis, f0, opt, sp)
	a.D4C(x, testFS, timeAxis, f0, opt.FFTSize, DefaultD4COption(), ap)

	y := make([]float64, SynthesisLength(n, 5, testFS))
	a.Synthesis(f0, sp, ap, opt.FFTSize, 5, testFS, y)
	assert.Len(t, y, 4801)
	for _, v := range y {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}
