package host

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-world/channel"
	"github.com/RyanBlaney/sonido-world/logging"
	"github.com/RyanBlaney/sonido-world/memory"
	"github.com/RyanBlaney/sonido-world/pipeline"
)

const testFS = 48000

func sine(freq float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testFS)
	}
	return x
}

func newTestWorld(t *testing.T, opts ...Option) *World {
	t.Helper()
	return New(append([]Option{WithLogger(&logging.NoOpLogger{})}, opts...)...)
}

func assertClean(t *testing.T, w *World) {
	t.Helper()
	stats := w.Stats()
	assert.Zero(t, stats.Live)
	assert.Equal(t, stats.Allocated, stats.Released)
	assert.Empty(t, w.pending)
}

func TestWav2WorldThenSynthesis(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	x := sine(200, 4800)

	res, err := w.Wav2World(x, testFS, 0)
	require.NoError(t, err)
	assertClean(t, w)

	assert.Len(t, res.F0, 21)
	assert.Len(t, res.TimeAxis, 21)
	assert.Equal(t, 2048, res.FFTSize)
	assert.Equal(t, [2]int{21, 1025}, res.Spectrogram.Shape())
	assert.Equal(t, [2]int{21, 1025}, res.Aperiodicity.Shape())
	assert.InDelta(t, 200, res.F0[10], 1)

	y, err := w.Synthesis(res.F0, res.Spectrogram, res.Aperiodicity, testFS, 0)
	require.NoError(t, err)
	assert.Len(t, y, 4801)
	assertClean(t, w)
}

func TestHarvestFraming(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	res, err := w.Harvest(sine(200, 4800), testFS, 10, true)
	require.NoError(t, err)
	assert.Len(t, res.F0, 11)
	assert.InDelta(t, 0.01, res.TimeAxis[1], 1e-12)
	assertClean(t, w)
}

func TestNegativeStatusIsAnError(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	_, err := w.Dio(nil, testFS, 5, false)
	assert.ErrorIs(t, err, ErrInvalidNumber)

	_, err = w.CheapTrick(sine(200, 480), []float64{200}, []float64{0}, 0)
	assert.ErrorIs(t, err, ErrInvalidNumber)
	assertClean(t, w)
}

func TestSynthesisRejectsMismatchedInputs(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	f0 := make([]float64, 4)

	_, err := w.Synthesis(f0, channel.NewMatrix(3, 9), channel.NewMatrix(4, 9), testFS, 5)
	assert.ErrorIs(t, err, ErrMismatchedFrames)

	_, err = w.Synthesis(f0, channel.NewMatrix(4, 9), channel.NewMatrix(4, 5), testFS, 5)
	assert.ErrorIs(t, err, ErrMismatchedBins)

	_, err = w.Synthesis(f0, nil, channel.NewMatrix(4, 9), testFS, 5)
	assert.ErrorIs(t, err, ErrMismatchedFrames)
	assert.Zero(t, w.Stats().Allocated)
}

func TestWavRoundTrip(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	x := sine(440, 1000)

	data, err := w.WavWrite(x, 44100)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	audio, err := w.WavRead(data)
	require.NoError(t, err)
	assert.Equal(t, 44100, audio.FS)
	assert.Equal(t, 16, audio.NBit)
	require.Len(t, audio.X, len(x))
	assert.InDeltaSlice(t, x, audio.X, 1.0/16384)
	assertClean(t, w)
}

func TestWavReadReportsCodecMessage(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	_, err := w.WavRead([]byte("not a wav file"))
	require.ErrorIs(t, err, ErrAudio)
	assert.Contains(t, err.Error(), "wavreadlength")

	_, err = w.WavWrite(nil, 44100)
	assert.ErrorIs(t, err, ErrInvalidNumber)
	assertClean(t, w)
}

func TestAbout(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	text, err := w.About()
	require.NoError(t, err)
	assert.Contains(t, text, pipeline.Name)
	assert.Contains(t, text, "dio, harvest")

	again, err := w.About()
	require.NoError(t, err)
	assert.Equal(t, text, again, "stdout is drained between calls")
}

func TestLeftoverHandlesAreDestructed(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t)
	func() {
		defer w.destruct()
		assert.Positive(t, w.exports.CreateFloat64Array(8))
		assert.Positive(t, w.exports.CreateFloat64Array2D(2, 3))
		assert.Len(t, w.pending, 2)
	}()
	assertClean(t, w)
}

func TestPitchRangeSurvivesInit(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t, WithPitchRange(40, 1000))
	res, err := w.CheapTrick(sine(200, 4800), []float64{200, 200}, []float64{0, 0.005}, testFS)
	require.NoError(t, err)
	assert.Equal(t, 4096, res.FFTSize)
	assert.Equal(t, [2]int{2, 2049}, res.Spectrogram.Shape())
}

func TestSampleRateSeedsDefaults(t *testing.T) {
	t.Parallel()

	w := newTestWorld(t, WithSampleRate(16000))
	assert.Equal(t, pipeline.DefaultOptions(16000), w.exports.Session().Options())

	text, err := w.About()
	require.NoError(t, err)
	assert.Contains(t, text, "fft_size: 1024")

	assert.Equal(t, 2048, newTestWorld(t).exports.Session().Options().CheapTrick.FFTSize)
}

func TestMetricsFollowAllocations(t *testing.T) {
	t.Parallel()

	m, err := memory.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	w := newTestWorld(t, WithMetrics(m))
	_, err = w.Dio(sine(200, 4800), testFS, 5, true)
	require.NoError(t, err)
	assert.Positive(t, w.Stats().Allocated)
	assertClean(t, w)
}
