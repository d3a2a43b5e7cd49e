package bridge

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-world/channel"
	"github.com/RyanBlaney/sonido-world/logging"
	"github.com/RyanBlaney/sonido-world/memory"
	"github.com/RyanBlaney/sonido-world/pipeline"
	"github.com/RyanBlaney/sonido-world/vfs"
)

func newExports(t *testing.T) (*Exports, *channel.Context) {
	t.Helper()
	ctx := channel.NewContext()
	return NewWithHost(ctx, pipeline.WithLogger(&logging.NoOpLogger{})), ctx
}

func sine(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*200*float64(i)/48000)
	}
	return x
}

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{nil, StatusOK},
		{fmt.Errorf("dio: %w", pipeline.ErrInvalidArgument), StatusInvalidArgument},
		{fmt.Errorf("release: %w", memory.ErrUnknownHandle), StatusUnknownHandle},
		{fmt.Errorf("wavread: %w", pipeline.ErrIO), StatusIOFailed},
		{channel.ErrEmptySlot, StatusTransferFailed},
		{errors.New("anything else"), StatusTransferFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), "%v", tt.err)
	}
	assert.Equal(t, "unknown handle", StatusText(StatusUnknownHandle))
	assert.Equal(t, "ok", StatusText(2048))
	assert.Equal(t, "status -9", StatusText(-9))
}

func TestPipelineThroughCall(t *testing.T) {
	t.Parallel()

	e, ctx := newExports(t)
	ctx.Set(channel.Waveform, sine(4800))

	fftSize, err := e.Call("_init", 48000, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2048, fftSize)

	status, err := e.Call("_dio", 4800, 48000, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	f0, _ := ctx.Float64Array(channel.F0)
	require.Len(t, f0, 21)

	got, err := e.Call("_cheaptrick", 4800, 48000, 21)
	require.NoError(t, err)
	assert.Equal(t, fftSize, got)

	status, err = e.Call("_d4c", 4800, 48000, 21, float64(fftSize))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)

	status, err = e.Call("_synthesis", 21, float64(fftSize), 48000, 5)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	y, _ := ctx.Float64Array(channel.Waveform)
	assert.Len(t, y, 4801)

	assert.Zero(t, e.Session().Registry().Stats().Live)
}

func TestInvalidArgumentsReturnSentinel(t *testing.T) {
	t.Parallel()

	e, ctx := newExports(t)
	assert.Equal(t, StatusInvalidArgument, e.InitWorld(0, 0, 0))
	assert.Equal(t, StatusInvalidArgument, e.Dio(-4800, 48000, 5, 0))
	assert.Equal(t, StatusInvalidArgument, e.Harvest(4800, 48000, 0, 0))
	assert.Equal(t, StatusInvalidArgument, e.StoneMask(4800, 0, 21))
	assert.Equal(t, StatusInvalidArgument, e.CheapTrick(4800, 48000, -21))
	assert.Equal(t, StatusInvalidArgument, e.D4C(0, 48000, 21, 2048))
	assert.Equal(t, StatusInvalidArgument, e.Synthesis(21, 2048, 48000, -5))
	assert.Equal(t, StatusInvalidArgument, e.WavRead(-1))
	assert.Equal(t, StatusInvalidArgument, e.WavWrite(10, 0))
	assert.Equal(t, StatusInvalidArgument, e.CreateFloat64Array(-1))
	assert.Equal(t, StatusInvalidArgument, e.CreateFloat64Array2D(4, 1<<62))
	assert.Equal(t, StatusInvalidArgument, e.Synthesis(21, 2048, 48000, 1e300))
	assert.Equal(t, StatusInvalidArgument, e.Synthesis(21, 2048, 48000, 1e9))
	assert.Equal(t, channel.TransferStats{}, ctx.Stats())
	assert.Zero(t, e.Session().Registry().Stats().Allocated)
}

func TestTransferFailure(t *testing.T) {
	t.Parallel()

	e, _ := newExports(t)
	assert.Equal(t, StatusTransferFailed, e.Dio(4800, 48000, 5, 0))
	assert.Equal(t, StatusTransferFailed, e.Synthesis(21, 2048, 48000, 5))
	assert.Zero(t, e.Session().Registry().Stats().Live)
}

func TestCreateAndDestruct(t *testing.T) {
	t.Parallel()

	e, _ := newExports(t)
	a := e.CreateFloat64Array(10)
	b := e.CreateFloat64Array2D(3, 4)
	assert.Positive(t, a)
	assert.Greater(t, b, a)

	assert.Equal(t, StatusOK, e.Destruct(a))
	assert.Equal(t, StatusUnknownHandle, e.Destruct(a), "double destruct")
	assert.Equal(t, StatusUnknownHandle, e.Destruct(0))
	assert.Equal(t, StatusUnknownHandle, e.Destruct(-7))
	assert.Equal(t, StatusUnknownHandle, e.Destruct(b+100), "never constructed")
	assert.Equal(t, StatusOK, e.Destruct(b))
	assert.Zero(t, e.Session().Registry().Stats().Live)
}

func TestWavEntryPoints(t *testing.T) {
	t.Parallel()

	e, ctx := newExports(t)
	assert.Equal(t, StatusIOFailed, e.WavReadLength())

	ctx.Set(channel.Waveform, sine(480))
	assert.Equal(t, StatusOK, e.WavWrite(480, 48000))
	assert.Equal(t, 480, e.WavReadLength())
	assert.Equal(t, 48000, e.WavRead(480))
	header, _ := ctx.Float64Array(channel.TimeAxis)
	assert.Equal(t, []float64{48000, 16}, header)

	assert.Equal(t, StatusOK, e.GetInfo())
	out, err := e.Session().Files().Drain(vfs.RoleStdout)
	require.NoError(t, err)
	assert.Contains(t, string(out), pipeline.Name)
}

func TestCallErrors(t *testing.T) {
	t.Parallel()

	e, _ := newExports(t)
	_, err := e.Call("_nope")
	assert.ErrorIs(t, err, ErrUnknownExport)
	_, err = e.Call("_init", 48000)
	assert.ErrorIs(t, err, ErrArity)

	names := Names()
	assert.Contains(t, names, "_dio")
	assert.Contains(t, names, "destruct")
	assert.IsNonDecreasing(t, names)
}
