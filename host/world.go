// Package host drives the bridge the way an embedding environment does. It
// owns the channel slots and the file roles, records every handle announced
// by the registrar during a call, and destructs whatever is still live once
// the call returns.
package host

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/RyanBlaney/sonido-world/bridge"
	"github.com/RyanBlaney/sonido-world/channel"
	"github.com/RyanBlaney/sonido-world/logging"
	"github.com/RyanBlaney/sonido-world/memory"
	"github.com/RyanBlaney/sonido-world/pipeline"
	"github.com/RyanBlaney/sonido-world/vfs"
)

var (
	// ErrInvalidNumber is returned when an entry point reports a negative status.
	ErrInvalidNumber = errors.New("host: invalid number")
	// ErrMismatchedFrames is returned when f0, spectrogram and aperiodicity
	// disagree on the frame count.
	ErrMismatchedFrames = errors.New("host: mismatched number of frames")
	// ErrMismatchedBins is returned when spectrogram and aperiodicity rows
	// differ in length.
	ErrMismatchedBins = errors.New("host: mismatched spectrum size")
	// ErrAudio is returned when the codec rejects a file. The message is the
	// text the bridge printed on stdout.
	ErrAudio = errors.New("host: audio file error")
)

// DefaultFramePeriod is used when a frame period of zero is passed.
const DefaultFramePeriod = 5.0

// DioResult is the output of a pitch estimator.
type DioResult struct {
	F0       []float64
	TimeAxis []float64
}

// CheapTrickResult is the output of envelope extraction.
type CheapTrickResult struct {
	FFTSize     int
	Spectrogram *channel.Matrix
}

// D4CResult is the output of aperiodicity extraction.
type D4CResult struct {
	Aperiodicity *channel.Matrix
}

// Result is the full analysis of a waveform.
type Result struct {
	DioResult
	CheapTrickResult
	D4CResult
}

// Audio is a decoded WAV file.
type Audio struct {
	X    []float64
	FS   int
	NBit int
}

// World owns one bridge instance.
type World struct {
	exports  *bridge.Exports
	ctx      *channel.Context
	files    *vfs.Table
	registry *memory.Registry
	logger   logging.Logger

	f0Floor float64
	f0Ceil  float64
	pending []memory.Handle
}

// Option configures a World.
type Option func(*config)

type config struct {
	logger     logging.Logger
	metrics    *memory.Metrics
	library    pipeline.Library
	f0Floor    float64
	f0Ceil     float64
	bitDepth   int
	sampleRate int
}

// WithLogger sets the logger passed to the session.
func WithLogger(l logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics records allocations in m.
func WithMetrics(m *memory.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithLibrary replaces the reference vocoder.
func WithLibrary(lib pipeline.Library) Option {
	return func(c *config) { c.library = lib }
}

// WithPitchRange is passed to every initialisation. Zero keeps the defaults.
func WithPitchRange(f0Floor, f0Ceil float64) Option {
	return func(c *config) {
		c.f0Floor = f0Floor
		c.f0Ceil = f0Ceil
	}
}

// WithSampleRate seeds the session defaults for fs. Zero keeps the library default.
func WithSampleRate(fs int) Option {
	return func(c *config) { c.sampleRate = fs }
}

// WithBitDepth sets the sample width of WavWrite output.
func WithBitDepth(bits int) Option {
	return func(c *config) { c.bitDepth = bits }
}

// New creates a World with its own channel slots, file table and registry.
func New(opts ...Option) *World {
	cfg := config{logger: logging.GetGlobalLogger(), bitDepth: 16}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &World{
		ctx:     channel.NewContext(),
		files:   vfs.NewTable(),
		logger:  cfg.logger.WithFields(logging.Fields{"component": "host"}),
		f0Floor: cfg.f0Floor,
		f0Ceil:  cfg.f0Ceil,
	}
	w.registry = memory.NewRegistry(memory.WithNotifier(w), memory.WithMetrics(cfg.metrics))

	sessionOpts := []pipeline.Option{
		pipeline.WithRegistry(w.registry),
		pipeline.WithFiles(w.files),
		pipeline.WithLogger(cfg.logger),
		pipeline.WithBitDepth(cfg.bitDepth),
		pipeline.WithSampleRate(cfg.sampleRate),
	}
	if cfg.library != nil {
		sessionOpts = append(sessionOpts, pipeline.WithLibrary(cfg.library))
	}
	w.exports = bridge.NewWithHost(w.ctx, sessionOpts...)
	return w
}

// ConstructNotify records a handle announced during a call.
func (w *World) ConstructNotify(h memory.Handle) {
	w.pending = append(w.pending, h)
}

// DestructNotify forgets a handle the bridge released on its own.
func (w *World) DestructNotify(h memory.Handle) {
	if i := slices.Index(w.pending, h); i >= 0 {
		w.pending = slices.Delete(w.pending, i, i+1)
	}
}

// Stats exposes the registry counters.
func (w *World) Stats() memory.Stats {
	return w.registry.Stats()
}

// destruct clears the slots and releases every handle still pending.
func (w *World) destruct() {
	w.ctx.Reset()
	handles := slices.Clone(w.pending)
	w.pending = w.pending[:0]
	for _, h := range handles {
		if status := w.exports.Destruct(int(h)); status != bridge.StatusOK {
			w.logger.Warn("destruct failed", logging.Fields{"handle": uint32(h), "status": bridge.StatusText(status)})
		}
	}
}

func (w *World) init(fs int) error {
	return check(w.exports.InitWorld(fs, w.f0Floor, w.f0Ceil))
}

func check(ret int) error {
	if ret < 0 {
		return fmt.Errorf("%w: %s (%d)", ErrInvalidNumber, bridge.StatusText(ret), ret)
	}
	return nil
}

func framePeriodOrDefault(framePeriod float64) float64 {
	if framePeriod == 0 {
		return DefaultFramePeriod
	}
	return framePeriod
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (w *World) estimate(x []float64, fs int, run func() int) (DioResult, error) {
	defer w.destruct()
	w.ctx.Set(channel.Waveform, x)
	if err := w.init(fs); err != nil {
		return DioResult{}, err
	}
	if err := check(run()); err != nil {
		return DioResult{}, err
	}
	f0, _ := w.ctx.Float64Array(channel.F0)
	timeAxis, _ := w.ctx.Float64Array(channel.TimeAxis)
	return DioResult{F0: f0, TimeAxis: timeAxis}, nil
}

// Dio runs the primary pitch estimator.
func (w *World) Dio(x []float64, fs int, framePeriod float64, withStoneMask bool) (DioResult, error) {
	framePeriod = framePeriodOrDefault(framePeriod)
	return w.estimate(x, fs, func() int {
		return w.exports.Dio(len(x), fs, framePeriod, boolInt(withStoneMask))
	})
}

// Harvest runs the secondary pitch estimator.
func (w *World) Harvest(x []float64, fs int, framePeriod float64, withStoneMask bool) (DioResult, error) {
	framePeriod = framePeriodOrDefault(framePeriod)
	return w.estimate(x, fs, func() int {
		return w.exports.Harvest(len(x), fs, framePeriod, boolInt(withStoneMask))
	})
}

func (w *World) setAnalysisInputs(x, f0, timeAxis []float64) {
	w.ctx.Set(channel.Waveform, x)
	w.ctx.Set(channel.TimeAxis, timeAxis)
	w.ctx.Set(channel.F0, f0)
}

// StoneMask refines f0.
func (w *World) StoneMask(x, f0, timeAxis []float64, fs int) ([]float64, error) {
	defer w.destruct()
	w.setAnalysisInputs(x, f0, timeAxis)
	if err := check(w.exports.StoneMask(len(x), fs, len(f0))); err != nil {
		return nil, err
	}
	refined, _ := w.ctx.Float64Array(channel.F0)
	return refined, nil
}

// CheapTrick extracts the spectral envelope.
func (w *World) CheapTrick(x, f0, timeAxis []float64, fs int) (CheapTrickResult, error) {
	defer w.destruct()
	w.setAnalysisInputs(x, f0, timeAxis)
	if err := w.init(fs); err != nil {
		return CheapTrickResult{}, err
	}
	fftSize := w.exports.CheapTrick(len(x), fs, len(f0))
	if err := check(fftSize); err != nil {
		return CheapTrickResult{}, err
	}
	sp, _ := w.ctx.Matrix(channel.Spectrogram)
	return CheapTrickResult{FFTSize: fftSize, Spectrogram: sp}, nil
}

// D4C extracts aperiodicity. fftSize 0 selects the envelope size for fs.
func (w *World) D4C(x, f0, timeAxis []float64, fs, fftSize int) (D4CResult, error) {
	defer w.destruct()
	w.setAnalysisInputs(x, f0, timeAxis)
	if err := w.init(fs); err != nil {
		return D4CResult{}, err
	}
	if err := check(w.exports.D4C(len(x), fs, len(f0), fftSize)); err != nil {
		return D4CResult{}, err
	}
	ap, _ := w.ctx.Matrix(channel.Aperiodicity)
	return D4CResult{Aperiodicity: ap}, nil
}

// Wav2World runs Dio, StoneMask, CheapTrick and D4C in order.
func (w *World) Wav2World(x []float64, fs int, framePeriod float64) (Result, error) {
	pitch, err := w.Dio(x, fs, framePeriod, false)
	if err != nil {
		return Result{}, fmt.Errorf("dio: %w", err)
	}
	f0, err := w.StoneMask(x, pitch.F0, pitch.TimeAxis, fs)
	if err != nil {
		return Result{}, fmt.Errorf("stonemask: %w", err)
	}
	envelope, err := w.CheapTrick(x, f0, pitch.TimeAxis, fs)
	if err != nil {
		return Result{}, fmt.Errorf("cheaptrick: %w", err)
	}
	ap, err := w.D4C(x, f0, pitch.TimeAxis, fs, 0)
	if err != nil {
		return Result{}, fmt.Errorf("d4c: %w", err)
	}
	return Result{
		DioResult:        DioResult{F0: f0, TimeAxis: pitch.TimeAxis},
		CheapTrickResult: envelope,
		D4CResult:        ap,
	}, nil
}

// Synthesis resynthesizes a waveform. The FFT size is derived from the row
// length of the spectrogram.
func (w *World) Synthesis(f0 []float64, spectrogram, aperiodicity *channel.Matrix, fs int, framePeriod float64) ([]float64, error) {
	if spectrogram == nil || aperiodicity == nil {
		return nil, fmt.Errorf("missing spectrogram or aperiodicity: %w", ErrMismatchedFrames)
	}
	if len(f0) != spectrogram.Rows || len(f0) != aperiodicity.Rows {
		return nil, fmt.Errorf("f0 (%d), spectrogram (%d) and aperiodicity (%d): %w",
			len(f0), spectrogram.Rows, aperiodicity.Rows, ErrMismatchedFrames)
	}
	if spectrogram.Cols != aperiodicity.Cols {
		return nil, fmt.Errorf("spectrogram (%d) and aperiodicity (%d): %w",
			spectrogram.Cols, aperiodicity.Cols, ErrMismatchedBins)
	}

	defer w.destruct()
	w.ctx.Set(channel.F0, f0)
	w.ctx.SetMatrix(channel.Spectrogram, spectrogram)
	w.ctx.SetMatrix(channel.Aperiodicity, aperiodicity)
	fftSize := (spectrogram.Cols - 1) * 2
	if err := check(w.exports.Synthesis(len(f0), fftSize, fs, framePeriodOrDefault(framePeriod))); err != nil {
		return nil, err
	}
	y, _ := w.ctx.Float64Array(channel.Waveform)
	return y, nil
}

// stdoutError turns the bridge's stdout text into an ErrAudio.
func (w *World) stdoutError() error {
	out, err := w.files.Drain(vfs.RoleStdout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAudio, err)
	}
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Errorf("%w: %s", ErrAudio, msg)
}

// WavRead decodes a WAV file.
func (w *World) WavRead(data []byte) (Audio, error) {
	defer w.destruct()
	if _, err := w.files.Drain(vfs.RoleStdout); err != nil {
		return Audio{}, err
	}
	if err := w.files.WriteFile(vfs.RoleAudio, data); err != nil {
		return Audio{}, err
	}

	if xLength := w.exports.WavReadLength(); xLength > 0 {
		if fs := w.exports.WavRead(xLength); fs > 0 {
			x, _ := w.ctx.Float64Array(channel.Waveform)
			meta, _ := w.ctx.Float64Array(channel.TimeAxis)
			audio := Audio{X: x, FS: fs}
			if len(meta) > 1 {
				audio.NBit = int(meta[1])
			}
			return audio, nil
		}
	}
	return Audio{}, w.stdoutError()
}

// WavWrite encodes x as a mono WAV file.
func (w *World) WavWrite(x []float64, fs int) ([]byte, error) {
	defer w.destruct()
	if _, err := w.files.Drain(vfs.RoleStdout); err != nil {
		return nil, err
	}
	if err := w.files.WriteFile(vfs.RoleAudio, nil); err != nil {
		return nil, err
	}
	w.ctx.Set(channel.Waveform, x)

	if status := w.exports.WavWrite(len(x), fs); status == bridge.StatusInvalidArgument {
		return nil, check(status)
	}
	data, err := w.files.ReadFile(vfs.RoleAudio)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		return data, nil
	}
	return nil, w.stdoutError()
}

// About returns the library description.
func (w *World) About() (string, error) {
	defer w.destruct()
	if _, err := w.files.Drain(vfs.RoleStdout); err != nil {
		return "", err
	}
	if err := check(w.exports.GetInfo()); err != nil {
		return "", err
	}
	out, err := w.files.Drain(vfs.RoleStdout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
