// Package bridge exposes a pipeline Session through a flat integer ABI.
//
// Every entry point takes plain numbers and returns an int: a size or handle
// on success, or a negative Status on failure. This is the only layer where
// errors are folded into numbers; hosts that can carry Go errors should call
// the Session directly.
package bridge

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-world/channel"
	"github.com/RyanBlaney/sonido-world/memory"
	"github.com/RyanBlaney/sonido-world/pipeline"
)

// Status codes returned by failing entry points.
const (
	StatusOK              = 0
	StatusInvalidArgument = -1
	StatusTransferFailed  = -2
	StatusUnknownHandle   = -3
	StatusIOFailed        = -4
)

// Status folds a stage error into its status code.
func Status(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, pipeline.ErrInvalidArgument):
		return StatusInvalidArgument
	case errors.Is(err, memory.ErrUnknownHandle):
		return StatusUnknownHandle
	case errors.Is(err, pipeline.ErrIO):
		return StatusIOFailed
	default:
		return StatusTransferFailed
	}
}

// StatusText names a status code.
func StatusText(code int) string {
	switch code {
	case StatusOK:
		return "ok"
	case StatusInvalidArgument:
		return "invalid argument"
	case StatusTransferFailed:
		return "transfer failed"
	case StatusUnknownHandle:
		return "unknown handle"
	case StatusIOFailed:
		return "i/o failed"
	default:
		if code > 0 {
			return "ok"
		}
		return fmt.Sprintf("status %d", code)
	}
}

// Exports is the entry point table of one session.
type Exports struct {
	session *pipeline.Session
}

// New wraps session.
func New(session *pipeline.Session) *Exports {
	return &Exports{session: session}
}

// NewWithHost builds a session on host with the given options and wraps it.
func NewWithHost(host channel.Host, opts ...pipeline.Option) *Exports {
	return New(pipeline.NewSession(host, opts...))
}

// Session returns the wrapped session.
func (e *Exports) Session() *pipeline.Session {
	return e.session
}

func value(n int, err error) int {
	if err != nil {
		return Status(err)
	}
	return n
}

// InitWorld resets the option records and returns the envelope FFT size.
func (e *Exports) InitWorld(fs int, f0Floor, f0Ceil float64) int {
	return value(e.session.Init(fs, f0Floor, f0Ceil))
}

// Dio runs the primary estimator; a non-zero withStoneMask refines the track.
func (e *Exports) Dio(xLength, fs int, framePeriod float64, withStoneMask int) int {
	_, err := e.session.Dio(xLength, fs, framePeriod, withStoneMask != 0)
	return Status(err)
}

// Harvest runs the secondary estimator.
func (e *Exports) Harvest(xLength, fs int, framePeriod float64, withStoneMask int) int {
	_, err := e.session.Harvest(xLength, fs, framePeriod, withStoneMask != 0)
	return Status(err)
}

// StoneMask refines the track on channel 2.
func (e *Exports) StoneMask(xLength, fs, f0Length int) int {
	return Status(e.session.StoneMask(xLength, fs, f0Length))
}

// CheapTrick extracts the spectral envelope and returns the FFT size used.
func (e *Exports) CheapTrick(xLength, fs, f0Length int) int {
	return value(e.session.CheapTrick(xLength, fs, f0Length))
}

// D4C extracts aperiodicity. fftSize <= 0 selects the current envelope size.
func (e *Exports) D4C(xLength, fs, f0Length, fftSize int) int {
	_, err := e.session.D4C(xLength, fs, f0Length, fftSize)
	return Status(err)
}

// Synthesis resynthesizes the waveform onto channel 0.
func (e *Exports) Synthesis(f0Length, fftSize, fs int, framePeriod float64) int {
	_, err := e.session.Synthesis(f0Length, fftSize, fs, framePeriod)
	return Status(err)
}

// WavReadLength returns the sample count of the audio file.
func (e *Exports) WavReadLength() int {
	return value(e.session.WavReadLength())
}

// WavRead decodes the audio file and returns its sample rate.
func (e *Exports) WavRead(xLength int) int {
	return value(e.session.WavRead(xLength))
}

// WavWrite encodes channel 0 into the audio file.
func (e *Exports) WavWrite(xLength, fs int) int {
	return Status(e.session.WavWrite(xLength, fs))
}

// GetInfo writes the library description to the stdout role.
func (e *Exports) GetInfo() int {
	return Status(e.session.Info())
}

// CreateFloat64Array registers a buffer and returns its handle.
func (e *Exports) CreateFloat64Array(length int) int {
	h, err := e.session.AllocateBuffer(length)
	return value(int(h), err)
}

// CreateFloat64Array2D registers an x by y grid and returns its handle.
func (e *Exports) CreateFloat64Array2D(x, y int) int {
	h, err := e.session.AllocateGrid(x, y)
	return value(int(h), err)
}

// Destruct releases the allocation behind handle.
func (e *Exports) Destruct(handle int) int {
	if handle <= 0 || uint64(handle) > uint64(^memory.Handle(0)) {
		return StatusUnknownHandle
	}
	return Status(e.session.Release(memory.Handle(handle)))
}
