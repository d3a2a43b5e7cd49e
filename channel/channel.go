// Package channel moves numeric buffers between the bridge and its host.
//
// A channel is a numbered transfer slot, not a file: the host decides where the
// values live. The adapter functions in this package never allocate; every
// transfer targets a buffer whose length is supplied by the caller.
package channel

import (
	"errors"
	"fmt"
)

// ID names a host-side transfer slot.
type ID int

// Channel numbering shared with the host. No header is transmitted; both sides
// must agree on the layout of every slot.
const (
	Waveform     ID = 0 // primary waveform in / out
	TimeAxis     ID = 1 // frame time-stamps in seconds
	F0           ID = 2 // pitch track
	Spectrogram  ID = 3 // spectral envelope grid
	Aperiodicity ID = 4 // aperiodicity grid

	// Count is the number of slots a host must provide.
	Count = 5
)

var (
	// ErrInvalidChannel is returned for channel numbers outside [0, Count).
	ErrInvalidChannel = errors.New("channel: invalid channel")
	// ErrEmptySlot is returned when reading a slot the host never filled.
	ErrEmptySlot = errors.New("channel: slot is empty")
	// ErrShapeMismatch is returned when the host value does not fit the destination.
	ErrShapeMismatch = errors.New("channel: shape mismatch")
)

func (id ID) String() string {
	switch id {
	case Waveform:
		return "waveform"
	case TimeAxis:
		return "time_axis"
	case F0:
		return "f0"
	case Spectrogram:
		return "spectrogram"
	case Aperiodicity:
		return "aperiodicity"
	default:
		return fmt.Sprintf("channel(%d)", int(id))
	}
}

// Valid reports whether id is one of the numbered slots.
func (id ID) Valid() bool {
	return id >= 0 && id < Count
}

// Host is the transfer contract the bridge expects from its embedding
// environment. Every call is synchronous: it returns once the values have been
// copied. dst and src are owned by the caller and are never retained.
type Host interface {
	ReadFloat64Array(ch ID, dst []float64) error
	WriteFloat64Array(ch ID, src []float64) error
	ReadFloat64Array2D(ch ID, dst [][]float64) error
	WriteFloat64Array2D(ch ID, src [][]float64) error
}

// Read fills dst from ch.
func Read(h Host, ch ID, dst []float64) error {
	if !ch.Valid() {
		return fmt.Errorf("read %s: %w", ch, ErrInvalidChannel)
	}
	if err := h.ReadFloat64Array(ch, dst); err != nil {
		return fmt.Errorf("read %s[%d]: %w", ch, len(dst), err)
	}
	return nil
}

// Write pushes src to ch.
func Write(h Host, ch ID, src []float64) error {
	if !ch.Valid() {
		return fmt.Errorf("write %s: %w", ch, ErrInvalidChannel)
	}
	if err := h.WriteFloat64Array(ch, src); err != nil {
		return fmt.Errorf("write %s[%d]: %w", ch, len(src), err)
	}
	return nil
}

// Read2D fills every row of dst from ch.
func Read2D(h Host, ch ID, dst [][]float64) error {
	if !ch.Valid() {
		return fmt.Errorf("read %s: %w", ch, ErrInvalidChannel)
	}
	if err := h.ReadFloat64Array2D(ch, dst); err != nil {
		return fmt.Errorf("read %s[%d][%d]: %w", ch, len(dst), rowLen(dst), err)
	}
	return nil
}

// Write2D pushes every row of src to ch.
func Write2D(h Host, ch ID, src [][]float64) error {
	if !ch.Valid() {
		return fmt.Errorf("write %s: %w", ch, ErrInvalidChannel)
	}
	if err := h.WriteFloat64Array2D(ch, src); err != nil {
		return fmt.Errorf("write %s[%d][%d]: %w", ch, len(src), rowLen(src), err)
	}
	return nil
}

func rowLen(rows [][]float64) int {
	if len(rows) == 0 {
		return 0
	}
	return len(rows[0])
}
