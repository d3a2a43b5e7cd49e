package memory

import (
	"fmt"

	"github.com/RyanBlaney/sonido-world/channel"
)

// Buffer is a registered 1-D float64 allocation with a fixed length.
type Buffer struct {
	reg      *Registry
	handle   Handle
	length   int
	data     []float64
	released bool
}

// NewBuffer allocates a zeroed buffer of length values.
func (r *Registry) NewBuffer(length int) (*Buffer, error) {
	if length < 0 || length > MaxElements {
		return nil, fmt.Errorf("buffer of %d: %w", length, ErrInvalidLength)
	}
	b := &Buffer{reg: r, handle: r.reserve(), length: length}
	b.data = make([]float64, length)
	r.track(b)
	return b, nil
}

// BufferFrom allocates a buffer of length values and fills it from ch.
// On a failed transfer the buffer is released before returning.
func (r *Registry) BufferFrom(h channel.Host, ch channel.ID, length int) (*Buffer, error) {
	b, err := r.NewBuffer(length)
	if err != nil {
		return nil, err
	}
	if err := b.Read(h, ch); err != nil {
		_ = b.Release()
		return nil, err
	}
	return b, nil
}

func (b *Buffer) Handle() Handle { return b.handle }
func (b *Buffer) Kind() Kind     { return KindBuffer }
func (b *Buffer) Elements() int  { return b.length }

// Len returns the allocated length. It does not change after construction.
func (b *Buffer) Len() int { return b.length }

// Data returns the backing storage, or nil once released.
func (b *Buffer) Data() []float64 { return b.data }

// Released reports whether the storage has been freed.
func (b *Buffer) Released() bool { return b.released }

// Read fills the whole buffer from ch.
func (b *Buffer) Read(h channel.Host, ch channel.ID) error {
	return b.ReadN(h, ch, b.length)
}

// ReadN fills the first n values from ch.
func (b *Buffer) ReadN(h channel.Host, ch channel.ID, n int) error {
	if err := b.checkPrefix(n); err != nil {
		return err
	}
	return channel.Read(h, ch, b.data[:n])
}

// Write pushes the whole buffer to ch.
func (b *Buffer) Write(h channel.Host, ch channel.ID) error {
	return b.WriteN(h, ch, b.length)
}

// WriteN pushes the first n values to ch. Stages use it to send a few
// auxiliary scalars stored in the leading slots.
func (b *Buffer) WriteN(h channel.Host, ch channel.ID, n int) error {
	if err := b.checkPrefix(n); err != nil {
		return err
	}
	return channel.Write(h, ch, b.data[:n])
}

func (b *Buffer) checkPrefix(n int) error {
	if b.released {
		return fmt.Errorf("buffer %d: %w", b.handle, ErrReleased)
	}
	if n < 0 || n > b.length {
		return fmt.Errorf("prefix %d of buffer %d with length %d: %w", n, b.handle, b.length, ErrInvalidLength)
	}
	return nil
}

// Release frees the buffer through its registry. A second call returns ErrReleased.
func (b *Buffer) Release() error {
	if b.released {
		return fmt.Errorf("buffer %d: %w", b.handle, ErrReleased)
	}
	return b.reg.Release(b.handle)
}

func (b *Buffer) free() {
	b.data = nil
	b.released = true
}
