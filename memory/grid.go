package memory

import (
	"fmt"

	"github.com/RyanBlaney/sonido-world/channel"
)

// Grid is a registered width x height allocation: width rows of height values
// each. Rows are views into one contiguous block, so every row has the same
// length by construction.
type Grid struct {
	reg      *Registry
	handle   Handle
	width    int
	height   int
	data     []float64
	rows     [][]float64
	released bool
}

// NewGrid allocates a zeroed grid. The shape is checked before a handle is issued.
func (r *Registry) NewGrid(width, height int) (*Grid, error) {
	if width < 0 || height < 0 || (height > 0 && width > MaxElements/height) {
		return nil, fmt.Errorf("grid of %dx%d: %w", width, height, ErrInvalidLength)
	}
	g := &Grid{reg: r, handle: r.reserve(), width: width, height: height}
	g.data = make([]float64, width*height)
	g.rows = make([][]float64, width)
	for i := range g.rows {
		g.rows[i] = g.data[i*height : (i+1)*height : (i+1)*height]
	}
	r.track(g)
	return g, nil
}

// GridFrom allocates a grid and fills it from ch.
// On a failed transfer the grid is released before returning.
func (r *Registry) GridFrom(h channel.Host, ch channel.ID, width, height int) (*Grid, error) {
	g, err := r.NewGrid(width, height)
	if err != nil {
		return nil, err
	}
	if err := g.Read(h, ch); err != nil {
		_ = g.Release()
		return nil, err
	}
	return g, nil
}

func (g *Grid) Handle() Handle { return g.handle }
func (g *Grid) Kind() Kind     { return KindGrid }
func (g *Grid) Elements() int  { return g.width * g.height }

// Width is the row count.
func (g *Grid) Width() int { return g.width }

// Height is the length of every row.
func (g *Grid) Height() int { return g.height }

// Rows returns the row views, or nil once released.
func (g *Grid) Rows() [][]float64 { return g.rows }

// Released reports whether the storage has been freed.
func (g *Grid) Released() bool { return g.released }

// Read fills every row from ch.
func (g *Grid) Read(h channel.Host, ch channel.ID) error {
	return g.ReadN(h, ch, g.width)
}

// ReadN fills the first n rows from ch.
func (g *Grid) ReadN(h channel.Host, ch channel.ID, n int) error {
	if err := g.checkPrefix(n); err != nil {
		return err
	}
	return channel.Read2D(h, ch, g.rows[:n])
}

// Write pushes every row to ch.
func (g *Grid) Write(h channel.Host, ch channel.ID) error {
	return g.WriteN(h, ch, g.width)
}

// WriteN pushes the first n rows to ch.
func (g *Grid) WriteN(h channel.Host, ch channel.ID, n int) error {
	if err := g.checkPrefix(n); err != nil {
		return err
	}
	return channel.Write2D(h, ch, g.rows[:n])
}

func (g *Grid) checkPrefix(n int) error {
	if g.released {
		return fmt.Errorf("grid %d: %w", g.handle, ErrReleased)
	}
	if n < 0 || n > g.width {
		return fmt.Errorf("prefix %d of grid %d with width %d: %w", n, g.handle, g.width, ErrInvalidLength)
	}
	return nil
}

// Release frees the grid through its registry. A second call returns ErrReleased.
func (g *Grid) Release() error {
	if g.released {
		return fmt.Errorf("grid %d: %w", g.handle, ErrReleased)
	}
	return g.reg.Release(g.handle)
}

func (g *Grid) free() {
	g.data = nil
	g.rows = nil
	g.released = true
}
