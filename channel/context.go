package channel

import "fmt"

// TransferStats counts completed transfers in each direction.
type TransferStats struct {
	Reads  int
	Writes int
}

// Context is an in-process Host: one slot per channel, holding either a flat
// []float64 or a *Matrix. Hosts embedding the bridge in the same process (the
// CLI, tests) use it directly; it is not safe for concurrent use.
type Context struct {
	slots [Count]any
	stats TransferStats
}

// NewContext returns a context with every slot empty.
func NewContext() *Context {
	return &Context{}
}

// Reset empties every slot. Transfer counters are kept.
func (c *Context) Reset() {
	c.slots = [Count]any{}
}

// Set places a 1-D value in ch. The slice is stored as given. Out-of-range
// channels are ignored.
func (c *Context) Set(ch ID, values []float64) {
	if ch.Valid() {
		c.slots[ch] = values
	}
}

// SetMatrix places a 2-D value in ch. Out-of-range channels are ignored.
func (c *Context) SetMatrix(ch ID, m *Matrix) {
	if ch.Valid() {
		c.slots[ch] = m
	}
}

// Float64Array returns the 1-D value in ch.
func (c *Context) Float64Array(ch ID) ([]float64, bool) {
	if !ch.Valid() {
		return nil, false
	}
	v, ok := c.slots[ch].([]float64)
	return v, ok
}

// Matrix returns the 2-D value in ch.
func (c *Context) Matrix(ch ID) (*Matrix, bool) {
	if !ch.Valid() {
		return nil, false
	}
	m, ok := c.slots[ch].(*Matrix)
	return m, ok && m != nil
}

// Stats returns the transfer counters.
func (c *Context) Stats() TransferStats {
	return c.stats
}

// ReadFloat64Array copies the slot into dst. A shorter slot fills a prefix.
func (c *Context) ReadFloat64Array(ch ID, dst []float64) error {
	if !ch.Valid() {
		return ErrInvalidChannel
	}
	src, ok := c.slots[ch].([]float64)
	if !ok {
		return ErrEmptySlot
	}
	if len(src) > len(dst) {
		return fmt.Errorf("slot holds %d values, destination %d: %w", len(src), len(dst), ErrShapeMismatch)
	}
	copy(dst, src)
	c.stats.Reads++
	return nil
}

// WriteFloat64Array replaces the slot with a copy of src.
func (c *Context) WriteFloat64Array(ch ID, src []float64) error {
	if !ch.Valid() {
		return ErrInvalidChannel
	}
	buf := make([]float64, len(src))
	copy(buf, src)
	c.slots[ch] = buf
	c.stats.Writes++
	return nil
}

// ReadFloat64Array2D copies the slot's rows into dst.
func (c *Context) ReadFloat64Array2D(ch ID, dst [][]float64) error {
	if !ch.Valid() {
		return ErrInvalidChannel
	}
	m, ok := c.Matrix(ch)
	if !ok {
		return ErrEmptySlot
	}
	if !m.wellFormed() {
		return fmt.Errorf("slot holds %d values for shape %v: %w", len(m.Data), m.Shape(), ErrShapeMismatch)
	}
	if m.Rows < len(dst) {
		return fmt.Errorf("slot holds %d rows, destination %d: %w", m.Rows, len(dst), ErrShapeMismatch)
	}
	for i, row := range dst {
		if m.Cols > len(row) {
			return fmt.Errorf("slot holds %d columns, destination row %d has %d: %w", m.Cols, i, len(row), ErrShapeMismatch)
		}
	}
	for i, row := range dst {
		copy(row, m.Row(i))
	}
	c.stats.Reads++
	return nil
}

// WriteFloat64Array2D replaces the slot with a matrix copied from src.
func (c *Context) WriteFloat64Array2D(ch ID, src [][]float64) error {
	if !ch.Valid() {
		return ErrInvalidChannel
	}
	m, err := MatrixFromRows(src)
	if err != nil {
		return err
	}
	c.slots[ch] = m
	c.stats.Writes++
	return nil
}
