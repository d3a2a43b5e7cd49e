package channel

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DTypeFloat64 is the only element type the bridge transfers.
const DTypeFloat64 = "float64"

// Matrix is a host-side row-major 2-D value backed by one flat slice.
// Rows are views into Data, so writing through Row mutates the matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

// Packed is the serialised form of a Matrix for hosts that move grids as bytes.
type Packed struct {
	Shape  []int  `json:"shape"`
	DType  string `json:"dtype"`
	Buffer []byte `json:"buffer"`
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("channel: negative matrix shape %dx%d", rows, cols))
	}
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// MatrixFromRows copies rows into a new matrix. All rows must share one length.
func MatrixFromRows(rows [][]float64) (*Matrix, error) {
	m := NewMatrix(len(rows), rowLen(rows))
	for i, row := range rows {
		if len(row) != m.Cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), m.Cols, ErrShapeMismatch)
		}
		copy(m.Row(i), row)
	}
	return m, nil
}

// Row returns a view of row i.
func (m *Matrix) Row(i int) []float64 {
	return m.Data[i*m.Cols : (i+1)*m.Cols : (i+1)*m.Cols]
}

// Shape returns [rows, cols].
func (m *Matrix) Shape() [2]int {
	return [2]int{m.Rows, m.Cols}
}

// Pack serialises the matrix as little-endian float64 bytes.
func (m *Matrix) Pack() Packed {
	buf := make([]byte, 8*len(m.Data))
	for i, v := range m.Data {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return Packed{Shape: []int{m.Rows, m.Cols}, DType: DTypeFloat64, Buffer: buf}
}

// Unpack rebuilds a matrix from its packed form. The shape is checked
// against the buffer length before anything is allocated.
func Unpack(p Packed) (*Matrix, error) {
	if p.DType != DTypeFloat64 {
		return nil, fmt.Errorf("unpack dtype %q: %w", p.DType, ErrShapeMismatch)
	}
	if len(p.Shape) != 2 || p.Shape[0] < 0 || p.Shape[1] < 0 {
		return nil, fmt.Errorf("unpack shape %v: %w", p.Shape, ErrShapeMismatch)
	}
	rows, cols := p.Shape[0], p.Shape[1]
	if cols > 0 && rows > math.MaxInt/8/cols {
		return nil, fmt.Errorf("unpack shape %v overflows: %w", p.Shape, ErrShapeMismatch)
	}
	if len(p.Buffer) != 8*rows*cols {
		return nil, fmt.Errorf("unpack %d bytes for shape %v: %w", len(p.Buffer), p.Shape, ErrShapeMismatch)
	}
	m := NewMatrix(rows, cols)
	for i := range m.Data {
		m.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(p.Buffer[8*i:]))
	}
	return m, nil
}

// wellFormed reports whether Data holds exactly Rows*Cols values.
func (m *Matrix) wellFormed() bool {
	if m.Rows < 0 || m.Cols < 0 {
		return false
	}
	if m.Cols == 0 {
		return len(m.Data) == 0
	}
	return len(m.Data)%m.Cols == 0 && len(m.Data)/m.Cols == m.Rows
}
