package windowing

import (
	"fmt"
	"math"
)

// Kind selects the window shape.
type Kind int

const (
	KindHann Kind = iota
	KindBlackman
)

func (k Kind) String() string {
	switch k {
	case KindHann:
		return "hann"
	case KindBlackman:
		return "blackman"
	default:
		return "unknown"
	}
}

// Window holds symmetric or periodic coefficients of one window shape.
type Window struct {
	kind         Kind
	size         int
	symmetric    bool
	coefficients []float64
}

// New creates a window of the given shape and size.
func New(kind Kind, size int, symmetric bool) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}
	w := &Window{kind: kind, size: size, symmetric: symmetric}
	if err := w.generate(); err != nil {
		return nil, err
	}
	return w, nil
}

// generate fills the coefficients. A size-1 window is a single unit tap.
func (w *Window) generate() error {
	w.coefficients = make([]float64, w.size)
	if w.size == 1 {
		w.coefficients[0] = 1
		return nil
	}

	denominator := float64(w.size)
	if w.symmetric {
		denominator = float64(w.size - 1)
	}

	for i := range w.size {
		arg := 2 * math.Pi * float64(i) / denominator
		switch w.kind {
		case KindHann:
			w.coefficients[i] = 0.5 * (1.0 - math.Cos(arg))
		case KindBlackman:
			w.coefficients[i] = 0.42 - 0.5*math.Cos(arg) + 0.08*math.Cos(2*arg)
		default:
			return fmt.Errorf("%s window kind %d", w.kind, int(w.kind))
		}
	}
	return nil
}

// Coefficients returns the window taps. The slice must not be modified.
func (w *Window) Coefficients() []float64 {
	return w.coefficients
}

// Size returns the window size
func (w *Window) Size() int {
	return w.size
}
