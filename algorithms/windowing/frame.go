package windowing

// Segment copies len(w) samples of x centered on index center and multiplies
// them by the window. Samples outside x read as zero.
func (w *Window) Segment(x []float64, center int) []float64 {
	frame := make([]float64, w.size)
	start := center - w.size/2
	for i := range frame {
		j := start + i
		if j < 0 || j >= len(x) {
			continue
		}
		frame[i] = x[j] * w.coefficients[i]
	}
	return frame
}

// Extract copies size samples of x centered on index center without weighting.
// Samples outside x read as zero.
func Extract(x []float64, center, size int) []float64 {
	frame := make([]float64, size)
	start := center - size/2
	for i := range frame {
		j := start + i
		if j >= 0 && j < len(x) {
			frame[i] = x[j]
		}
	}
	return frame
}
