// Package filter provides the fixed-window smoothing primitives of the
// retrieval: a Savitzky-Golay smoother and a gliding-average filter that
// also estimates the per-window noise. Both operate on flat []float64
// sequences and never modify their input.
package filter
