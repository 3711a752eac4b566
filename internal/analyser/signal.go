package analyser

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/atmolidar/internal/filter"
)

// Savitzky-Golay window applied to the range-corrected power.
const (
	sgLeft  = 10
	sgRight = 10
	sgOrder = 3
)

// checkQuality reports whether the trace carries the negative calibration
// spike: its minimum must lie strictly below thr.
func checkQuality(signal []float64, thr float64) (minimum float64, ok bool) {
	minimum = floats.Min(signal)
	return minimum, minimum < thr
}

// background estimates the sky background from samples whose height falls
// in [bkgMin, bkgMax]. The returned window holds those samples unscaled;
// the estimate is their mean times fudge. An empty window yields zero.
func background(signal []float64, g Geometry, bkgMin, bkgMax, fudge float64) (value float64, window []float64) {
	for i, h := range g.Height {
		if h >= bkgMin && h <= bkgMax {
			window = append(window, signal[i])
		}
	}
	if len(window) == 0 {
		return 0, nil
	}
	return stat.Mean(window, nil) * fudge, window
}

// reduceSignal subtracts the background over the working window. The
// magnitude is kept so inverted polarity traces stay positive.
func reduceSignal(signal []float64, g Geometry, bkg float64) []float64 {
	out := make([]float64, g.N())
	for i := range out {
		out[i] = math.Abs(signal[g.MinIndex+i] - bkg)
	}
	return out
}

// rangeCorrect returns reduced * r^2 / overlap(h) where r is the slant
// range of each working-window sample.
func rangeCorrect(reduced []float64, g Geometry, overlapAt func(float64) float64) []float64 {
	alt := g.Altitude()
	out := make([]float64, len(reduced))
	for i, s := range reduced {
		r := alt[i] / g.CosTheta
		out[i] = s * r * r / overlapAt(alt[i])
	}
	return out
}

func smooth(power []float64) ([]float64, error) {
	return filter.SavitzkyGolay(power, sgLeft, sgRight, sgOrder)
}
