package filter

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// GlidingAverage slides a window of width samples across data in steps of
// width/2 and returns the mean and sample standard deviation of each
// window. Window w covers data[w*h : w*h+width] with h = width/2, and
// windows are emitted while their centre index stays below len(data)-h.
func GlidingAverage(data []float64, width int) (mean, stddev []float64, err error) {
	if width < 2 {
		return nil, nil, fmt.Errorf("gliding average: width %d must be at least 2", width)
	}
	half := width / 2
	for i := half; i < len(data)-half; i += half {
		lo := i - half
		hi := min(lo+width, len(data))
		m, s := stat.MeanStdDev(data[lo:hi], nil)
		mean = append(mean, m)
		stddev = append(stddev, s)
	}
	if len(mean) == 0 {
		return nil, nil, fmt.Errorf("gliding average: %d samples too few for width %d", len(data), width)
	}
	return mean, stddev, nil
}
