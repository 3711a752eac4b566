package analyser

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogBinning(t *testing.T) {
	b := logBinning(800, 10000, 100)
	require.Len(t, b.Edges, 101)
	require.Len(t, b.Centers, 100)
	assert.Equal(t, 800.0, b.Edges[0])
	assert.Equal(t, 10000.0, b.Edges[100])
	ratio := b.Edges[1] / b.Edges[0]
	for i := 1; i < len(b.Edges); i++ {
		assert.InDelta(t, ratio, b.Edges[i]/b.Edges[i-1], 1e-9)
	}
	for i, c := range b.Centers {
		assert.InDelta(t, (b.Edges[i]+b.Edges[i+1])/2, c, 1e-9)
	}
	assert.False(t, b.Gliding)
}

func TestRebinLogIsBinMean(t *testing.T) {
	b := logBinning(800, 10000, 20)
	var alt, power []float64
	for h := 700.0; h <= 10100; h += 7.3 {
		alt = append(alt, h)
		power = append(power, math.Sqrt(h)+math.Sin(h))
	}
	binned, empty := rebinLog(alt, power, b)
	require.Len(t, binned, 20)
	assert.Zero(t, empty)

	for k := 0; k < 20; k++ {
		sum, n := 0.0, 0
		for i, h := range alt {
			in := h >= b.Edges[k] && h < b.Edges[k+1]
			if k == 19 {
				in = h >= b.Edges[k] && h <= b.Edges[k+1]
			}
			if in {
				sum += power[i]
				n++
			}
		}
		require.NotZero(t, n, "bin %d", k)
		assert.InDelta(t, sum/float64(n), binned[k], 1e-12, "bin %d", k)
	}
}

func TestRebinLogBoundaries(t *testing.T) {
	b := Binning{Edges: []float64{0, 10, 20}, Centers: []float64{5, 15}}
	binned, empty := rebinLog([]float64{0, 10, 20, 25}, []float64{1, 2, 4, 100}, b)
	assert.Zero(t, empty)
	assert.Equal(t, []float64{1, 3}, binned, "edge 10 opens the second bin, 20 closes it, 25 ignored")
}

func TestRebinLogEmptyBins(t *testing.T) {
	b := logBinning(100, 1000, 10)
	binned, empty := rebinLog([]float64{100, 1000}, []float64{1, 2}, b)
	assert.Equal(t, 8, empty)
	assert.Equal(t, 1.0, binned[0])
	assert.Equal(t, 2.0, binned[9])
	assert.Zero(t, binned[5])
}

func TestGlidingBinning(t *testing.T) {
	alt := make([]float64, 101)
	for i := range alt {
		alt[i] = 1000 + 10*float64(i)
	}
	// (2000-1000)/10 bins over 10 m spacing -> 10 samples per bin, width 20.
	b, err := glidingBinning(alt, 1000, 2000, 10)
	require.NoError(t, err)
	assert.True(t, b.Gliding)
	assert.Equal(t, 20, b.Width)
	// Windows start every 10 samples while the centre stays below 91.
	require.Equal(t, 9, b.NBins())
	assert.InDelta(t, 1095, b.Centers[0], 1e-9)
	for i := 1; i < b.NBins(); i++ {
		assert.InDelta(t, (b.Centers[i-1]+b.Centers[i])/2, b.Edges[i], 1e-9)
	}
	assert.InDelta(t, b.Centers[0]-50, b.Edges[0], 1e-9)
	assert.InDelta(t, b.Centers[8]+50, b.Edges[9], 1e-9)

	power := make([]float64, len(alt))
	for i := range power {
		power[i] = float64(i % 2)
	}
	mean, dev, err := rebinGliding(power, b)
	require.NoError(t, err)
	require.Len(t, mean, 9)
	require.Len(t, dev, 9)
	assert.InDelta(t, 0.5, mean[0], 1e-12)
	assert.Greater(t, dev[0], 0.0)
}

func TestGlidingBinningTooFewSamples(t *testing.T) {
	_, err := glidingBinning([]float64{1, 2, 3}, 0, 300, 1)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
