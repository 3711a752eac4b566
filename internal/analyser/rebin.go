package analyser

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/atmolidar/internal/filter"
)

// Binning is the altitude grid shared by every wavelength of one pass.
type Binning struct {
	// Edges has one more element than Centers (m above the instrument).
	Edges   []float64
	Centers []float64
	// Gliding is set when the grid came from the gliding-average filter;
	// only then are per-bin deviations available.
	Gliding bool
	// Width is the gliding window in samples, zero for log bins.
	Width int
}

// NBins returns the number of bins.
func (b Binning) NBins() int { return len(b.Centers) }

// logBinning returns nbins logarithmically spaced bins spanning
// [altMin, altMax].
func logBinning(altMin, altMax float64, nbins int) Binning {
	b := Binning{Edges: make([]float64, nbins+1), Centers: make([]float64, nbins)}
	lmin, lmax := math.Log(altMin), math.Log(altMax)
	step := (lmax - lmin) / float64(nbins)
	for i := range b.Edges {
		b.Edges[i] = math.Exp(lmin + float64(i)*step)
	}
	b.Edges[0], b.Edges[nbins] = altMin, altMax
	for i := range b.Centers {
		b.Centers[i] = (b.Edges[i] + b.Edges[i+1]) / 2
	}
	return b
}

// rebinLog averages power into the bins of b. Bins are half open except
// the last, which is closed. Samples outside the grid are ignored. Empty
// bins are zero and counted in empty.
func rebinLog(alt, power []float64, b Binning) (binned []float64, empty int) {
	n := b.NBins()
	sum := make([]float64, n)
	count := make([]int, n)
	last := b.Edges[n]
	for i, h := range alt {
		if h < b.Edges[0] || h > last {
			continue
		}
		k := sort.Search(len(b.Edges), func(j int) bool { return b.Edges[j] > h }) - 1
		if k >= n {
			k = n - 1
		}
		sum[k] += power[i]
		count[k]++
	}
	binned = make([]float64, n)
	for k := range binned {
		if count[k] == 0 {
			empty++
			continue
		}
		binned[k] = sum[k] / float64(count[k])
	}
	return binned, empty
}

// glidingWidth is twice the number of samples per nominal bin.
func glidingWidth(alt []float64, altMin, altMax float64, nbins int) (int, error) {
	if len(alt) < 2 || !(alt[1] > alt[0]) {
		return 0, fmt.Errorf("%w: cannot derive sample spacing", ErrInsufficientData)
	}
	perBin := (altMax - altMin) / float64(nbins) / (alt[1] - alt[0])
	return int(math.Ceil(perBin)) * 2, nil
}

// glidingBinning derives the grid from the gliding average of the altitude
// axis itself. The filter decides how many bins there are.
func glidingBinning(alt []float64, altMin, altMax float64, nbins int) (Binning, error) {
	width, err := glidingWidth(alt, altMin, altMax, nbins)
	if err != nil {
		return Binning{}, err
	}
	centers, _, err := filter.GlidingAverage(alt, width)
	if err != nil {
		return Binning{}, fmt.Errorf("%w: %w", ErrInsufficientData, err)
	}
	if len(centers) < 2 {
		return Binning{}, fmt.Errorf("%w: gliding window of %d samples leaves %d bin", ErrInsufficientData, width, len(centers))
	}
	n := len(centers)
	edges := make([]float64, n+1)
	for i := 1; i < n; i++ {
		edges[i] = (centers[i-1] + centers[i]) / 2
	}
	edges[0] = centers[0] - (centers[1]-centers[0])/2
	edges[n] = centers[n-1] + (centers[n-1]-centers[n-2])/2
	return Binning{Edges: edges, Centers: centers, Gliding: true, Width: width}, nil
}

// rebinGliding averages power with the window of b and returns the bin
// means and standard deviations.
func rebinGliding(power []float64, b Binning) (mean, dev []float64, err error) {
	mean, dev, err = filter.GlidingAverage(power, b.Width)
	if err != nil {
		return nil, nil, err
	}
	if len(mean) != b.NBins() {
		return nil, nil, fmt.Errorf("gliding average produced %d bins, grid has %d", len(mean), b.NBins())
	}
	return mean, dev, nil
}
