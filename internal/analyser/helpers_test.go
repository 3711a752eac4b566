package analyser

import (
	"sync"

	"github.com/banshee-data/atmolidar/internal/fsutil"
)

type constMolecular float64

func (c constMolecular) Extinction(int, float64) (float64, error) { return float64(c), nil }

type constAbsorption float64

func (c constAbsorption) Extinction(_, _, _ float64) float64 { return float64(c) }

// uniformCenters returns n centres starting at start, step apart.
func uniformCenters(n int, start, step float64) []float64 {
	c := make([]float64, n)
	for i := range c {
		c[i] = start + float64(i)*step
	}
	return c
}

// twoComponentPower returns the power a purely molecular atmosphere of
// constant extinction a produces on centres at zenith, normalised to one in
// the top bin. Fernald84 and Aeronet invert it back to alpha = a exactly.
func twoComponentPower(centers []float64, a float64) []float64 {
	n := len(centers)
	p := make([]float64, n)
	p[n-1] = 1
	for i := n - 2; i >= 0; i-- {
		dz := centers[i+1] - centers[i]
		p[i] = p[i+1] * (1 + a*dz) / (1 - a*dz)
	}
	return p
}

// klettPower is the k=1 counterpart of twoComponentPower.
func klettPower(centers []float64, a float64) []float64 {
	n := len(centers)
	p := make([]float64, n)
	p[n-1] = 1
	for i := n - 2; i >= 0; i-- {
		dz := centers[i+1] - centers[i]
		p[i] = p[i+1] * (1 - a*dz) / (1 + a*dz)
	}
	return p
}

// countingLoader records how often each model is loaded.
type countingLoader struct {
	mu    sync.Mutex
	inner FileModelLoader
	calls map[string]int
}

func newCountingLoader(fsys fsutil.FileSystem) *countingLoader {
	return &countingLoader{inner: FileModelLoader{FS: fsys}, calls: make(map[string]int)}
}

func (l *countingLoader) count(kind string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[kind]
}

func (l *countingLoader) bump(kind string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[kind]++
}

func (l *countingLoader) LoadAbsorption(path string, alt float64) (AbsorptionModel, error) {
	l.bump("absorption")
	return l.inner.LoadAbsorption(path, alt)
}

func (l *countingLoader) LoadProfile(path string) (MolecularModel, error) {
	l.bump("profile")
	return l.inner.LoadProfile(path)
}

func (l *countingLoader) LoadOverlap(path string) (OverlapModel, error) {
	l.bump("overlap")
	return l.inner.LoadOverlap(path)
}
