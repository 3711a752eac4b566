// Package testutil provides shared test helpers and synthetic fixtures:
// raw traces and small model tables that parse with the atmo packages.
package testutil

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/banshee-data/atmolidar/internal/fsutil"
)

// Paths of the model tables written by ModelFS.
const (
	AbsorptionPath = "models/absorption.dat"
	ProfilePath    = "models/atmprof.dat"
	OverlapPath    = "models/overlap.dat"
)

// SiteAltitudeKm is the observatory altitude of AbsorptionTable.
const SiteAltitudeKm = 1.8

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// RangeKm returns n samples evenly spaced over [0, maxKm].
func RangeKm(n int, maxKm float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = maxKm * float64(i) / float64(n-1)
	}
	return out
}

// SpikedTrace returns n samples at level with the first one replaced by
// spike, mimicking the calibration pulse at the start of every shot.
func SpikedTrace(n int, level, spike float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = level
	}
	out[0] = spike
	return out
}

// AtmosphereProfile is a mid-latitude style profile in the six-column
// altitude/density/thickness/index/temperature/pressure layout.
const AtmosphereProfile = `# Alt [km]    rho [g/cm^3] thick [g/cm^2]    n-1        T [K]       p [mbar] pw / p
    0.000     0.12250E-02  0.10350E+04  0.28300E-03   288.150   1013.250  0.0000
    2.000     0.10066E-02  0.81540E+03  0.23300E-03   275.150    795.000  0.0000
    5.000     0.73640E-03  0.55050E+03  0.17000E-03   255.680    540.500  0.0000
   10.000     0.41350E-03  0.26800E+03  0.96000E-04   223.250    265.000  0.0000
   20.000     0.88910E-04  0.56100E+02  0.20600E-04   216.650     55.290  0.0000
   30.000     0.18410E-04  0.12180E+02  0.42700E-05   226.650     11.970  0.0000
`

var absorptionHeightsKm = []float64{1.8, 2.0, 5.0, 10.0, 20.0, 30.0}

// AbsorptionSlope is the optical depth per decade of altitude used by
// AbsorptionTable at wavelength wl.
func AbsorptionSlope(wl int) float64 { return 0.8 - float64(wl-350)*0.002 }

// AbsorptionTable returns a transmission table for wavelengths
// [firstWl, firstWl+n) with tau(z) = AbsorptionSlope(wl)*log10(z/1800 m).
func AbsorptionTable(firstWl, n int) string {
	var b strings.Builder
	b.WriteString("# synthetic atmospheric transmission\n")
	fmt.Fprintf(&b, "# H2= %.3f, H1=", SiteAltitudeKm)
	for _, h := range absorptionHeightsKm {
		fmt.Fprintf(&b, " %.3f,", h)
	}
	b.WriteString("\n")
	for wl := firstWl; wl < firstWl+n; wl++ {
		fmt.Fprintf(&b, "%d", wl)
		for _, h := range absorptionHeightsKm {
			fmt.Fprintf(&b, " %.8f", AbsorptionSlope(wl)*math.Log10(h/SiteAltitudeKm))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// OverlapTable reaches full overlap at 1 km above the instrument.
const OverlapTable = `# height[m] overlap[%]
200 20
500 60
1000 100
`

// ModelFS returns a memory file system holding the three model tables at
// AbsorptionPath, ProfilePath and OverlapPath.
func ModelFS() *fsutil.MemoryFileSystem {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile(AbsorptionPath, []byte(AbsorptionTable(350, 201)))
	mfs.WriteFile(ProfilePath, []byte(AtmosphereProfile))
	mfs.WriteFile(OverlapPath, []byte(OverlapTable))
	return mfs
}
