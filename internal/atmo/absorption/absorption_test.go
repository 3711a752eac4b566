package absorption

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/atmolidar/internal/fsutil"
)

var heightsKm = []float64{1.8, 2.0, 5.0, 10.0, 30.0}

// slope returns the per-decade optical depth used for wavelength wl, so
// tau(z) = slope(wl) * log10(z / 1800) exactly between table heights.
func slope(wl int) float64 { return 0.5 - float64(wl-350)*0.01 }

func makeTable(firstWl, n int) string {
	var b strings.Builder
	b.WriteString("# Atmospheric transmission table\n")
	b.WriteString("# H2= 1.800, H1=")
	for _, h := range heightsKm {
		fmt.Fprintf(&b, " %.3f", h)
	}
	b.WriteString("\n")
	for wl := firstWl; wl < firstWl+n; wl++ {
		fmt.Fprintf(&b, "%d", wl)
		for _, h := range heightsKm {
			fmt.Fprintf(&b, " %.10f", slope(wl)*math.Log10(h/1.8))
		}
		b.WriteString("\n")
		if wl == firstWl+1 {
			b.WriteString("# comment between rows\n")
		}
	}
	return b.String()
}

func mustParse(t *testing.T) *Table {
	t.Helper()
	tab, err := Parse(strings.NewReader(makeTable(350, 11)), 1800)
	require.NoError(t, err)
	return tab
}

func TestParse(t *testing.T) {
	tab := mustParse(t)
	assert.Equal(t, 1800.0, tab.ObservatoryAltitude())
	first, last := tab.Wavelengths()
	assert.Equal(t, 350, first)
	assert.Equal(t, 360, last)
}

func TestOpticalDepthLogInterpolation(t *testing.T) {
	tab := mustParse(t)
	for _, z := range []float64{2000, 3000, 7000, 20000} {
		want := slope(355) * math.Log10(z/1800)
		assert.InDelta(t, want, tab.OpticalDepth(355, z), 1e-8, "z=%v", z)
	}
}

func TestNearestWavelengthClamped(t *testing.T) {
	tab := mustParse(t)
	z := 5000.0
	assert.InDelta(t, tab.OpticalDepth(350, z), tab.OpticalDepth(300, z), 1e-12)
	assert.InDelta(t, tab.OpticalDepth(360, z), tab.OpticalDepth(532, z), 1e-12)
	assert.InDelta(t, tab.OpticalDepth(355, z), tab.OpticalDepth(355.4, z), 1e-12)
}

func TestTransmission(t *testing.T) {
	tab := mustParse(t)

	assert.Equal(t, 0.0, tab.Transmission(355, 1000, 1), "below observatory")
	assert.InDelta(t, 1.0, tab.Transmission(355, 1800, 1), 1e-9)

	z := 5000.0
	tau := slope(355) * math.Log10(z/1800)
	assert.InDelta(t, math.Exp(-tau), tab.Transmission(355, z, 1), 1e-8)
	assert.InDelta(t, math.Exp(-tau/0.5), tab.Transmission(355, z, 0.5), 1e-8)

	assert.Equal(t, 0.0, tab.Transmission(355, z, 1e-4), "optical depth above 100")
}

func TestExtinction(t *testing.T) {
	tab := mustParse(t)

	z := 6000.0
	want := slope(360) * math.Log10(1.1/0.9) / (0.2 * z)
	got := tab.Extinction(360, z, 1)
	assert.InDelta(t, want, got, 1e-12)
	assert.Greater(t, got, 0.0)

	assert.Equal(t, 0.0, tab.Extinction(360, 1000, 1))
}

func TestParseErrors(t *testing.T) {
	good := makeTable(350, 3)

	tests := []struct {
		name  string
		input string
		alt   float64
		is    error
	}{
		{"no header", "350 0.1 0.2\n", 1800, ErrHeader},
		{"altitude mismatch", good, 2200, ErrAltitudeMismatch},
		{"within tolerance", good, 1820, nil},
		{"missing H1", "# H2= 1.800\n350 0.1\n", 1800, ErrHeader},
		{"one height", "# H2= 1.800, H1= 2.0\n350 0.1\n", 1800, ErrHeader},
		{"gap in wavelengths", "# H2= 1.8, H1= 2 5\n350 0 1\n352 0 1\n", 1800, nil},
		{"short row", "# H2= 1.8, H1= 2 5\n350 0\n", 1800, nil},
		{"no rows", "# H2= 1.8, H1= 2 5\n", 1800, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), tt.alt)
			if tt.name == "within tolerance" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/data/atm_trans_1800.dat", []byte(makeTable(350, 5)))

	tab, err := Load(mfs, "/data/atm_trans_1800.dat", 1800)
	require.NoError(t, err)
	_, last := tab.Wavelengths()
	assert.Equal(t, 354, last)
}
