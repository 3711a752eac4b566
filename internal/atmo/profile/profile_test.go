package profile

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/atmolidar/internal/atmo/rayleigh"
	"github.com/banshee-data/atmolidar/internal/fsutil"
)

const atmprof = `# Atmospheric Model 10 (tropical)
#Col. #1          #2           #3            #4        [ #5 ]       [ #6 ]  [ #7 ]
# Alt [km]    rho [g/cm^3] thick [g/cm^2]    n-1        T [K]       p [mbar] pw / p
    0.000     0.11855E-02  0.10431E+04  0.27659E-03   300.000   1013.000  0.0000
    1.000     0.10764E-02  0.92986E+03  0.25099E-03   294.000    904.000  0.0000
    2.000     0.98184E-03  0.82679E+03  0.22882E-03   288.000    805.000  0.0000
   10.000     0.41360E-03  0.28570E+03  0.96561E-04   237.000    286.000  0.0000
`

func mustParse(t *testing.T) *Profile {
	t.Helper()
	p, err := Parse(strings.NewReader(atmprof))
	require.NoError(t, err)
	return p
}

func TestTabulatedValues(t *testing.T) {
	p := mustParse(t)

	assert.InDelta(t, 1013.0, p.Pressure(0), 1e-9)
	assert.InDelta(t, 904.0, p.Pressure(1000), 1e-9)
	assert.InDelta(t, 294.0, p.Temperature(1000), 1e-9)
	assert.InDelta(t, 237.0, p.Temperature(10000), 1e-9)
}

func TestLogLinearInterpolation(t *testing.T) {
	p := mustParse(t)

	// Midway in altitude is the geometric mean.
	assert.InDelta(t, math.Sqrt(1013.0*904.0), p.Pressure(500), 1e-9)
	assert.InDelta(t, math.Sqrt(294.0*288.0), p.Temperature(1500), 1e-9)
}

func TestClampedOutsideTable(t *testing.T) {
	p := mustParse(t)

	assert.InDelta(t, 1013.0, p.Pressure(-200), 1e-9)
	assert.InDelta(t, 286.0, p.Pressure(30000), 1e-9)
}

func TestExtinction(t *testing.T) {
	p := mustParse(t)

	got, err := p.Extinction(532, 1000)
	require.NoError(t, err)
	want, _ := rayleigh.Beta(0.532, 904, 294)
	assert.InDelta(t, want, got, 1e-15)

	low, _ := p.Extinction(355, 1000)
	assert.Greater(t, low, got, "shorter wavelength scatters more")

	_, err = p.Extinction(5000, 1000)
	assert.ErrorIs(t, err, rayleigh.ErrWavelengthRange)
}

func TestLevelsSorted(t *testing.T) {
	p, err := New([]Level{
		{Altitude: 2000, Temperature: 280, Pressure: 800},
		{Altitude: 0, Temperature: 290, Pressure: 1000},
	})
	require.NoError(t, err)
	lv := p.Levels()
	assert.Equal(t, 0.0, lv[0].Altitude)
	assert.Len(t, lv, 2)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too few levels", "0.0 1 1 1 300 1013\n"},
		{"too few columns", "0.0 1 1 1 300\n1.0 1 1 1 290 900\n"},
		{"bad number", "0.0 x 1 1 300 1013\n1.0 1 1 1 290 900\n"},
		{"zero pressure", "0.0 1 1 1 300 0\n1.0 1 1 1 290 900\n"},
		{"duplicate altitude", "1.0 1 1 1 300 1000\n1.0 1 1 1 290 900\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/data/atmprof10.dat", []byte(atmprof))

	p, err := Load(mfs, "/data/atmprof10.dat")
	require.NoError(t, err)
	assert.Len(t, p.Levels(), 4)

	_, err = Load(mfs, "/data/none.dat")
	assert.Error(t, err)
}
