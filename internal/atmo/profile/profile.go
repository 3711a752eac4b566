// Package profile interpolates a tabulated atmosphere (pressure and
// temperature against altitude) and derives molecular extinction from it.
package profile

import (
	"bufio"
	"bytes"
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"

	"github.com/banshee-data/atmolidar/internal/atmo/rayleigh"
	"github.com/banshee-data/atmolidar/internal/fsutil"
	"github.com/banshee-data/atmolidar/internal/units"
)

// MaxFileSize caps atmosphere tables at 4 MiB.
const MaxFileSize = 4 << 20

// Level is one row of the atmosphere table.
type Level struct {
	Altitude    float64 // m
	Density     float64 // g/cm3
	Thickness   float64 // g/cm2
	Index       float64 // refractive index - 1
	Temperature float64 // K
	Pressure    float64 // hPa
	PwP         float64 // water vapour partial pressure ratio
}

// Profile is an immutable atmosphere model. Pressure and temperature are
// interpolated linearly in their logarithm and held constant beyond the
// tabulated range.
type Profile struct {
	levels []Level
	logP   interp.PiecewiseLinear
	logT   interp.PiecewiseLinear
}

// New builds a Profile from levels in any order.
func New(levels []Level) (*Profile, error) {
	if len(levels) < 2 {
		return nil, fmt.Errorf("atmosphere profile needs at least 2 levels, got %d", len(levels))
	}
	sorted := slices.Clone(levels)
	slices.SortFunc(sorted, func(a, b Level) int { return cmp.Compare(a.Altitude, b.Altitude) })

	alt := make([]float64, len(sorted))
	lp := make([]float64, len(sorted))
	lt := make([]float64, len(sorted))
	for i, l := range sorted {
		if !(l.Pressure > 0) || !(l.Temperature > 0) {
			return nil, fmt.Errorf("level at %g m: pressure %g and temperature %g must be positive",
				l.Altitude, l.Pressure, l.Temperature)
		}
		alt[i] = l.Altitude
		lp[i] = math.Log(l.Pressure)
		lt[i] = math.Log(l.Temperature)
	}

	p := &Profile{levels: sorted}
	if err := p.logP.Fit(alt, lp); err != nil {
		return nil, fmt.Errorf("pressure interpolation: %w", err)
	}
	if err := p.logT.Fit(alt, lt); err != nil {
		return nil, fmt.Errorf("temperature interpolation: %w", err)
	}
	return p, nil
}

// Parse reads whitespace-separated rows of
// "alt(km) rho thick index T(K) P(hPa) [pw/p]". Lines starting with '#'
// and blank lines are skipped.
func Parse(r io.Reader) (*Profile, error) {
	var levels []Level
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 6 {
			return nil, fmt.Errorf("line %d: want at least 6 columns, got %d", lineNo, len(fields))
		}
		var v [7]float64
		for i := 0; i < len(fields) && i < len(v); i++ {
			f, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", lineNo, i+1, err)
			}
			v[i] = f
		}
		levels = append(levels, Level{
			Altitude:    units.KmToM(v[0]),
			Density:     v[1],
			Thickness:   v[2],
			Index:       v[3],
			Temperature: v[4],
			Pressure:    v[5],
			PwP:         v[6],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return New(levels)
}

// Load parses the atmosphere table at path.
func Load(fsys fsutil.FileSystem, path string) (*Profile, error) {
	data, err := fsutil.ReadFileLimited(fsys, path, MaxFileSize)
	if err != nil {
		return nil, err
	}
	p, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("atmosphere profile %s: %w", path, err)
	}
	return p, nil
}

// Pressure returns the pressure in hPa at altitude h (m a.s.l.).
func (p *Profile) Pressure(h float64) float64 {
	return math.Exp(p.logP.Predict(h))
}

// Temperature returns the temperature in K at altitude h (m a.s.l.).
func (p *Profile) Temperature(h float64) float64 {
	return math.Exp(p.logT.Predict(h))
}

// Extinction returns the molecular extinction coefficient in 1/m at
// wavelength wl (nm) and altitude h (m a.s.l.).
func (p *Profile) Extinction(wl int, h float64) (float64, error) {
	return rayleigh.Beta(units.NmToMicron(float64(wl)), p.Pressure(h), p.Temperature(h))
}

// Levels returns a copy of the table in ascending altitude.
func (p *Profile) Levels() []Level {
	return slices.Clone(p.levels)
}
