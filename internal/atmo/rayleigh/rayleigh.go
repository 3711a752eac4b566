// Package rayleigh computes molecular (Rayleigh) volume scattering
// coefficients after Bucholtz, Appl. Opt. 34 (1995), Table 3.
package rayleigh

import (
	"errors"
	"fmt"
	"math"
)

// Standard air conditions the tabulated coefficients refer to.
const (
	StandardPressure    = 1013.25 // hPa
	StandardTemperature = 288.15  // K
)

// LidarRatio is the molecular extinction-to-backscatter ratio 8π/3 sr.
const LidarRatio = 8 * math.Pi / 3

// ErrWavelengthRange is returned outside 0.2 < λ < 2.2 µm.
var ErrWavelengthRange = errors.New("wavelength outside 0.2-2.2 um")

type coefficients struct{ a, b, c, d float64 }

var (
	shortWave = coefficients{a: 7.68246e-4, b: 3.55212, c: 1.35579, d: 0.11563}
	longWave  = coefficients{a: 10.21675e-4, b: 3.99668, c: 1.10298e-3, d: 2.71393e-2}
)

// BetaStandard returns the volume scattering coefficient in 1/m for
// standard air at wavelength wl in micrometres.
func BetaStandard(wl float64) (float64, error) {
	var k coefficients
	switch {
	case wl > 0.2 && wl <= 0.5:
		k = shortWave
	case wl > 0.5 && wl < 2.2:
		k = longWave
	default:
		return 0, fmt.Errorf("%w: %g um", ErrWavelengthRange, wl)
	}
	// Tabulated in 1/km.
	return k.a * math.Pow(wl, -(k.b+k.c*wl+k.d/wl)) / 1000, nil
}

// Beta scales BetaStandard to pressure p (hPa) and temperature t (K).
func Beta(wl, p, t float64) (float64, error) {
	bs, err := BetaStandard(wl)
	if err != nil {
		return 0, err
	}
	if t <= 0 {
		return 0, fmt.Errorf("rayleigh: non-positive temperature %g K", t)
	}
	return bs * (p / StandardPressure) * (StandardTemperature / t), nil
}
