// Package units holds the unit conversions used at the boundaries of the
// analyser. Lidar files carry range in kilometres, configuration and all
// internal arrays use metres, and the Rayleigh model expects micrometres.
package units

import (
	"math"
	"strings"
)

// Length unit names accepted for report output.
const (
	Metres     = "m"
	Kilometres = "km"
)

// ValidLengthUnits contains all valid length unit values.
var ValidLengthUnits = []string{Metres, Kilometres}

// IsValid checks if the given length unit is supported.
func IsValid(unit string) bool {
	for _, u := range ValidLengthUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages.
func GetValidUnitsString() string {
	return strings.Join(ValidLengthUnits, ", ")
}

// KmToM converts kilometres to metres.
func KmToM(km float64) float64 { return km * 1000 }

// MToKm converts metres to kilometres.
func MToKm(m float64) float64 { return m / 1000 }

// NmToMicron converts a wavelength in nanometres to micrometres.
func NmToMicron(nm float64) float64 { return nm / 1000 }

// CosZenith returns the cosine of a zenith angle given in degrees.
func CosZenith(thetaDeg float64) float64 {
	return math.Cos(thetaDeg * math.Pi / 180)
}

// ConvertLength converts metres to the target unit. Unknown units fall back
// to metres.
func ConvertLength(metres float64, targetUnit string) float64 {
	switch targetUnit {
	case Kilometres:
		return MToKm(metres)
	default:
		return metres
	}
}
