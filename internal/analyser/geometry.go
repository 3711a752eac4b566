package analyser

import (
	"fmt"

	"github.com/banshee-data/atmolidar/internal/config"
	"github.com/banshee-data/atmolidar/internal/monitoring"
	"github.com/banshee-data/atmolidar/internal/units"
)

// Geometry is the zenith-corrected view of the range axis.
type Geometry struct {
	// CosTheta is the cosine of the pointing zenith angle.
	CosTheta float64
	// Height is the vertical distance above the instrument in metres for
	// every raw sample.
	Height []float64
	// MinIndex and MaxIndex bound the working window, inclusive.
	MinIndex, MaxIndex int
}

// N returns the number of samples in the working window.
func (g Geometry) N() int { return g.MaxIndex - g.MinIndex + 1 }

// Altitude returns the working-window heights (m above the instrument).
func (g Geometry) Altitude() []float64 {
	return g.Height[g.MinIndex : g.MaxIndex+1]
}

// newGeometry converts the raw range (km along the beam) into heights and
// locates the working window [AltMin, AltMax]. When AltMax lies beyond the
// trace the window is clamped to the last sample.
func newGeometry(rangeKm []float64, cfg *config.AnalysisConfig) (Geometry, error) {
	if len(rangeKm) < MinSamples {
		return Geometry{}, fmt.Errorf("%w: %d samples", ErrInsufficientData, len(rangeKm))
	}
	g := Geometry{CosTheta: units.CosZenith(cfg.LidarTheta), Height: make([]float64, len(rangeKm))}
	for i, r := range rangeKm {
		g.Height[i] = units.KmToM(r) * g.CosTheta
	}

	g.MinIndex, g.MaxIndex = -1, -1
	for i, h := range g.Height {
		if g.MinIndex < 0 && h >= cfg.AltMin {
			g.MinIndex = i
		}
		if h >= cfg.AltMax {
			g.MaxIndex = i
			break
		}
	}
	if g.MinIndex < 0 {
		return Geometry{}, fmt.Errorf("%w: no sample above AltMin %.0f m (top at %.0f m)",
			ErrInsufficientData, cfg.AltMin, g.Height[len(g.Height)-1])
	}
	if g.MaxIndex < 0 {
		g.MaxIndex = len(g.Height) - 1
		monitoring.Opsf("analyser: AltMax %.0f m beyond trace; window clamped to %.0f m", cfg.AltMax, g.Height[g.MaxIndex])
	}
	if g.N() < 2 {
		return Geometry{}, fmt.Errorf("%w: working window holds %d sample", ErrInsufficientData, g.N())
	}
	return g, nil
}
