package analyser

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// OpticalDepths are integrals of extinction over the configured tau window.
type OpticalDepths struct {
	Total       float64 `json:"total"`
	Molecular   float64 `json:"molecular"`
	Particulate float64 `json:"particulate"`
	Model       float64 `json:"model"`
	// ModelParticulate is the model optical depth minus the molecular one.
	ModelParticulate float64 `json:"model_particulate"`
}

// Opacity holds cumulative optical depth profiles from the lowest bin
// upwards and the derived one-way transmissions.
type Opacity struct {
	Total, Molecular, Particulate, Model []float64
	Transmission, ModelTransmission      []float64
	OD                                   OpticalDepths
}

// integrateOpacity integrates p over the bin widths in edges. Molecular and
// particulate opacities are nil when p has no such components.
func integrateOpacity(p Profiles, edges []float64, tauMin, tauMax float64) Opacity {
	n := len(p.Alpha)
	inWindow := func(i int) bool { return edges[i+1] >= tauMin && edges[i] <= tauMax }

	integrate := func(alpha []float64) ([]float64, float64) {
		if alpha == nil {
			return nil, 0
		}
		area := make([]float64, n)
		od := 0.0
		for i := range area {
			area[i] = alpha[i] * (edges[i+1] - edges[i])
			if inWindow(i) {
				od += area[i]
			}
		}
		return floats.CumSum(make([]float64, n), area), od
	}

	var o Opacity
	o.Total, o.OD.Total = integrate(p.Alpha)
	o.Molecular, o.OD.Molecular = integrate(p.AlphaM)
	o.Particulate, o.OD.Particulate = integrate(p.AlphaP)
	o.Model, o.OD.Model = integrate(p.AlphaModel)
	o.OD.ModelParticulate = o.OD.Model - o.OD.Molecular

	o.Transmission = transmission(o.Total)
	o.ModelTransmission = transmission(o.Model)
	return o
}

func transmission(opacity []float64) []float64 {
	if opacity == nil {
		return nil
	}
	out := make([]float64, len(opacity))
	for i, tau := range opacity {
		out[i] = math.Exp(-tau)
	}
	return out
}
