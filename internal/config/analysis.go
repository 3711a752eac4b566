// Package config holds the typed analysis configuration: every tunable of
// the retrieval pipeline, its defaults, loaders for the supported file
// dialects and single-key overwrite for interactive tuning.
package config

import (
	"maps"
	"slices"

	"github.com/banshee-data/atmolidar/internal/security"
)

// Algorithm names an inversion strategy.
type Algorithm string

const (
	AlgKlett     Algorithm = "Klett"
	AlgFernald84 Algorithm = "Fernald84"
	AlgAeronet   Algorithm = "Aeronet"
)

// Algorithms lists the accepted algorithm names.
var Algorithms = []Algorithm{AlgKlett, AlgFernald84, AlgAeronet}

// WavelengthParams carries the parameters that differ per laser line.
type WavelengthParams struct {
	// R0 is the inversion reference altitude in metres.
	R0 float64 `json:"R0" yaml:"R0" validate:"gt=0"`
	// LidarRatio is the particulate extinction-to-backscatter ratio Sp (sr).
	LidarRatio float64 `json:"Sp" yaml:"Sp" validate:"gt=0"`
	// AlignCorr is the alignment-correction factor applied to binned power.
	AlignCorr float64 `json:"AlignCorr" yaml:"AlignCorr" validate:"gte=0,lte=1"`
}

// AnalysisConfig is the complete parameter set of one analysis pass.
// Field tags carry the legacy key names so JSON, YAML and key=value files
// share one vocabulary. Altitudes and lengths are in metres.
type AnalysisConfig struct {
	// Site and geometry
	LidarAltitude float64 `json:"LidarAltitude" yaml:"LidarAltitude" validate:"gte=-500,lte=9000"`
	LidarTheta    float64 `json:"LidarTheta" yaml:"LidarTheta" validate:"gte=0,lt=90"`
	QualityThr    float64 `json:"QualityThr" yaml:"QualityThr"`

	// Working window and background
	AltMin         float64 `json:"AltMin" yaml:"AltMin" validate:"gt=0"`
	AltMax         float64 `json:"AltMax" yaml:"AltMax" validate:"gtfield=AltMin"`
	BkgMin         float64 `json:"BkgMin" yaml:"BkgMin" validate:"gte=0"`
	BkgMax         float64 `json:"BkgMax" yaml:"BkgMax" validate:"gtefield=BkgMin"`
	BkgFudgeFactor float64 `json:"BkgFudgeFactor" yaml:"BkgFudgeFactor" validate:"gt=0"`

	// Binning
	NBins    int  `json:"NBins" yaml:"NBins" validate:"gte=1,lte=100000"`
	LogBins  bool `json:"LogBins" yaml:"LogBins"`
	SGFilter bool `json:"SGFilter" yaml:"SGFilter"`

	// Inversion
	AlgName       Algorithm `json:"AlgName" yaml:"AlgName" validate:"oneof=Klett Fernald84 Aeronet"`
	KlettK        float64   `json:"Klett_k" yaml:"Klett_k" validate:"gt=0"`
	KlettL        float64   `json:"Klett_l" yaml:"Klett_l" validate:"gt=0"`
	FernaldSRatio float64   `json:"Fernald_sratio" yaml:"Fernald_sratio" validate:"gte=1"`

	// Optical depth window
	TauAltMin float64 `json:"TauAltMin" yaml:"TauAltMin" validate:"gte=0"`
	TauAltMax float64 `json:"TauAltMax" yaml:"TauAltMax" validate:"gtefield=TauAltMin"`

	// Optimizers
	SNRatioThreshold float64 `json:"SNRatioThreshold" yaml:"SNRatioThreshold" validate:"gt=0"`
	OptimizeR0       bool    `json:"OptimizeR0" yaml:"OptimizeR0"`
	OptimizeAC       bool    `json:"OptimizeAC" yaml:"OptimizeAC"`
	OptimizeACHmin   float64 `json:"OptimizeAC_Hmin" yaml:"OptimizeAC_Hmin" validate:"gte=0"`

	// Per-wavelength parameters keyed by wavelength in nm.
	Wavelengths map[int]WavelengthParams `json:"Wavelengths" yaml:"Wavelengths" validate:"dive"`

	// External model tables. Empty disables the corresponding model.
	AtmoAbsorption  string `json:"AtmoAbsorption" yaml:"AtmoAbsorption"`
	AtmoProfile     string `json:"AtmoProfile" yaml:"AtmoProfile"`
	OverlapFunction string `json:"OverlapFunction" yaml:"OverlapFunction"`
}

// FallbackWavelength is used for wavelengths without an explicit entry.
var FallbackWavelength = WavelengthParams{R0: 10000, LidarRatio: 50, AlignCorr: 0}

// Default returns the configuration the analyser uses when nothing is
// overridden.
func Default() *AnalysisConfig {
	return &AnalysisConfig{
		LidarAltitude:    1800,
		LidarTheta:       15,
		QualityThr:       -5,
		AltMin:           800,
		AltMax:           10000,
		BkgMin:           20000,
		BkgMax:           25000,
		BkgFudgeFactor:   1.01,
		NBins:            100,
		LogBins:          true,
		SGFilter:         false,
		AlgName:          AlgFernald84,
		KlettK:           1,
		KlettL:           1,
		FernaldSRatio:    1.01,
		TauAltMin:        800,
		TauAltMax:        4000,
		SNRatioThreshold: 5,
		OptimizeR0:       true,
		OptimizeAC:       false,
		OptimizeACHmin:   6000,
		Wavelengths: map[int]WavelengthParams{
			355: {R0: 10000, LidarRatio: 50, AlignCorr: 0},
			532: {R0: 10000, LidarRatio: 70, AlignCorr: 0},
		},
	}
}

// Clone returns a deep copy.
func (c *AnalysisConfig) Clone() *AnalysisConfig {
	out := *c
	out.Wavelengths = maps.Clone(c.Wavelengths)
	if out.Wavelengths == nil {
		out.Wavelengths = make(map[int]WavelengthParams)
	}
	return &out
}

// ForWavelength returns the parameters for wl, or FallbackWavelength.
func (c *AnalysisConfig) ForWavelength(wl int) WavelengthParams {
	if p, ok := c.Wavelengths[wl]; ok {
		return p
	}
	return FallbackWavelength
}

// SetWavelength stores the parameters for wl.
func (c *AnalysisConfig) SetWavelength(wl int, p WavelengthParams) {
	if c.Wavelengths == nil {
		c.Wavelengths = make(map[int]WavelengthParams)
	}
	c.Wavelengths[wl] = p
}

// WavelengthKeys returns the configured wavelengths in ascending order.
func (c *AnalysisConfig) WavelengthKeys() []int {
	return slices.Sorted(maps.Keys(c.Wavelengths))
}

// ResolveModelPaths rewrites the three model paths relative to dataDir and
// rejects any that escape it. An empty dataDir leaves paths unchanged apart
// from cleaning.
func (c *AnalysisConfig) ResolveModelPaths(dataDir string) error {
	for _, p := range []*string{&c.AtmoAbsorption, &c.AtmoProfile, &c.OverlapFunction} {
		resolved, err := security.ResolveWithinDirectory(*p, dataDir)
		if err != nil {
			return err
		}
		*p = resolved
	}
	return nil
}

// fillWavelengthDefaults replaces zero R0 or Sp entries left by a partial
// file with the defaults, so a file may override a single field of one
// wavelength.
func (c *AnalysisConfig) fillWavelengthDefaults() {
	def := Default()
	for wl, p := range c.Wavelengths {
		fb := def.ForWavelength(wl)
		if p.R0 == 0 {
			p.R0 = fb.R0
		}
		if p.LidarRatio == 0 {
			p.LidarRatio = fb.LidarRatio
		}
		c.Wavelengths[wl] = p
	}
}
