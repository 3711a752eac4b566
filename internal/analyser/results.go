package analyser

import (
	"fmt"
	"slices"

	"github.com/banshee-data/atmolidar/internal/config"
)

// wavelengthResult accumulates the stage outputs of one wavelength. Fields
// stay nil past the stage that failed.
type wavelengthResult struct {
	wavelength int
	bins       Binning

	quality   bool
	signalMin float64

	background       float64
	backgroundWindow []float64
	reduced          []float64
	power            []float64
	filtered         []float64
	binned           []float64
	binnedDev        []float64

	configuredR0 float64
	params       config.WavelengthParams
	refBins      int
	snrAtR0      *float64
	acResiduals  []float64

	profiles *Profiles
	opacity  Opacity
}

func (r *wavelengthResult) summary() Summary {
	s := Summary{
		Wavelength:        r.wavelength,
		SignalMinimum:     r.signalMin,
		Background:        r.background,
		BackgroundSamples: len(r.backgroundWindow),
		R0:                r.params.R0,
		R0Adjusted:        r.params.R0 != r.configuredR0,
		LidarRatio:        r.params.LidarRatio,
		AlignCorr:         r.params.AlignCorr,
		SNRAtR0:           r.snrAtR0,
		Bins:              r.refBins,
		OpticalDepth:      r.opacity.OD,
	}
	if r.profiles != nil {
		s.ReferenceExtinction = r.profiles.Alpha0
	}
	return s
}

func (a *Analyser) result(wl int) (*wavelengthResult, error) {
	if _, ok := a.raw.Signals[wl]; !ok {
		return nil, fmt.Errorf("%w: %d nm", ErrUnknownWavelength, wl)
	}
	r, ok := a.results[wl]
	if !ok {
		return nil, fmt.Errorf("%w: %d nm", ErrNotProcessed, wl)
	}
	return r, nil
}

// stage returns a copy of one stage output, or ErrNotProcessed when the
// pipeline stopped before it.
func (a *Analyser) stage(wl int, name string, pick func(*wavelengthResult) []float64) ([]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.result(wl)
	if err != nil {
		return nil, err
	}
	v := pick(r)
	if v == nil {
		return nil, fmt.Errorf("%w: %d nm has no %s", ErrNotProcessed, wl, name)
	}
	return slices.Clone(v), nil
}

func (a *Analyser) inverted(wl int) (*wavelengthResult, error) {
	r, err := a.result(wl)
	if err != nil {
		return nil, err
	}
	if r.profiles == nil {
		return nil, fmt.Errorf("%w: %d nm was not inverted", ErrNotProcessed, wl)
	}
	return r, nil
}

// Geometry returns the zenith-corrected range axis and working window.
func (a *Analyser) Geometry() Geometry {
	a.mu.Lock()
	defer a.mu.Unlock()
	g := a.geom
	g.Height = slices.Clone(g.Height)
	return g
}

// Binning returns the grid of the current pass, if one has been built.
func (a *Analyser) Binning() (Binning, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bins == nil {
		return Binning{}, false
	}
	b := *a.bins
	b.Edges = slices.Clone(b.Edges)
	b.Centers = slices.Clone(b.Centers)
	return b, true
}

// Quality reports whether wl passed the calibration spike check.
func (a *Analyser) Quality(wl int) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.result(wl)
	if err != nil {
		return false, err
	}
	return r.quality, nil
}

// Background returns the fudged background estimate in volts.
func (a *Analyser) Background(wl int) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.result(wl)
	if err != nil {
		return 0, err
	}
	return r.background, nil
}

// BackgroundWindow returns the raw samples the background was averaged
// over. It is empty, without error, when the window held no samples.
func (a *Analyser) BackgroundWindow(wl int) ([]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.result(wl)
	if err != nil {
		return nil, err
	}
	return slices.Clone(r.backgroundWindow), nil
}

// ReducedSignal returns |signal - background| over the working window.
func (a *Analyser) ReducedSignal(wl int) ([]float64, error) {
	return a.stage(wl, "reduced signal", func(r *wavelengthResult) []float64 { return r.reduced })
}

// Power returns the range-corrected power.
func (a *Analyser) Power(wl int) ([]float64, error) {
	return a.stage(wl, "power", func(r *wavelengthResult) []float64 { return r.power })
}

// FilteredPower returns the Savitzky-Golay smoothed power.
func (a *Analyser) FilteredPower(wl int) ([]float64, error) {
	return a.stage(wl, "filtered power", func(r *wavelengthResult) []float64 { return r.filtered })
}

// BinnedPower returns the per-bin mean power.
func (a *Analyser) BinnedPower(wl int) ([]float64, error) {
	return a.stage(wl, "binned power", func(r *wavelengthResult) []float64 { return r.binned })
}

// BinnedPowerDev returns the per-bin power deviation; gliding bins only.
func (a *Analyser) BinnedPowerDev(wl int) ([]float64, error) {
	return a.stage(wl, "binned power deviation", func(r *wavelengthResult) []float64 { return r.binnedDev })
}

// AlignCorrResiduals returns the residual of each alignment candidate.
func (a *Analyser) AlignCorrResiduals(wl int) ([]float64, error) {
	return a.stage(wl, "alignment residuals", func(r *wavelengthResult) []float64 { return r.acResiduals })
}

// SNRatioAtR0 returns signal over deviation in the reference bin.
func (a *Analyser) SNRatioAtR0(wl int) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.result(wl)
	if err != nil {
		return 0, err
	}
	if r.snrAtR0 == nil {
		return 0, fmt.Errorf("%w: %d nm", ErrNoNoiseEstimate, wl)
	}
	return *r.snrAtR0, nil
}

// ReferenceExtinction returns the extinction used to seed the inversion.
func (a *Analyser) ReferenceExtinction(wl int) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.inverted(wl)
	if err != nil {
		return 0, err
	}
	return r.profiles.Alpha0, nil
}

func pickComponent(c Component, total, molecular, particulate []float64) ([]float64, error) {
	switch c {
	case Total:
		return total, nil
	case Molecular:
		return molecular, nil
	case Particulate:
		return particulate, nil
	}
	return nil, fmt.Errorf("unknown component %q", c)
}

// componentGetter serves the T/M/P selectable arrays. Klett leaves the
// molecular and particulate parts empty.
func (a *Analyser) componentGetter(wl int, c Component, pick func(*wavelengthResult) (t, m, p []float64)) ([]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.inverted(wl)
	if err != nil {
		return nil, err
	}
	t, m, p := pick(r)
	v, err := pickComponent(c, t, m, p)
	if err != nil {
		return nil, err
	}
	return slices.Clone(v), nil
}

// Extinction returns the total, molecular or particulate extinction (1/m).
func (a *Analyser) Extinction(wl int, c Component) ([]float64, error) {
	return a.componentGetter(wl, c, func(r *wavelengthResult) ([]float64, []float64, []float64) {
		return r.profiles.Alpha, r.profiles.AlphaM, r.profiles.AlphaP
	})
}

// Backscatter returns the total, molecular or particulate backscatter (1/m/sr).
func (a *Analyser) Backscatter(wl int, c Component) ([]float64, error) {
	return a.componentGetter(wl, c, func(r *wavelengthResult) ([]float64, []float64, []float64) {
		return r.profiles.Beta, r.profiles.BetaM, r.profiles.BetaP
	})
}

// Opacity returns the cumulative optical depth for a component.
func (a *Analyser) Opacity(wl int, c Component) ([]float64, error) {
	return a.componentGetter(wl, c, func(r *wavelengthResult) ([]float64, []float64, []float64) {
		return r.opacity.Total, r.opacity.Molecular, r.opacity.Particulate
	})
}

func (a *Analyser) invertedArray(wl int, pick func(*wavelengthResult) []float64) ([]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.inverted(wl)
	if err != nil {
		return nil, err
	}
	return slices.Clone(pick(r)), nil
}

// ModelExtinction returns the absorption-table extinction on the bin grid.
func (a *Analyser) ModelExtinction(wl int) ([]float64, error) {
	return a.invertedArray(wl, func(r *wavelengthResult) []float64 { return r.profiles.AlphaModel })
}

// ModelOpacity returns the cumulative absorption-table optical depth.
func (a *Analyser) ModelOpacity(wl int) ([]float64, error) {
	return a.invertedArray(wl, func(r *wavelengthResult) []float64 { return r.opacity.Model })
}

// Transmission returns exp(-opacity) of the measured profile.
func (a *Analyser) Transmission(wl int) ([]float64, error) {
	return a.invertedArray(wl, func(r *wavelengthResult) []float64 { return r.opacity.Transmission })
}

// ModelTransmission returns exp(-opacity) of the absorption-table profile.
func (a *Analyser) ModelTransmission(wl int) ([]float64, error) {
	return a.invertedArray(wl, func(r *wavelengthResult) []float64 { return r.opacity.ModelTransmission })
}

// OpticalDepths returns the integrals over [TauAltMin, TauAltMax].
func (a *Analyser) OpticalDepths(wl int) (OpticalDepths, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.inverted(wl)
	if err != nil {
		return OpticalDepths{}, err
	}
	return r.opacity.OD, nil
}

// OD returns one component of OpticalDepths.
func (a *Analyser) OD(wl int, c Component) (float64, error) {
	od, err := a.OpticalDepths(wl)
	if err != nil {
		return 0, err
	}
	switch c {
	case Total:
		return od.Total, nil
	case Molecular:
		return od.Molecular, nil
	case Particulate:
		return od.Particulate, nil
	}
	return 0, fmt.Errorf("unknown component %q", c)
}

// RawRange returns a copy of the raw range axis in km.
func (a *Analyser) RawRange() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.raw.Range)
}

// RawSignal returns a copy of the raw trace for wl.
func (a *Analyser) RawSignal(wl int) ([]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.raw.Signals[wl]
	if !ok {
		return nil, fmt.Errorf("%w: %d nm", ErrUnknownWavelength, wl)
	}
	return slices.Clone(s), nil
}
