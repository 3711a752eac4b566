package analyser

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/atmolidar/internal/config"
	"github.com/banshee-data/atmolidar/internal/fsutil"
	"github.com/banshee-data/atmolidar/internal/monitoring"
	"github.com/banshee-data/atmolidar/internal/timeutil"
)

// Analyser runs the retrieval pipeline over one raw profile. It is safe
// for concurrent use; passes are serialised.
type Analyser struct {
	mu sync.Mutex

	raw    RawProfile
	cfg    *config.AnalysisConfig
	geom   Geometry
	models modelSet
	loader ModelLoader
	clock  timeutil.Clock

	bins      *Binning
	results   map[int]*wavelengthResult
	effective map[int]config.WavelengthParams
}

// Option customises an Analyser at construction.
type Option func(*Analyser)

// WithModelLoader replaces the file-backed model loader.
func WithModelLoader(l ModelLoader) Option {
	return func(a *Analyser) { a.loader = l }
}

// WithFileSystem loads model tables through fsys.
func WithFileSystem(fsys fsutil.FileSystem) Option {
	return func(a *Analyser) { a.loader = FileModelLoader{FS: fsys} }
}

// WithClock sets the clock used for report timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(a *Analyser) { a.clock = c }
}

// WithMolecularModel pins the molecular model; AtmoProfile is then ignored.
func WithMolecularModel(m MolecularModel) Option {
	return func(a *Analyser) { a.models.molecular, a.models.pinMolecular = m, true }
}

// WithAbsorptionModel pins the absorption model; AtmoAbsorption is then ignored.
func WithAbsorptionModel(m AbsorptionModel) Option {
	return func(a *Analyser) { a.models.absorption, a.models.pinAbsorption = m, true }
}

// WithOverlapModel pins the overlap model; OverlapFunction is then ignored.
func WithOverlapModel(m OverlapModel) Option {
	return func(a *Analyser) { a.models.overlap, a.models.pinOverlap = m, true }
}

// New copies raw and applies cfg, or config.Default when cfg is nil.
func New(raw RawProfile, cfg *config.AnalysisConfig, opts ...Option) (*Analyser, error) {
	if err := raw.validate(); err != nil {
		return nil, err
	}
	a := &Analyser{
		raw:    raw.clone(),
		loader: FileModelLoader{},
		clock:  timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := a.setConfigLocked(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// SetConfig validates and applies a copy of cfg, reloading any model whose
// source changed. On error the previous configuration stays in effect.
// Results of earlier passes are discarded.
func (a *Analyser) SetConfig(cfg *config.AnalysisConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.setConfigLocked(cfg)
}

func (a *Analyser) setConfigLocked(cfg *config.AnalysisConfig) error {
	next := cfg.Clone()
	if err := next.Validate(); err != nil {
		return err
	}
	g, err := newGeometry(a.raw.Range, next)
	if err != nil {
		return err
	}
	models := a.models
	if err := models.refresh(a.loader, next); err != nil {
		return err
	}
	a.cfg, a.geom, a.models = next, g, models
	a.reset()
	monitoring.Diagf("analyser: window %d..%d (%d samples), cos(theta)=%.4f",
		g.MinIndex, g.MaxIndex, g.N(), g.CosTheta)
	return nil
}

// OverwriteParam sets one key of the current configuration, using the
// key=value vocabulary of config.Set, and re-applies it.
func (a *Analyser) OverwriteParam(key, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.cfg.Clone()
	if err := next.Set(key, value); err != nil {
		return err
	}
	return a.setConfigLocked(next)
}

// Config returns a copy of the configuration in effect.
func (a *Analyser) Config() *config.AnalysisConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Clone()
}

// ConfigParams returns the configuration as key=value strings.
func (a *Analyser) ConfigParams() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Params()
}

// EffectiveParams returns the per-wavelength parameters the last pass
// actually used, after optimisation.
func (a *Analyser) EffectiveParams(wl int) (config.WavelengthParams, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.effective[wl]; ok {
		return p, nil
	}
	if _, ok := a.raw.Signals[wl]; !ok {
		return config.WavelengthParams{}, fmt.Errorf("%w: %d nm", ErrUnknownWavelength, wl)
	}
	return config.WavelengthParams{}, fmt.Errorf("%w: %d nm", ErrNotProcessed, wl)
}

// CommitOptimized writes the effective parameters of the last pass into
// the configuration. Results are discarded as for SetConfig.
func (a *Analyser) CommitOptimized() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.effective) == 0 {
		return nil
	}
	next := a.cfg.Clone()
	for wl, p := range a.effective {
		next.SetWavelength(wl, p)
	}
	return a.setConfigLocked(next)
}

func (a *Analyser) reset() {
	a.bins = nil
	a.results = make(map[int]*wavelengthResult)
	a.effective = make(map[int]config.WavelengthParams)
}

// Process runs every wavelength of the profile. Per-wavelength failures are
// collected; the report describes the successful ones.
func (a *Analyser) Process() (*Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rep := &Report{
		RunID:       uuid.NewString(),
		RunNumber:   a.raw.RunNumber,
		SeqNumber:   a.raw.SeqNumber,
		Timestamp:   a.raw.Timestamp,
		Algorithm:   a.cfg.AlgName,
		StartedAt:   a.clock.Now(),
		Wavelengths: a.raw.Wavelengths(),
		Summaries:   make(map[int]Summary),
		Failures:    make(map[int]string),
	}
	a.reset()
	if err := a.prepareBinning(); err != nil {
		rep.FinishedAt = a.clock.Now()
		return rep, err
	}

	var errs []error
	for _, wl := range rep.Wavelengths {
		res, err := a.processWavelength(wl)
		if err != nil {
			monitoring.Opsf("analyser: %d nm: %v", wl, err)
			rep.Failures[wl] = err.Error()
			errs = append(errs, fmt.Errorf("%d nm: %w", wl, err))
			continue
		}
		rep.Summaries[wl] = res.summary()
	}
	rep.FinishedAt = a.clock.Now()
	monitoring.Diagf("analyser: run %s processed %d/%d wavelengths in %s",
		rep.RunID, len(rep.Summaries), len(rep.Wavelengths), a.clock.Since(rep.StartedAt))
	return rep, errors.Join(errs...)
}

// ProcessWavelength runs the pipeline for a single wavelength, reusing the
// binning of the current pass.
func (a *Analyser) ProcessWavelength(wl int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bins == nil {
		if err := a.prepareBinning(); err != nil {
			return err
		}
	}
	_, err := a.processWavelength(wl)
	return err
}

func (a *Analyser) prepareBinning() error {
	if a.cfg.LogBins {
		b := logBinning(a.cfg.AltMin, a.cfg.AltMax, a.cfg.NBins)
		a.bins = &b
		return nil
	}
	b, err := glidingBinning(a.geom.Altitude(), a.cfg.AltMin, a.cfg.AltMax, a.cfg.NBins)
	if err != nil {
		return err
	}
	if b.NBins() != a.cfg.NBins {
		monitoring.Diagf("analyser: gliding window of %d samples gives %d bins (NBins %d)", b.Width, b.NBins(), a.cfg.NBins)
	}
	a.bins = &b
	return nil
}

func (a *Analyser) processWavelength(wl int) (*wavelengthResult, error) {
	signal, ok := a.raw.Signals[wl]
	if !ok {
		return nil, fmt.Errorf("%w: %d nm", ErrUnknownWavelength, wl)
	}
	cfg, g, bins := a.cfg, a.geom, *a.bins
	res := &wavelengthResult{wavelength: wl, bins: bins}
	a.results[wl] = res

	minimum, ok := checkQuality(signal, cfg.QualityThr)
	res.signalMin, res.quality = minimum, ok
	if !ok {
		return nil, &QualityError{Wavelength: wl, Minimum: minimum, Threshold: cfg.QualityThr}
	}

	res.background, res.backgroundWindow = background(signal, g, cfg.BkgMin, cfg.BkgMax, cfg.BkgFudgeFactor)
	if res.backgroundWindow == nil {
		monitoring.Opsf("analyser: %d nm: no samples in background window %.0f..%.0f m; background set to 0",
			wl, cfg.BkgMin, cfg.BkgMax)
	}
	res.reduced = reduceSignal(signal, g, res.background)
	res.power = rangeCorrect(res.reduced, g, a.models.overlapAt)

	working := res.power
	if cfg.SGFilter {
		f, err := smooth(res.power)
		if err != nil {
			return nil, err
		}
		res.filtered = f
		working = f
	}

	if bins.Gliding {
		mean, dev, err := rebinGliding(working, bins)
		if err != nil {
			return nil, err
		}
		res.binned, res.binnedDev = mean, dev
	} else {
		var empty int
		res.binned, empty = rebinLog(g.Altitude(), working, bins)
		if empty > 0 {
			monitoring.Opsf("analyser: %d nm: %d of %d bins empty", wl, empty, bins.NBins())
		}
	}

	params := cfg.ForWavelength(wl)
	res.configuredR0 = params.R0
	if cfg.OptimizeR0 {
		r, err := optimizeR0(res.binned, res.binnedDev, bins.Edges, params.R0, cfg.SNRatioThreshold)
		switch {
		case errors.Is(err, ErrNoNoiseEstimate):
			monitoring.Diagf("analyser: %d nm: R0 optimisation skipped, logarithmic bins carry no deviation", wl)
		case err != nil:
			return nil, err
		default:
			if r.Adjusted {
				monitoring.Diagf("analyser: %d nm: R0 lowered %.0f -> %.0f m (SNR %.3g)", wl, params.R0, r.R0, r.SNR)
			}
			params.R0 = r.R0
		}
	}

	n, err := referenceBins(bins.Edges, params.R0)
	if err != nil {
		return nil, err
	}
	res.refBins = n
	if res.binnedDev != nil {
		idx := min(n, len(res.binned)-1)
		s := snr(res.binned[idx], res.binnedDev[idx])
		res.snrAtR0 = &s
	}

	in := InversionInput{
		Wavelength:    wl,
		Power:         res.binned,
		Centers:       bins.Centers,
		Bins:          n,
		CosTheta:      g.CosTheta,
		LidarAltitude: cfg.LidarAltitude,
		LidarRatio:    params.LidarRatio,
		AlignCorr:     params.AlignCorr,
		SRatio:        cfg.FernaldSRatio,
		KlettK:        cfg.KlettK,
		KlettL:        cfg.KlettL,
		Molecular:     a.models.molecular,
		Absorption:    a.models.absorption,
	}
	if cfg.OptimizeAC {
		ac, err := optimizeAC(in, cfg.OptimizeACHmin)
		res.acResiduals = ac.Residuals
		if err != nil {
			monitoring.Opsf("analyser: %d nm: alignment optimisation failed, keeping %.2f: %v", wl, params.AlignCorr, err)
		} else {
			monitoring.Diagf("analyser: %d nm: alignment correction %.2f (residual %.3g)", wl, ac.AlignCorr, ac.Residual)
			params.AlignCorr = ac.AlignCorr
		}
	}
	in.AlignCorr = params.AlignCorr
	a.effective[wl] = params
	res.params = params

	inv, err := InverterFor(cfg.AlgName)
	if err != nil {
		return nil, err
	}
	prof, err := inv.Invert(in)
	if err != nil {
		return nil, err
	}
	res.profiles = &prof
	res.opacity = integrateOpacity(prof, bins.Edges, cfg.TauAltMin, cfg.TauAltMax)
	monitoring.Diagf("analyser: %d nm: %s over %d bins, OD total %.4f particulate %.4f",
		wl, inv.Name(), n, res.opacity.OD.Total, res.opacity.OD.Particulate)
	return res, nil
}
