package analyser

import (
	"fmt"
	"math"

	"github.com/banshee-data/atmolidar/internal/atmo/rayleigh"
	"github.com/banshee-data/atmolidar/internal/config"
)

// InversionInput is everything an inversion needs for one wavelength.
type InversionInput struct {
	Wavelength int
	// Power is the binned range-corrected power; only the first Bins
	// entries are used.
	Power []float64
	// Centers are the bin centres in metres above the instrument.
	Centers []float64
	// Bins is the number of bins at or below R0; the reference bin is
	// Bins-1.
	Bins          int
	CosTheta      float64
	LidarAltitude float64

	LidarRatio float64
	AlignCorr  float64
	SRatio     float64
	KlettK     float64
	KlettL     float64

	Molecular  MolecularModel
	Absorption AbsorptionModel
}

// refAltitude is the reference height between the two topmost bins used.
func (in InversionInput) refAltitude() float64 {
	return (in.Centers[in.Bins-1] + in.Centers[in.Bins-2]) / 2
}

// slab returns the vertical thickness along the beam and mid height of the
// slab between bins i and i+1.
func (in InversionInput) slab(i int) (dz, mid float64) {
	return (in.Centers[i+1] - in.Centers[i]) / in.CosTheta, (in.Centers[i+1] + in.Centers[i]) / 2
}

func (in InversionInput) check() error {
	if in.Bins < 2 || in.Bins > len(in.Power) || in.Bins > len(in.Centers) {
		return fmt.Errorf("%w: %d bins below R0", ErrReferenceOutOfRange, in.Bins)
	}
	return nil
}

func (in InversionInput) modelExtinction(h float64) float64 {
	if in.Absorption == nil {
		return 0
	}
	return in.Absorption.Extinction(float64(in.Wavelength), h+in.LidarAltitude, 1)
}

func (in InversionInput) molecularExtinction(h float64) (float64, error) {
	a, err := in.Molecular.Extinction(in.Wavelength, h+in.LidarAltitude)
	if err != nil {
		return 0, fmt.Errorf("%w: molecular extinction at %.0f m: %w", ErrNumeric, h, err)
	}
	return a, nil
}

// Profiles holds the inversion output on the first Bins bins. Molecular
// and particulate slices are nil for Klett.
type Profiles struct {
	Alpha, Beta   []float64
	AlphaM, BetaM []float64
	AlphaP, BetaP []float64
	// AlphaModel is the absorption-table extinction on the same grid.
	AlphaModel []float64
	// Alpha0 is the extinction used to seed the reference bin.
	Alpha0 float64
}

// Inverter solves the lidar equation for one wavelength.
type Inverter interface {
	Name() config.Algorithm
	Invert(in InversionInput) (Profiles, error)
}

// InverterFor returns the inversion for alg.
func InverterFor(alg config.Algorithm) (Inverter, error) {
	switch alg {
	case config.AlgKlett:
		return Klett{}, nil
	case config.AlgFernald84:
		return Fernald84{}, nil
	case config.AlgAeronet:
		return Aeronet{}, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownAlgorithm, alg)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// divide returns num/den and fails on a zero or non-finite result.
func divide(num, den float64, what string, bin int) (float64, error) {
	if den == 0 || !finite(den) {
		return 0, fmt.Errorf("%w: %s denominator %g at bin %d", ErrNumeric, what, den, bin)
	}
	v := num / den
	if !finite(v) {
		return 0, fmt.Errorf("%w: %s %g at bin %d", ErrNumeric, what, v, bin)
	}
	return v, nil
}

// Klett is the single-component backward inversion with beta = L*alpha^k,
// seeded from the absorption-table extinction at the reference height.
type Klett struct{}

func (Klett) Name() config.Algorithm { return config.AlgKlett }

func (Klett) Invert(in InversionInput) (Profiles, error) {
	if err := in.check(); err != nil {
		return Profiles{}, err
	}
	if in.Absorption == nil {
		return Profiles{}, fmt.Errorf("%w: Klett needs an absorption table", ErrModelUnavailable)
	}
	n := in.Bins
	out := Profiles{
		Alpha:      make([]float64, n),
		Beta:       make([]float64, n),
		AlphaModel: make([]float64, n),
	}
	alpha0 := in.modelExtinction(in.refAltitude())
	if !(alpha0 > 0) {
		return Profiles{}, fmt.Errorf("%w: reference extinction %g", ErrNumeric, alpha0)
	}
	out.Alpha0 = alpha0
	out.Alpha[n-1] = alpha0
	out.AlphaModel[n-1] = alpha0
	out.Beta[n-1] = in.KlettL * math.Pow(alpha0, in.KlettK)

	invK := 1 / in.KlettK
	for i := n - 2; i >= 0; i-- {
		dz, mid := in.slab(i)
		out.AlphaModel[i] = in.modelExtinction(mid)
		si := math.Pow(in.Power[i], invK)
		sj := math.Pow(in.Power[i+1], invK)
		den := sj/out.Alpha[i+1] - 2*((sj+si)/2*dz)
		a, err := divide(si, den, "Klett", i)
		if err != nil {
			return Profiles{}, err
		}
		out.Alpha[i] = a
		out.Beta[i] = in.KlettL * math.Pow(a, in.KlettK)
	}
	return out, nil
}

// Fernald84 is the two-component inversion separating molecular and
// particulate scattering with a fixed particulate lidar ratio.
type Fernald84 struct{}

func (Fernald84) Name() config.Algorithm { return config.AlgFernald84 }

func (Fernald84) Invert(in InversionInput) (Profiles, error) {
	if err := in.check(); err != nil {
		return Profiles{}, err
	}
	if in.Molecular == nil {
		return Profiles{}, fmt.Errorf("%w: Fernald84 needs an atmosphere profile", ErrModelUnavailable)
	}
	n := in.Bins
	sr, sp := rayleigh.LidarRatio, in.LidarRatio
	out := newTwoComponent(n)

	ref := in.refAltitude()
	alpha0, err := in.molecularExtinction(ref)
	if err != nil {
		return Profiles{}, err
	}
	out.seedReference(n-1, alpha0, sp, in.SRatio)
	out.AlphaModel[n-1] = in.modelExtinction(ref)

	pw := make([]float64, n)
	copy(pw, in.Power[:n])
	for i := n - 2; i >= 0; i-- {
		dz, mid := in.slab(i)
		out.AlphaModel[i] = in.modelExtinction(mid)
		am, err := in.molecularExtinction(mid)
		if err != nil {
			return Profiles{}, err
		}
		out.AlphaM[i] = am
		out.BetaM[i] = am / sr

		a := (sp - sr) * (out.BetaM[i] + out.BetaM[i+1]) * dz
		pw[i] = in.Power[i] * (1 + in.AlignCorr*math.Sqrt(math.Abs(10000-in.LidarAltitude-mid)/1000))

		num := pw[i] * math.Exp(a)
		ratio, err := divide(pw[i+1], out.Beta[i+1], "Fernald84 backscatter", i+1)
		if err != nil {
			return Profiles{}, err
		}
		beta, err := divide(num, ratio+sp*(pw[i+1]+num)*dz, "Fernald84", i)
		if err != nil {
			return Profiles{}, err
		}
		out.Beta[i] = beta
		out.BetaP[i] = beta - out.BetaM[i]
		out.AlphaP[i] = sp * out.BetaP[i]
		out.Alpha[i] = out.AlphaM[i] + out.AlphaP[i]
	}
	return out, nil
}

// Aeronet is the closed-form two-component solution normalised at the
// single reference sample.
type Aeronet struct{}

func (Aeronet) Name() config.Algorithm { return config.AlgAeronet }

func (Aeronet) Invert(in InversionInput) (Profiles, error) {
	if err := in.check(); err != nil {
		return Profiles{}, err
	}
	if in.Molecular == nil {
		return Profiles{}, fmt.Errorf("%w: Aeronet needs an atmosphere profile", ErrModelUnavailable)
	}
	n := in.Bins
	sr, sp := rayleigh.LidarRatio, in.LidarRatio
	ratio := sp / sr
	out := newTwoComponent(n)

	ref := in.refAltitude()
	alpha0, err := in.molecularExtinction(ref)
	if err != nil {
		return Profiles{}, err
	}
	out.seedReference(n-1, alpha0, sp, in.SRatio)
	out.AlphaModel[n-1] = in.modelExtinction(ref)

	dz := make([]float64, n)
	for i := n - 2; i >= 0; i-- {
		var mid float64
		dz[i], mid = in.slab(i)
		out.AlphaModel[i] = in.modelExtinction(mid)
		if out.AlphaM[i], err = in.molecularExtinction(mid); err != nil {
			return Profiles{}, err
		}
	}

	// Integrals from the reference downwards, negated.
	q1 := make([]float64, n)
	cum := 0.0
	for i := n - 2; i >= 0; i-- {
		cum += 0.5 * dz[i] * (out.AlphaM[i+1] + out.AlphaM[i])
		q1[i] = -cum
	}
	for i := range q1 {
		q1[i] = math.Exp(-2 * (ratio - 1) * q1[i])
	}
	q2 := make([]float64, n)
	cum = 0
	for i := n - 2; i >= 0; i-- {
		cum += 0.5 * dz[i] * (in.Power[i+1]*q1[i+1] + in.Power[i]*q1[i])
		q2[i] = 2 * sp * -cum
	}

	sref := in.Power[n-1]
	norm, err := divide(sp*sref, out.AlphaP[n-1]+ratio*out.AlphaM[n-1], "Aeronet normalisation", n-1)
	if err != nil {
		return Profiles{}, err
	}
	for i := 0; i < n; i++ {
		v, err := divide(sp*in.Power[i]*q1[i], norm-q2[i], "Aeronet", i)
		if err != nil {
			return Profiles{}, err
		}
		out.AlphaP[i] = v - ratio*out.AlphaM[i]
		out.BetaP[i] = out.AlphaP[i] / sp
		out.Alpha[i] = out.AlphaP[i] + out.AlphaM[i]
		out.BetaM[i] = out.AlphaM[i] / sr
		out.Beta[i] = out.BetaP[i] + out.BetaM[i]
	}
	return out, nil
}

func newTwoComponent(n int) Profiles {
	return Profiles{
		Alpha:      make([]float64, n),
		Beta:       make([]float64, n),
		AlphaM:     make([]float64, n),
		BetaM:      make([]float64, n),
		AlphaP:     make([]float64, n),
		BetaP:      make([]float64, n),
		AlphaModel: make([]float64, n),
	}
}

// seedReference fills bin k assuming scattering ratio sratio over the
// molecular extinction alpha0.
func (p *Profiles) seedReference(k int, alpha0, sp, sratio float64) {
	p.Alpha0 = alpha0
	p.AlphaM[k] = alpha0
	p.BetaM[k] = alpha0 / rayleigh.LidarRatio
	p.BetaP[k] = p.BetaM[k] * (sratio - 1)
	p.AlphaP[k] = p.BetaP[k] * sp
	p.Alpha[k] = p.AlphaM[k] + p.AlphaP[k]
	p.Beta[k] = p.BetaM[k] + p.BetaP[k]
}
