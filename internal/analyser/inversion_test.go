package analyser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/atmolidar/internal/atmo/rayleigh"
	"github.com/banshee-data/atmolidar/internal/config"
)

const molecularExt = 1e-5

func rayleighInput(n int) InversionInput {
	centers := uniformCenters(n, 1000, 80)
	return InversionInput{
		Wavelength: 532,
		Power:      twoComponentPower(centers, molecularExt),
		Centers:    centers,
		Bins:       n,
		CosTheta:   1,
		LidarRatio: rayleigh.LidarRatio,
		SRatio:     1,
		KlettK:     1,
		KlettL:     1,
		Molecular:  constMolecular(molecularExt),
	}
}

func TestTwoComponentRoundTrip(t *testing.T) {
	for _, inv := range []Inverter{Fernald84{}, Aeronet{}} {
		t.Run(string(inv.Name()), func(t *testing.T) {
			in := rayleighInput(100)
			p, err := inv.Invert(in)
			require.NoError(t, err)

			require.Len(t, p.Alpha, in.Bins)
			assert.InDelta(t, molecularExt, p.Alpha0, 1e-18)
			for i := range p.Alpha {
				assert.InDelta(t, molecularExt, p.Alpha[i], 1e-12, "alpha bin %d", i)
				assert.InDelta(t, molecularExt, p.AlphaM[i], 1e-18, "alpha_m bin %d", i)
				assert.InDelta(t, 0, p.AlphaP[i], 1e-12, "alpha_p bin %d", i)
				assert.InDelta(t, molecularExt/rayleigh.LidarRatio, p.Beta[i], 1e-13, "beta bin %d", i)
			}
		})
	}
}

func TestFernaldUsesOnlyBinsBelowReference(t *testing.T) {
	in := rayleighInput(100)
	in.Bins = 60
	p, err := Fernald84{}.Invert(in)
	require.NoError(t, err)
	assert.Len(t, p.Alpha, 60)
	assert.Len(t, p.BetaP, 60)
}

func TestKlettRoundTrip(t *testing.T) {
	const alpha = 2e-5
	centers := uniformCenters(80, 500, 50)
	in := InversionInput{
		Wavelength: 355,
		Power:      klettPower(centers, alpha),
		Centers:    centers,
		Bins:       len(centers),
		CosTheta:   1,
		KlettK:     1,
		KlettL:     1,
		Absorption: constAbsorption(alpha),
	}
	p, err := Klett{}.Invert(in)
	require.NoError(t, err)

	assert.Equal(t, alpha, p.Alpha0)
	assert.Nil(t, p.AlphaM)
	assert.Nil(t, p.AlphaP)
	for i := range p.Alpha {
		assert.InDelta(t, alpha, p.Alpha[i], 1e-12, "bin %d", i)
		assert.InDelta(t, alpha, p.Beta[i], 1e-12, "bin %d", i)
		assert.Equal(t, alpha, p.AlphaModel[i])
	}
}

func TestInversionModelRequirements(t *testing.T) {
	in := rayleighInput(20)
	noMolecular := in
	noMolecular.Molecular = nil

	tests := []struct {
		name string
		inv  Inverter
		in   InversionInput
	}{
		{"Klett without absorption", Klett{}, in},
		{"Fernald84 without profile", Fernald84{}, noMolecular},
		{"Aeronet without profile", Aeronet{}, noMolecular},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.inv.Invert(tt.in)
			assert.ErrorIs(t, err, ErrModelUnavailable)
		})
	}
}

func TestInversionNeedsTwoBins(t *testing.T) {
	in := rayleighInput(20)
	in.Bins = 1
	_, err := Fernald84{}.Invert(in)
	assert.ErrorIs(t, err, ErrReferenceOutOfRange)
}

func TestFernaldZeroPowerIsNumericFailure(t *testing.T) {
	in := rayleighInput(20)
	in.Power = make([]float64, 20)
	_, err := Fernald84{}.Invert(in)
	assert.ErrorIs(t, err, ErrNumeric)
}

func TestKlettNonPositiveSeed(t *testing.T) {
	in := rayleighInput(20)
	in.Absorption = constAbsorption(0)
	_, err := Klett{}.Invert(in)
	assert.ErrorIs(t, err, ErrNumeric)
}

func TestInverterFor(t *testing.T) {
	for _, alg := range config.Algorithms {
		inv, err := InverterFor(alg)
		require.NoError(t, err)
		assert.Equal(t, alg, inv.Name())
	}
	_, err := InverterFor("Mie")
	assert.True(t, errors.Is(err, config.ErrUnknownAlgorithm))
}
