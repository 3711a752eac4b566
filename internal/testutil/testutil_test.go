package testutil

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/atmolidar/internal/atmo/absorption"
	"github.com/banshee-data/atmolidar/internal/atmo/overlap"
	"github.com/banshee-data/atmolidar/internal/atmo/profile"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestAssertNoError_FailurePath(t *testing.T) {
	t.Parallel()

	ok := t.Run("non-nil error", func(t *testing.T) {
		AssertNoError(t, errors.New("boom"))
	})
	if ok {
		t.Fatal("expected subtest to fail on non-nil error")
	}
}

func TestAssertError(t *testing.T) {
	t.Parallel()
	AssertError(t, errors.New("boom"))
}

func TestAssertError_FailurePath(t *testing.T) {
	t.Parallel()

	ok := t.Run("nil error", func(t *testing.T) {
		AssertError(t, nil)
	})
	if ok {
		t.Fatal("expected subtest to fail on nil error")
	}
}

func TestRangeKm(t *testing.T) {
	r := RangeKm(5, 20)
	assert.Equal(t, []float64{0, 5, 10, 15, 20}, r)
}

func TestSpikedTrace(t *testing.T) {
	s := SpikedTrace(4, 0.01, -6)
	assert.Equal(t, []float64{-6, 0.01, 0.01, 0.01}, s)
}

func TestFixturesParse(t *testing.T) {
	mfs := ModelFS()

	tab, err := absorption.Load(mfs, AbsorptionPath, 1800)
	require.NoError(t, err)
	first, last := tab.Wavelengths()
	assert.Equal(t, 350, first)
	assert.Equal(t, 550, last)
	assert.InDelta(t, AbsorptionSlope(532), tab.OpticalDepth(532, 18000), 1e-7)
	assert.Greater(t, tab.Extinction(532, 5000, 1), 0.0)

	p, err := profile.Load(mfs, ProfilePath)
	require.NoError(t, err)
	assert.InDelta(t, 1013.25, p.Pressure(0), 1e-9)

	o, err := overlap.Load(mfs, OverlapPath)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, o.Overlap(300), 1e-12)
	assert.InDelta(t, 1.0, o.Overlap(1500), 1e-12)
}

func TestAbsorptionTableHeader(t *testing.T) {
	first := strings.SplitN(AbsorptionTable(350, 1), "\n", 3)[1]
	assert.True(t, strings.HasPrefix(first, "# H2= 1.800, H1="), first)
}
