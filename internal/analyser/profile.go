package analyser

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// MinSamples is the smallest raw trace the analyser accepts.
const MinSamples = 10

// RawProfile is one acquisition: a shared range axis and one signal trace
// per wavelength.
type RawProfile struct {
	// Range is the distance along the beam in km, strictly increasing.
	Range []float64
	// Signals maps wavelength (nm) to the raw voltage trace.
	Signals   map[int][]float64
	RunNumber int
	SeqNumber int
	Timestamp time.Time
}

// Wavelengths returns the wavelengths present, ascending.
func (p RawProfile) Wavelengths() []int {
	return slices.Sorted(maps.Keys(p.Signals))
}

// validate checks the shape of the profile.
func (p RawProfile) validate() error {
	if len(p.Range) < MinSamples {
		return fmt.Errorf("%w: %d samples, need at least %d", ErrInsufficientData, len(p.Range), MinSamples)
	}
	if len(p.Signals) == 0 {
		return fmt.Errorf("%w: no signal traces", ErrInvalidProfile)
	}
	for i := 1; i < len(p.Range); i++ {
		if !(p.Range[i] > p.Range[i-1]) {
			return fmt.Errorf("%w: range not strictly increasing at sample %d", ErrInvalidProfile, i)
		}
	}
	for wl, s := range p.Signals {
		if len(s) != len(p.Range) {
			return fmt.Errorf("%w: %d nm trace has %d samples, range has %d", ErrInvalidProfile, wl, len(s), len(p.Range))
		}
	}
	return nil
}

func (p RawProfile) clone() RawProfile {
	out := p
	out.Range = slices.Clone(p.Range)
	out.Signals = make(map[int][]float64, len(p.Signals))
	for wl, s := range p.Signals {
		out.Signals[wl] = slices.Clone(s)
	}
	return out
}

// Component selects which part of an extinction, backscatter or opacity
// profile a getter returns.
type Component string

const (
	Total       Component = "T"
	Molecular   Component = "M"
	Particulate Component = "P"
)

// ParseComponent accepts "T", "M" or "P".
func ParseComponent(s string) (Component, error) {
	switch c := Component(s); c {
	case Total, Molecular, Particulate:
		return c, nil
	}
	return "", fmt.Errorf("unknown component %q (want T, M or P)", s)
}
