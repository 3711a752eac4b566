package analyser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/atmolidar/internal/config"
)

func TestStatusCode(t *testing.T) {
	q := func(wl int) error {
		return fmt.Errorf("%d nm: %w", wl, &QualityError{Wavelength: wl, Minimum: 0.1, Threshold: -5})
	}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, StatusOK},
		{"one quality failure", q(355), 1},
		{"two quality failures", errors.Join(q(355), q(532)), 2},
		{"unknown algorithm", fmt.Errorf("%w: %q", config.ErrUnknownAlgorithm, "Mie"), StatusFailure},
		{"model load", fmt.Errorf("%w: missing", ErrModelLoad), StatusFailure},
		{"quality plus numeric", errors.Join(q(355), ErrNumeric), StatusFailure},
		{"insufficient data", fmt.Errorf("%w: 4 samples", ErrInsufficientData), StatusInsufficientData},
		{"insufficient data joined", errors.Join(q(355), ErrInsufficientData), StatusInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestQualityError(t *testing.T) {
	err := error(&QualityError{Wavelength: 532, Minimum: 0.01, Threshold: -5})
	assert.ErrorIs(t, err, ErrQualityFailure)
	assert.Contains(t, err.Error(), "532 nm")
}
