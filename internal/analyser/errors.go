package analyser

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when the raw range has fewer than
	// MinSamples samples or the working window is empty.
	ErrInsufficientData = errors.New("insufficient range samples")
	// ErrInvalidProfile is returned for malformed raw input.
	ErrInvalidProfile = errors.New("invalid raw profile")
	// ErrQualityFailure is wrapped by *QualityError.
	ErrQualityFailure = errors.New("signal quality check failed")
	// ErrUnknownWavelength is returned for a wavelength not in the raw profile.
	ErrUnknownWavelength = errors.New("unknown wavelength")
	// ErrNotProcessed is returned by getters before the wavelength has been processed.
	ErrNotProcessed = errors.New("wavelength not processed")
	// ErrModelUnavailable is returned when an inversion needs a model that is not configured.
	ErrModelUnavailable = errors.New("atmosphere model not configured")
	// ErrModelLoad wraps failures to read or parse a model table.
	ErrModelLoad = errors.New("atmosphere model could not be loaded")
	// ErrReferenceOutOfRange is returned when R0 does not leave enough bins below it.
	ErrReferenceOutOfRange = errors.New("reference altitude outside binned range")
	// ErrNoNoiseEstimate is returned by the R0 optimiser without per-bin deviations.
	ErrNoNoiseEstimate = errors.New("no per-bin noise estimate")
	// ErrNumeric is returned when a recursion meets a zero or non-finite denominator.
	ErrNumeric = errors.New("numeric failure")
)

// QualityError reports a wavelength whose raw signal lacks the calibration
// spike.
type QualityError struct {
	Wavelength int
	Minimum    float64
	Threshold  float64
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("%d nm: signal minimum %.3g V not below threshold %.3g V", e.Wavelength, e.Minimum, e.Threshold)
}

func (e *QualityError) Unwrap() error { return ErrQualityFailure }

// Status codes returned by StatusCode.
const (
	StatusOK               = 0
	StatusFailure          = 2
	StatusInsufficientData = 3
)

// StatusCode maps an error from New, SetConfig or Process to a process exit
// status: 0 for nil, 3 for insufficient data, the number of quality
// failures when those are the only errors, and 2 for anything else
// (unknown algorithm, unreadable model, numeric failure).
func StatusCode(err error) int {
	if err == nil {
		return StatusOK
	}
	if errors.Is(err, ErrInsufficientData) {
		return StatusInsufficientData
	}
	leaves := flatten(err)
	quality := 0
	for _, e := range leaves {
		var qe *QualityError
		if errors.As(e, &qe) {
			quality++
			continue
		}
		return StatusFailure
	}
	return quality
}

// flatten expands errors.Join trees into their leaves.
func flatten(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
