package analyser

import (
	"time"

	"github.com/banshee-data/atmolidar/internal/config"
)

// Summary is the per-wavelength outcome of a pass. SNRAtR0 is absent for
// logarithmic bins.
type Summary struct {
	Wavelength          int           `json:"wavelength_nm"`
	SignalMinimum       float64       `json:"signal_minimum_v"`
	Background          float64       `json:"background_v"`
	BackgroundSamples   int           `json:"background_samples"`
	R0                  float64       `json:"r0_m"`
	R0Adjusted          bool          `json:"r0_adjusted"`
	LidarRatio          float64       `json:"lidar_ratio_sr"`
	AlignCorr           float64       `json:"align_corr"`
	SNRAtR0             *float64      `json:"snr_at_r0,omitempty"`
	Bins                int           `json:"bins"`
	ReferenceExtinction float64       `json:"reference_extinction_per_m"`
	OpticalDepth        OpticalDepths `json:"optical_depth"`
}

// Report describes one Process call.
type Report struct {
	RunID       string           `json:"run_id"`
	RunNumber   int              `json:"run_number"`
	SeqNumber   int              `json:"seq_number"`
	Timestamp   time.Time        `json:"timestamp"`
	Algorithm   config.Algorithm `json:"algorithm"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Wavelengths []int            `json:"wavelengths"`
	Summaries   map[int]Summary  `json:"summaries"`
	Failures    map[int]string   `json:"failures,omitempty"`
}

// Duration is the wall time of the pass.
func (r *Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// OK reports whether every wavelength was processed.
func (r *Report) OK() bool { return len(r.Failures) == 0 }
