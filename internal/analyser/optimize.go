package analyser

import (
	"fmt"
	"math"

	"github.com/banshee-data/atmolidar/internal/atmo/rayleigh"
	"github.com/banshee-data/atmolidar/internal/monitoring"
)

// AC candidates scanned by optimizeAC: 0, 0.01, ..., 0.20.
const (
	acCandidates = 21
	acStep       = 0.01
)

// referenceBins returns how many bins lie at or below r0: the count n such
// that edges[n] <= r0, starting from the full grid.
func referenceBins(edges []float64, r0 float64) (int, error) {
	n := len(edges) - 1
	for n > 0 && edges[n] > r0 {
		n--
	}
	if n < 2 {
		return n, fmt.Errorf("%w: R0 %.0f m leaves %d bins", ErrReferenceOutOfRange, r0, n)
	}
	return n, nil
}

// snr is signal over deviation, guarding a zero deviation.
func snr(power, dev float64) float64 {
	if dev == 0 {
		if power > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return power / dev
}

// R0Result is the outcome of the reference-altitude search.
type R0Result struct {
	R0 float64
	// Index is the bin whose SNR was accepted.
	Index int
	SNR   float64
	// Adjusted is set when R0 was lowered.
	Adjusted bool
}

// optimizeR0 lowers the reference until the bin SNR reaches threshold.
// The binned power is not modified.
func optimizeR0(power, dev, edges []float64, r0, threshold float64) (R0Result, error) {
	if dev == nil {
		return R0Result{R0: r0}, ErrNoNoiseEstimate
	}
	n, err := referenceBins(edges, r0)
	if err != nil {
		return R0Result{R0: r0}, err
	}
	idx := min(n, len(power)-1, len(dev)-1)
	s := snr(power[idx], dev[idx])
	if s >= threshold {
		return R0Result{R0: r0, Index: idx, SNR: s}, nil
	}
	for s < threshold {
		monitoring.Tracef("analyser: R0 search bin %d edge %.0f m SNR %.3g", idx, edges[idx], s)
		if idx == 0 {
			return R0Result{R0: r0, SNR: s}, fmt.Errorf("%w: no bin reaches SNR %.3g", ErrReferenceOutOfRange, threshold)
		}
		idx--
		s = snr(power[idx], dev[idx])
	}
	return R0Result{R0: edges[idx], Index: idx, SNR: s, Adjusted: true}, nil
}

// ACResult is the outcome of the alignment-correction scan.
type ACResult struct {
	AlignCorr float64
	Residual  float64
	// Residuals holds one entry per candidate; NaN where the candidate
	// could not be evaluated.
	Residuals []float64
}

// optimizeAC scans alignment corrections and keeps the one whose
// pure-Rayleigh Fernald inversion leaves the least particulate extinction
// above hmin (m a.s.l.).
func optimizeAC(in InversionInput, hmin float64) (ACResult, error) {
	if in.Molecular == nil {
		return ACResult{}, fmt.Errorf("%w: alignment optimisation needs an atmosphere profile", ErrModelUnavailable)
	}
	in.LidarRatio = rayleigh.LidarRatio
	in.SRatio = 1

	res := ACResult{Residual: math.Inf(1), Residuals: make([]float64, acCandidates)}
	found := false
	for k := range acCandidates {
		in.AlignCorr = float64(k) * acStep
		r := math.NaN()
		if p, err := (Fernald84{}).Invert(in); err == nil {
			r = particulateResidual(p.AlphaP, in.Centers, in.Bins, in.LidarAltitude, hmin)
		} else {
			monitoring.Tracef("analyser: AC candidate %.2f failed: %v", in.AlignCorr, err)
		}
		res.Residuals[k] = r
		monitoring.Tracef("analyser: AC candidate %.2f residual %.4g", in.AlignCorr, r)
		if finite(r) && r < res.Residual {
			res.Residual = r
			res.AlignCorr = in.AlignCorr
			found = true
		}
	}
	if !found {
		return res, fmt.Errorf("%w: no alignment candidate produced a finite residual", ErrNumeric)
	}
	return res, nil
}

// particulateResidual is the mean squared particulate extinction over the
// bins from the reference down to hmin.
func particulateResidual(alphaP, centers []float64, n int, lidarAlt, hmin float64) float64 {
	sum, count := 0.0, 0
	for i := n - 1; i >= 0 && centers[i]+lidarAlt > hmin; i-- {
		sum += alphaP[i] * alphaP[i]
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}
