// Package analyser turns raw elastic-backscatter lidar traces into
// extinction, backscatter, optical depth and transmission profiles.
//
// An Analyser owns one raw profile and one configuration. Process runs,
// for every wavelength in the profile:
//
//	quality gate -> background subtraction -> range-squared power
//	-> optional Savitzky-Golay smoothing -> altitude rebinning
//	-> R0 optimisation -> alignment-correction optimisation
//	-> Klett | Fernald84 | Aeronet inversion -> opacity and transmission
//
// Altitudes are metres above the instrument throughout; the raw range in
// kilometres is converted once in newGeometry. Model lookups add the site
// altitude to obtain heights above sea level.
//
// The optimisers never touch the configuration. Their results are exposed
// through EffectiveParams and folded back only by CommitOptimized.
package analyser
