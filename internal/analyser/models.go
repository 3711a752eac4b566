package analyser

import (
	"fmt"

	"github.com/banshee-data/atmolidar/internal/atmo/absorption"
	"github.com/banshee-data/atmolidar/internal/atmo/overlap"
	"github.com/banshee-data/atmolidar/internal/atmo/profile"
	"github.com/banshee-data/atmolidar/internal/config"
	"github.com/banshee-data/atmolidar/internal/fsutil"
	"github.com/banshee-data/atmolidar/internal/monitoring"
)

// MolecularModel gives molecular extinction (1/m) at wavelength wl (nm)
// and altitude h (m a.s.l.). *profile.Profile satisfies it.
type MolecularModel interface {
	Extinction(wl int, h float64) (float64, error)
}

// AbsorptionModel gives total model extinction (1/m) at wavelength wl (nm),
// altitude z (m a.s.l.) and zenith cosine coszen. *absorption.Table
// satisfies it.
type AbsorptionModel interface {
	Extinction(wl, z, coszen float64) float64
}

// OverlapModel gives the geometric overlap fraction at height h (m above
// the instrument). *overlap.Function satisfies it.
type OverlapModel interface {
	Overlap(h float64) float64
}

// ModelLoader reads the three external model tables.
type ModelLoader interface {
	LoadAbsorption(path string, siteAltitude float64) (AbsorptionModel, error)
	LoadProfile(path string) (MolecularModel, error)
	LoadOverlap(path string) (OverlapModel, error)
}

// FileModelLoader loads model tables through a FileSystem.
type FileModelLoader struct {
	FS fsutil.FileSystem
}

func (l FileModelLoader) fs() fsutil.FileSystem {
	if l.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return l.FS
}

func (l FileModelLoader) LoadAbsorption(path string, siteAltitude float64) (AbsorptionModel, error) {
	return absorption.Load(l.fs(), path, siteAltitude)
}

func (l FileModelLoader) LoadProfile(path string) (MolecularModel, error) {
	return profile.Load(l.fs(), path)
}

func (l FileModelLoader) LoadOverlap(path string) (OverlapModel, error) {
	return overlap.Load(l.fs(), path)
}

// modelSet caches loaded models keyed by the inputs that produced them so
// a configuration change reloads only what it touches. Pinned models were
// injected by an Option and are never replaced.
type modelSet struct {
	absorption AbsorptionModel
	molecular  MolecularModel
	overlap    OverlapModel

	absKey     *absorptionKey
	profileKey *string
	overlapKey *string

	pinAbsorption, pinMolecular, pinOverlap bool
}

type absorptionKey struct {
	path     string
	altitude float64
}

// refresh reloads the models whose path (or, for absorption, site
// altitude) differs from the cached one. On error the cache is left as it
// was so the caller can keep the previous configuration.
func (m *modelSet) refresh(loader ModelLoader, cfg *config.AnalysisConfig) error {
	next := *m

	if !m.pinAbsorption {
		key := absorptionKey{path: cfg.AtmoAbsorption, altitude: cfg.LidarAltitude}
		if m.absKey == nil || *m.absKey != key {
			next.absorption = nil
			if key.path == "" {
				monitoring.Opsf("analyser: no absorption table configured; Klett and model opacity disabled")
			} else {
				t, err := loader.LoadAbsorption(key.path, key.altitude)
				if err != nil {
					return fmt.Errorf("%w: %w", ErrModelLoad, err)
				}
				next.absorption = t
				monitoring.Diagf("analyser: loaded absorption table %s for site altitude %.0f m", key.path, key.altitude)
			}
			next.absKey = &key
		}
	}

	if !m.pinMolecular {
		path := cfg.AtmoProfile
		if m.profileKey == nil || *m.profileKey != path {
			next.molecular = nil
			if path == "" {
				monitoring.Opsf("analyser: no atmosphere profile configured; Fernald84 and Aeronet disabled")
			} else {
				p, err := loader.LoadProfile(path)
				if err != nil {
					return fmt.Errorf("%w: %w", ErrModelLoad, err)
				}
				next.molecular = p
				monitoring.Diagf("analyser: loaded atmosphere profile %s", path)
			}
			next.profileKey = &path
		}
	}

	if !m.pinOverlap {
		path := cfg.OverlapFunction
		if m.overlapKey == nil || *m.overlapKey != path {
			next.overlap = nil
			if path == "" {
				monitoring.Diagf("analyser: no overlap function configured; assuming full overlap")
			} else {
				o, err := loader.LoadOverlap(path)
				if err != nil {
					return fmt.Errorf("%w: %w", ErrModelLoad, err)
				}
				next.overlap = o
				monitoring.Diagf("analyser: loaded overlap function %s", path)
			}
			next.overlapKey = &path
		}
	}

	*m = next
	return nil
}

// overlapAt returns 1 when no overlap model is configured.
func (m *modelSet) overlapAt(h float64) float64 {
	if m.overlap == nil {
		return 1
	}
	return m.overlap.Overlap(h)
}
