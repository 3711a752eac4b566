// Package absorption reads a pre-computed atmospheric transmission table:
// vertical optical depth per wavelength (1 nm steps) at a list of heights
// above an observatory.
package absorption

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"

	"github.com/banshee-data/atmolidar/internal/fsutil"
	"github.com/banshee-data/atmolidar/internal/units"
)

const (
	// MaxFileSize caps transmission tables at 8 MiB.
	MaxFileSize = 8 << 20
	// MaxWavelengths is the number of rows read from a table.
	MaxWavelengths = 500
	// AltitudeTolerance is the allowed mismatch in metres between the
	// table's observatory and the lidar site.
	AltitudeTolerance = 25.0
	// maxOpticalDepth above which the transmission is reported as zero.
	maxOpticalDepth = 100.0
)

var (
	// ErrHeader is returned when the "# H2= ... H1= ..." line is missing or malformed.
	ErrHeader = errors.New("invalid transmission table header")
	// ErrAltitudeMismatch is returned when the observatory altitude does not match the site.
	ErrAltitudeMismatch = errors.New("transmission table altitude does not match site")
)

// Table is an immutable transmission table.
type Table struct {
	obsAltitude float64 // m
	logHeights  []float64
	firstWl     int
	rows        []interp.PiecewiseLinear
}

// Parse reads a table for a site at siteAltitude metres.
func Parse(r io.Reader, siteAltitude float64) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	var header string
	for sc.Scan() {
		if line := sc.Text(); strings.HasPrefix(line, "# H2=") {
			header = line[len("# H2="):]
			break
		}
	}
	if header == "" {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: no \"# H2=\" line", ErrHeader)
	}

	t := &Table{}
	if err := t.parseHeader(header, siteAltitude); err != nil {
		return nil, err
	}

	var wls []int
	lineNo := 0
	for len(wls) < MaxWavelengths && sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		wl, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad wavelength %q", lineNo, fields[0])
		}
		if len(fields)-1 < len(t.logHeights) {
			return nil, fmt.Errorf("row %d (%d nm): %d optical depths for %d heights",
				lineNo, wl, len(fields)-1, len(t.logHeights))
		}
		taus := make([]float64, len(t.logHeights))
		for i := range taus {
			if taus[i], err = strconv.ParseFloat(fields[i+1], 64); err != nil {
				return nil, fmt.Errorf("row %d (%d nm) column %d: %w", lineNo, wl, i+2, err)
			}
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(t.logHeights, taus); err != nil {
			return nil, fmt.Errorf("row %d (%d nm): %w", lineNo, wl, err)
		}
		wls = append(wls, wl)
		t.rows = append(t.rows, pl)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	n := len(wls)
	if n == 0 {
		return nil, errors.New("no transmission data in table")
	}
	if wls[n-1]-wls[0] != n-1 || wls[n-1] > 1000 {
		return nil, fmt.Errorf("transmission data not at nanometre intervals (%d..%d nm, %d rows)", wls[0], wls[n-1], n)
	}
	t.firstWl = wls[0]
	return t, nil
}

func (t *Table) parseHeader(header string, siteAltitude float64) error {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return fmt.Errorf("%w: missing observatory altitude", ErrHeader)
	}
	obsKm, err := strconv.ParseFloat(strings.TrimRight(fields[0], ",;"), 64)
	if err != nil {
		return fmt.Errorf("%w: observatory altitude %q", ErrHeader, fields[0])
	}
	t.obsAltitude = units.KmToM(obsKm)
	if math.Abs(t.obsAltitude-siteAltitude) > AltitudeTolerance {
		return fmt.Errorf("%w: requested %g m, table has %g m", ErrAltitudeMismatch, siteAltitude, t.obsAltitude)
	}

	_, heights, ok := strings.Cut(header, "H1=")
	if !ok {
		return fmt.Errorf("%w: missing H1= list", ErrHeader)
	}
	for _, f := range strings.Fields(heights) {
		km, err := strconv.ParseFloat(strings.TrimRight(f, ",;"), 64)
		if err != nil {
			break
		}
		t.logHeights = append(t.logHeights, math.Log10(units.KmToM(km)))
	}
	if len(t.logHeights) < 2 {
		return fmt.Errorf("%w: need at least 2 heights, got %d", ErrHeader, len(t.logHeights))
	}
	return nil
}

// Load parses the table at path for a site at siteAltitude metres.
func Load(fsys fsutil.FileSystem, path string, siteAltitude float64) (*Table, error) {
	data, err := fsutil.ReadFileLimited(fsys, path, MaxFileSize)
	if err != nil {
		return nil, err
	}
	t, err := Parse(bytes.NewReader(data), siteAltitude)
	if err != nil {
		return nil, fmt.Errorf("absorption table %s: %w", path, err)
	}
	return t, nil
}

// ObservatoryAltitude returns the table's reference altitude in metres.
func (t *Table) ObservatoryAltitude() float64 { return t.obsAltitude }

// Wavelengths returns the first and last tabulated wavelength in nm.
func (t *Table) Wavelengths() (first, last int) {
	return t.firstWl, t.firstWl + len(t.rows) - 1
}

// row picks the nearest tabulated wavelength, clamped to the table.
func (t *Table) row(wl float64) *interp.PiecewiseLinear {
	i := int(math.RoundToEven(wl - float64(t.firstWl)))
	i = max(0, min(i, len(t.rows)-1))
	return &t.rows[i]
}

// OpticalDepth returns the vertical optical depth from the observatory to
// altitude z (m a.s.l.) at wavelength wl (nm).
func (t *Table) OpticalDepth(wl, z float64) float64 {
	if z <= 0 {
		return 0
	}
	return t.row(wl).Predict(math.Log10(z))
}

// Transmission returns exp(-tau/coszen) for light emitted at altitude z.
// Sources below the observatory, or behind an optical depth above 100,
// transmit nothing.
func (t *Table) Transmission(wl, z, coszen float64) float64 {
	if z < t.obsAltitude || z <= 0 {
		return 0
	}
	tau := t.OpticalDepth(wl, z) / coszen
	if tau > maxOpticalDepth {
		return 0
	}
	return math.Exp(-tau)
}

// Extinction returns the extinction coefficient in 1/m at altitude z as a
// central difference of the optical depth over ±10% of the slant range.
func (t *Table) Extinction(wl, z, coszen float64) float64 {
	if z < t.obsAltitude || z <= 0 {
		return 0
	}
	zp := z / coszen * 1.1
	zm := z / coszen * 0.9
	r := t.row(wl)
	return (r.Predict(math.Log10(zp)) - r.Predict(math.Log10(zm))) / (zp - zm)
}
