// Package overlap implements the geometric overlap correction of the lidar:
// a step function from altitude to the fraction of the beam seen by the
// receiver.
package overlap

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/atmolidar/internal/fsutil"
)

// MaxFileSize caps overlap tables at 1 MiB.
const MaxFileSize = 1 << 20

// ErrTooFewPoints is returned for tables with fewer than two points.
var ErrTooFewPoints = errors.New("overlap function needs at least 2 points")

// Point is one tabulated overlap value.
type Point struct {
	Height   float64 // metres above the instrument
	Fraction float64 // overlap percent / 100
}

// Function is an immutable overlap table.
type Function struct {
	points []Point
}

// New builds a Function from points in table order.
func New(points []Point) (*Function, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(points))
	}
	for i, p := range points {
		if !(p.Fraction > 0) || math.IsInf(p.Fraction, 0) {
			return nil, fmt.Errorf("overlap point %d at %g m: fraction %g must be positive", i, p.Height, p.Fraction)
		}
	}
	cp := make([]Point, len(points))
	copy(cp, points)
	return &Function{points: cp}, nil
}

// Parse reads "<height_m> <overlap_percent>" lines. Lines starting with
// '#' or '%' and blank lines are ignored.
func Parse(r io.Reader) (*Function, error) {
	var points []Point
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want height and percent, got %q", lineNo, line)
		}
		h, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad height: %w", lineNo, err)
		}
		pct, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad percent: %w", lineNo, err)
		}
		points = append(points, Point{Height: h, Fraction: pct / 100})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return New(points)
}

// Load parses the overlap table at path.
func Load(fsys fsutil.FileSystem, path string) (*Function, error) {
	data, err := fsutil.ReadFileLimited(fsys, path, MaxFileSize)
	if err != nil {
		return nil, err
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("overlap %s: %w", path, err)
	}
	return f, nil
}

// Overlap returns the fraction of the first tabulated point whose height
// exceeds h, or 1 when h is at or above every tabulated height. Values are
// not interpolated.
func (f *Function) Overlap(h float64) float64 {
	for _, p := range f.points {
		if h < p.Height {
			return p.Fraction
		}
	}
	return 1
}

// Points returns a copy of the table.
func (f *Function) Points() []Point {
	cp := make([]Point, len(f.points))
	copy(cp, f.points)
	return cp
}
