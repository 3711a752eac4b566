// Package lidarfile reads and writes the ASCII dump of a single lidar shot:
// a ctime(3) timestamp line followed by "range sig355 sig532" rows.
package lidarfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/atmolidar/internal/analyser"
	"github.com/banshee-data/atmolidar/internal/fsutil"
	"github.com/banshee-data/atmolidar/internal/monitoring"
)

// MaxFileSize bounds a raw file; a shot is a few thousand rows.
const MaxFileSize = 16 << 20

// PolarityFixRun is the first run recorded with signed signals. Earlier
// runs stored magnitudes and are negated on read.
const PolarityFixRun = 60248

// TimestampLayout is the ctime(3) header format.
const TimestampLayout = time.ANSIC

// DefaultWavelengths is the signal column order of the acquisition system.
var DefaultWavelengths = []int{355, 532}

// ErrFormat is returned for malformed files.
var ErrFormat = errors.New("malformed lidar file")

var runName = regexp.MustCompile(`^run_(\d{6})_Lidar_(\d{1,4})`)

// ParseRunName extracts run and sequence numbers from names such as
// run_054209_Lidar_0010.root.txt.
func ParseRunName(name string) (run, seq int, ok bool) {
	m := runName.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, 1, false
	}
	run, _ = strconv.Atoi(m[1])
	seq, _ = strconv.Atoi(m[2])
	return run, seq, true
}

// Reader loads raw files through a FileSystem.
type Reader struct {
	FS fsutil.FileSystem
	// Wavelengths names the signal columns in order. DefaultWavelengths
	// when empty.
	Wavelengths []int
}

// Read parses the file at path, taking run metadata from its name.
func (r Reader) Read(path string) (analyser.RawProfile, error) {
	fsys := r.FS
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	data, err := fsutil.ReadFileLimited(fsys, path, MaxFileSize)
	if err != nil {
		return analyser.RawProfile{}, err
	}
	p, err := Parse(bytes.NewReader(data), filepath.Base(path), r.Wavelengths...)
	if err != nil {
		return analyser.RawProfile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse reads one shot. name is used only for run metadata and may be
// empty.
func Parse(rd io.Reader, name string, wavelengths ...int) (analyser.RawProfile, error) {
	if len(wavelengths) == 0 {
		wavelengths = DefaultWavelengths
	}
	p := analyser.RawProfile{Signals: make(map[int][]float64, len(wavelengths))}

	run, seq, ok := ParseRunName(name)
	p.RunNumber, p.SeqNumber = run, seq
	if !ok && name != "" {
		monitoring.Opsf("lidarfile: could not parse run number from %q", name)
	}

	sc := bufio.NewScanner(rd)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return p, err
		}
		return p, fmt.Errorf("%w: empty file", ErrFormat)
	}
	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(sc.Text()), time.UTC)
	if err != nil {
		return p, fmt.Errorf("%w: timestamp header: %w", ErrFormat, err)
	}
	p.Timestamp = ts

	negate := ok && run < PolarityFixRun
	lineNo := 1
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 1+len(wavelengths) {
			return p, fmt.Errorf("%w: line %d: want %d columns, got %d", ErrFormat, lineNo, 1+len(wavelengths), len(fields))
		}
		r, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return p, fmt.Errorf("%w: line %d range: %w", ErrFormat, lineNo, err)
		}
		p.Range = append(p.Range, r)
		for i, wl := range wavelengths {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return p, fmt.Errorf("%w: line %d %d nm: %w", ErrFormat, lineNo, wl, err)
			}
			if negate {
				v = -math.Abs(v)
			}
			p.Signals[wl] = append(p.Signals[wl], v)
		}
	}
	if err := sc.Err(); err != nil {
		return p, err
	}
	if len(p.Range) == 0 {
		return p, fmt.Errorf("%w: no samples", ErrFormat)
	}
	return p, nil
}

// Write dumps p in the format Parse reads, with signal columns in the
// order of wavelengths (DefaultWavelengths when empty). A wavelength
// absent from p is written as zeros.
func Write(w io.Writer, p analyser.RawProfile, wavelengths ...int) error {
	if len(wavelengths) == 0 {
		wavelengths = DefaultWavelengths
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, p.Timestamp.UTC().Format(TimestampLayout))
	for i, r := range p.Range {
		bw.WriteString(strconv.FormatFloat(r, 'g', -1, 64))
		for _, wl := range wavelengths {
			v := 0.0
			if s := p.Signals[wl]; i < len(s) {
				v = s[i]
			}
			bw.WriteByte(' ')
			bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
