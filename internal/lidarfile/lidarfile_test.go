package lidarfile

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/atmolidar/internal/analyser"
	"github.com/banshee-data/atmolidar/internal/fsutil"
	"github.com/banshee-data/atmolidar/internal/testutil"
)

const shot = `Fri Jul  1 20:10:05 2011
0.0 -6.1 -5.9
0.015 0.012 0.021

0.030 0.011 0.020
`

func TestParseRunName(t *testing.T) {
	tests := []struct {
		name     string
		run, seq int
		ok       bool
	}{
		{"run_054209_Lidar_0010.root.txt", 54209, 10, true},
		{"/data/lidar/run_072070_Lidar_001.root.txt", 72070, 1, true},
		{"shot.txt", 0, 1, false},
		{"run_12_Lidar_1.txt", 0, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, seq, ok := ParseRunName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.run, run)
			assert.Equal(t, tt.seq, seq)
		})
	}
}

func TestParse(t *testing.T) {
	p, err := Parse(strings.NewReader(shot), "run_072070_Lidar_0003.root.txt")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2011, 7, 1, 20, 10, 5, 0, time.UTC), p.Timestamp)
	assert.Equal(t, 72070, p.RunNumber)
	assert.Equal(t, 3, p.SeqNumber)
	assert.Equal(t, []float64{0, 0.015, 0.030}, p.Range)
	assert.Equal(t, []float64{-6.1, 0.012, 0.011}, p.Signals[355])
	assert.Equal(t, []float64{-5.9, 0.021, 0.020}, p.Signals[532])
}

func TestParseOldRunsNegated(t *testing.T) {
	p, err := Parse(strings.NewReader(shot), "run_054209_Lidar_0010.root.txt")
	require.NoError(t, err)
	assert.Equal(t, []float64{-6.1, -0.012, -0.011}, p.Signals[355])
	assert.Equal(t, []float64{-5.9, -0.021, -0.020}, p.Signals[532])
}

func TestParseUnnamedKeepsPolarity(t *testing.T) {
	p, err := Parse(strings.NewReader(shot), "")
	require.NoError(t, err)
	assert.Equal(t, 0, p.RunNumber)
	assert.Equal(t, 1, p.SeqNumber)
	assert.Equal(t, 0.012, p.Signals[355][1])
}

func TestParseCustomColumns(t *testing.T) {
	p, err := Parse(strings.NewReader(shot), "", 1064)
	require.NoError(t, err)
	assert.Len(t, p.Signals, 1)
	assert.Equal(t, []float64{-6.1, 0.012, 0.011}, p.Signals[1064])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, data string
	}{
		{"empty", ""},
		{"bad timestamp", "2011-07-01 20:10:05\n0 1 2\n"},
		{"no samples", "Fri Jul  1 20:10:05 2011\n\n"},
		{"short row", "Fri Jul  1 20:10:05 2011\n0 1\n"},
		{"bad number", "Fri Jul  1 20:10:05 2011\n0 1 x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.data), "")
			assert.True(t, errors.Is(err, ErrFormat), "got %v", err)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	in := analyser.RawProfile{
		Range:     testutil.RangeKm(50, 5),
		Signals:   map[int][]float64{355: testutil.SpikedTrace(50, 0.02, -6), 532: testutil.SpikedTrace(50, 0.01, -6)},
		Timestamp: time.Date(2017, 3, 4, 1, 2, 3, 0, time.UTC),
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	assert.True(t, strings.HasPrefix(buf.String(), "Sat Mar  4 01:02:03 2017\n"))

	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("raw/run_072070_Lidar_0001.root.txt", buf.Bytes())
	out, err := Reader{FS: mfs}.Read("raw/run_072070_Lidar_0001.root.txt")
	require.NoError(t, err)

	in.RunNumber, in.SeqNumber = 72070, 1
	if diff := cmp.Diff(in, out, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadMissing(t *testing.T) {
	_, err := Reader{FS: fsutil.NewMemoryFileSystem()}.Read("nope.txt")
	assert.Error(t, err)
}

func TestParsedProfileFeedsAnalyser(t *testing.T) {
	var buf bytes.Buffer
	raw := analyser.RawProfile{
		Range:     testutil.RangeKm(1000, 20),
		Signals:   map[int][]float64{532: testutil.SpikedTrace(1000, 0.01, -6)},
		Timestamp: time.Date(2017, 3, 4, 1, 2, 3, 0, time.UTC),
	}
	require.NoError(t, Write(&buf, raw, 532))
	p, err := Parse(&buf, "shot.txt", 532)
	require.NoError(t, err)

	_, err = analyser.New(p, nil, analyser.WithFileSystem(testutil.ModelFS()))
	assert.NoError(t, err)
}
