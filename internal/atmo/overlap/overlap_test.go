package overlap

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/atmolidar/internal/fsutil"
)

const table = `# height overlap
% measured 2012
1000 50

  2000   80
5000 100
`

func TestOverlapStepLookup(t *testing.T) {
	f, err := Parse(strings.NewReader(table))
	require.NoError(t, err)

	tests := []struct {
		h    float64
		want float64
	}{
		{500, 0.5},
		{999.9, 0.5},
		{1000, 0.8},
		{1500, 0.8},
		{4999, 1.0},
		{5000, 1.0},
		{6000, 1.0},
		{-10, 0.5},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, f.Overlap(tt.h), 1e-12, "Overlap(%v)", tt.h)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		is    error
	}{
		{"empty", "# nothing\n", ErrTooFewPoints},
		{"single point", "1000 50\n", ErrTooFewPoints},
		{"missing column", "1000\n2000 80\n", nil},
		{"bad number", "1000 abc\n2000 80\n", nil},
		{"zero overlap", "1000 0\n2000 80\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is))
			}
		})
	}
}

func TestLoad(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("/data/overlap_function.txt", []byte(table))

	f, err := Load(mfs, "/data/overlap_function.txt")
	require.NoError(t, err)
	assert.Len(t, f.Points(), 3)

	_, err = Load(mfs, "/data/missing.txt")
	assert.Error(t, err)
}

func TestPointsIsCopy(t *testing.T) {
	f, err := New([]Point{{1000, 0.5}, {2000, 0.8}})
	require.NoError(t, err)
	pts := f.Points()
	pts[0].Fraction = 9
	assert.Equal(t, 0.5, f.Overlap(10))
}
