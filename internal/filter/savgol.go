package filter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SavGolCoefficients returns the smoothing weights c[-nl..nr] of a degree-m
// least-squares polynomial fitted over nl points to the left and nr to the
// right. Index k+nl of the result holds c[k].
func SavGolCoefficients(nl, nr, m int) ([]float64, error) {
	if nl < 0 || nr < 0 || m < 0 || nl+nr < m {
		return nil, fmt.Errorf("savitzky-golay: bad window nl=%d nr=%d m=%d", nl, nr, m)
	}

	// Normal equations: A[i][j] = sum_k k^(i+j).
	moments := make([]float64, 2*m+1)
	for k := -nl; k <= nr; k++ {
		p := 1.0
		for e := range moments {
			moments[e] += p
			p *= float64(k)
		}
	}
	a := mat.NewSymDense(m+1, nil)
	for i := 0; i <= m; i++ {
		for j := i; j <= m; j++ {
			a.SetSym(i, j, moments[i+j])
		}
	}

	// First row of the inverse gives the zeroth-derivative weights.
	e0 := mat.NewVecDense(m+1, nil)
	e0.SetVec(0, 1)
	var b mat.VecDense
	if err := b.SolveVec(a, e0); err != nil {
		return nil, fmt.Errorf("savitzky-golay: normal equations: %w", err)
	}

	c := make([]float64, nl+nr+1)
	for k := -nl; k <= nr; k++ {
		sum, fac := b.AtVec(0), 1.0
		for p := 1; p <= m; p++ {
			fac *= float64(k)
			sum += b.AtVec(p) * fac
		}
		c[k+nl] = sum
	}
	return c, nil
}

// SavitzkyGolay smooths data with a (nl, nr, m) window. The output has the
// same length; the first nl and last nr samples are copied through
// unchanged. Series shorter than one window are returned as a copy.
func SavitzkyGolay(data []float64, nl, nr, m int) ([]float64, error) {
	c, err := SavGolCoefficients(nl, nr, m)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(data))
	copy(out, data)
	if len(data) < nl+nr+1 {
		return out, nil
	}

	for i := nl; i < len(data)-nr; i++ {
		var sum float64
		for j, w := range c {
			sum += w * data[i-nl+j]
		}
		if math.IsNaN(sum) {
			return nil, fmt.Errorf("savitzky-golay: non-finite result at sample %d", i)
		}
		out[i] = sum
	}
	return out, nil
}
