package dmd

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// floatEps is the double-precision machine epsilon.
const floatEps = 2.220446049250313e-16

// linearEstimate produces an initial eigenvalue guess from a projected
// linear DMD step: project the data onto its leading POD subspace, form
// the one-step propagator there, and take the logarithm of its
// eigenvalues. Assumes near-uniform sampling; callers with strongly
// non-uniform timestamps should supply Options.InitEigs instead.
func linearEstimate(s *Snapshots, rank int) ([]complex128, error) {
	m, n := s.data.Dims()

	// Stack real and imaginary parts as separate channels so the POD
	// projection stays in real arithmetic. For real data the imaginary
	// block is zero and does not perturb the subspace.
	p := n
	cplx := !s.IsReal()
	if cplx {
		p = 2 * n
	}
	y := mat.NewDense(p, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v := s.data.At(i, j)
			y.Set(j, i, real(v))
			if cplx {
				y.Set(n+j, i, imag(v))
			}
		}
	}

	y1 := y.Slice(0, p, 0, m-1)
	y2 := y.Slice(0, p, 1, m)

	var svd mat.SVD
	if ok := svd.Factorize(y1, mat.SVDThin); !ok {
		return nil, &NumericalError{Cond: math.Inf(1), Wrapped: ErrSingularProjection}
	}
	vals := svd.Values(nil)
	q := len(vals)
	if rank > q {
		return nil, fmt.Errorf("%w: auto-initialization supports at most %d modes here", ErrRankTooLarge, q)
	}
	if vals[rank-1] <= math.Sqrt(floatEps)*vals[0] {
		return nil, fmt.Errorf("%w: data rank below requested model order", ErrRankTooLarge)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	ur := u.Slice(0, p, 0, rank)
	vr := v.Slice(0, m-1, 0, rank)

	// Atilde = Ur^T Y2 Vr S^-1, the propagator restricted to the POD basis.
	var tmp, atilde mat.Dense
	tmp.Mul(ur.T(), y2)
	atilde.Mul(&tmp, vr)
	for j := 0; j < rank; j++ {
		for i := 0; i < rank; i++ {
			atilde.Set(i, j, atilde.At(i, j)/vals[j])
		}
	}

	var eig mat.Eigen
	if ok := eig.Factorize(&atilde, mat.EigenNone); !ok {
		return nil, &NumericalError{Cond: math.Inf(1), Wrapped: ErrSingularProjection}
	}
	mu := eig.Values(nil)

	times := s.times
	dt := (times[m-1] - times[0]) / float64(m-1)

	alpha := make([]complex128, rank)
	for k, v := range mu {
		if cmplx.Abs(v) < 1e-300 {
			// Zero discrete eigenvalue: start from strong decay instead
			// of a -Inf logarithm.
			alpha[k] = complex(-1/dt, 0)
			continue
		}
		alpha[k] = cmplx.Log(v) / complex(dt, 0)
	}

	sorted := make([]complex128, rank)
	for i, j := range sortEigs(alpha) {
		sorted[i] = alpha[j]
	}
	return sorted, nil
}
