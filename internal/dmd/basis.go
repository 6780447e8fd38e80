package dmd

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// expBasis builds the m-by-r matrix of exponential fitting functions
// exp(alpha_k * t_i) evaluated at every sample time.
func expBasis(alpha []complex128, times []float64) *mat.CDense {
	m, r := len(times), len(alpha)
	phi := mat.NewCDense(m, r, nil)
	for k, a := range alpha {
		for i, t := range times {
			phi.Set(i, k, cmplx.Exp(a*complex(t, 0)))
		}
	}
	return phi
}

// expBasisDeriv returns the derivative of basis column k with respect to
// alpha_k: t_i * exp(alpha_k * t_i).
func expBasisDeriv(alpha complex128, times []float64) []complex128 {
	d := make([]complex128, len(times))
	for i, t := range times {
		ct := complex(t, 0)
		d[i] = ct * cmplx.Exp(alpha*ct)
	}
	return d
}
