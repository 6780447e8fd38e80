package dmd

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ModeSet pairs converged eigenvalues with their spatial modes and
// amplitudes. Deterministic given identical inputs; no iteration.
type ModeSet struct {
	Eigenvalues []complex128

	// Modes holds one unit-norm spatial mode per column.
	Modes      *mat.CDense
	Amplitudes []complex128

	// Residual is the Frobenius norm of data minus reconstruction.
	Residual float64
}

// ExtractModes solves the final linear least-squares system for the mode
// matrix and amplitudes, given a set of converged eigenvalues.
func ExtractModes(s *Snapshots, eigs []complex128) (*ModeSet, error) {
	m, n := s.data.Dims()
	r := len(eigs)
	if r == 0 {
		return nil, ErrInvalidRank
	}
	if m < r {
		return nil, ErrRankTooLarge
	}

	alpha := append([]complex128(nil), eigs...)
	cur, err := project(alpha, s, DefaultOptions(r).CondLimit, 0)
	if err != nil {
		return nil, err
	}

	order := sortEigs(alpha)
	sorted := make([]complex128, r)
	modes := mat.NewCDense(n, r, nil)
	amps := make([]complex128, r)
	for pos, k := range order {
		sorted[pos] = alpha[k]
		norm := 0.0
		for j := 0; j < n; j++ {
			v := cur.coef.At(k, j)
			norm += real(v)*real(v) + imag(v)*imag(v)
		}
		norm = math.Sqrt(norm)
		amps[pos] = complex(norm, 0)
		if norm == 0 {
			continue
		}
		for j := 0; j < n; j++ {
			modes.Set(j, pos, cur.coef.At(k, j)/complex(norm, 0))
		}
	}

	return &ModeSet{
		Eigenvalues: sorted,
		Modes:       modes,
		Amplitudes:  amps,
		Residual:    cur.resNorm,
	}, nil
}

// Reconstruct evaluates the mode set at the given timestamps.
func (ms *ModeSet) Reconstruct(times []float64) *mat.CDense {
	return Reconstruction(ms.Eigenvalues, ms.Modes, ms.Amplitudes, times)
}
