package dmd

import (
	"math"
	"math/cmplx"
)

// pairing records which eigenvalue indices form conjugate pairs and which
// are pinned to the real axis. It is detected once from the initial guess
// and re-enforced after every accepted step.
type pairing struct {
	pairs   [][2]int
	reals   []int
	checked bool
}

// detectConjugatePairs greedily matches eigenvalues that are (near) exact
// complex conjugates of each other. Eigenvalues with negligible imaginary
// part are pinned to the real axis. Unmatched eigenvalues stay
// unconstrained.
func detectConjugatePairs(alpha []complex128) pairing {
	p := pairing{checked: true}
	used := make([]bool, len(alpha))
	for i := range alpha {
		if used[i] {
			continue
		}
		scale := 1 + cmplx.Abs(alpha[i])
		if math.Abs(imag(alpha[i])) <= 1e-10*scale {
			used[i] = true
			p.reals = append(p.reals, i)
			continue
		}
		for j := i + 1; j < len(alpha); j++ {
			if used[j] {
				continue
			}
			if cmplx.Abs(alpha[j]-cmplx.Conj(alpha[i])) <= 1e-6*scale {
				used[i], used[j] = true, true
				p.pairs = append(p.pairs, [2]int{i, j})
				break
			}
		}
	}
	return p
}

// enforce projects the eigenvalue vector onto the conjugate-symmetric
// subspace defined by the pairing.
func (p pairing) enforce(alpha []complex128) {
	for _, pr := range p.pairs {
		i, j := pr[0], pr[1]
		mean := (alpha[i] + cmplx.Conj(alpha[j])) / 2
		alpha[i] = mean
		alpha[j] = cmplx.Conj(mean)
	}
	for _, i := range p.reals {
		alpha[i] = complex(real(alpha[i]), 0)
	}
}
