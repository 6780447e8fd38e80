package dmd

import (
	"math/cmplx"
	"testing"
)

func TestDetectConjugatePairs(t *testing.T) {
	alpha := []complex128{
		complex(-0.1, 2),
		complex(-0.1, -2),
		complex(-0.3, 0),
	}
	p := detectConjugatePairs(alpha)

	if len(p.pairs) != 1 || p.pairs[0] != [2]int{0, 1} {
		t.Fatalf("expected pair (0,1), got %v", p.pairs)
	}
	if len(p.reals) != 1 || p.reals[0] != 2 {
		t.Fatalf("expected real index 2, got %v", p.reals)
	}
}

func TestEnforceSymmetry(t *testing.T) {
	alpha := []complex128{
		complex(-0.1, 2),
		complex(-0.1, -2),
		complex(-0.3, 0),
	}
	p := detectConjugatePairs(alpha)

	// Perturb asymmetrically, then project back.
	alpha[0] = complex(-0.11, 2.02)
	alpha[1] = complex(-0.09, -1.98)
	alpha[2] = complex(-0.31, 1e-8)
	p.enforce(alpha)

	if alpha[0] != cmplx.Conj(alpha[1]) {
		t.Errorf("pair not conjugate after enforce: %v vs %v", alpha[0], alpha[1])
	}
	if d := cmplx.Abs(alpha[0] - complex(-0.1, 2)); d > 1e-12 {
		t.Errorf("expected the pair mean %v, got %v", complex(-0.1, 2), alpha[0])
	}
	if imag(alpha[2]) != 0 {
		t.Errorf("real mode drifted off the real axis: %v", alpha[2])
	}
}

func TestDetectLeavesUnmatchedFree(t *testing.T) {
	alpha := []complex128{
		complex(-0.1, 2),
		complex(-0.2, 3),
	}
	p := detectConjugatePairs(alpha)
	if len(p.pairs) != 0 || len(p.reals) != 0 {
		t.Fatalf("unmatched eigenvalues must stay unconstrained, got %+v", p)
	}

	before := append([]complex128(nil), alpha...)
	p.enforce(alpha)
	for i := range alpha {
		if alpha[i] != before[i] {
			t.Error("enforce changed unconstrained eigenvalues")
		}
	}
}
