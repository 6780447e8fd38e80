package dmd

import (
	"context"
	"errors"
	"math/cmplx"
	"testing"
)

func TestFitRecoversKnownModes(t *testing.T) {
	truth := []complex128{complex(-0.1, 1), complex(-0.05, 2)}
	amps := []complex128{1, 1}
	times := testTimes(200, 10)
	s := realExpField(truth, amps, unitProfiles(2, 6, 3), times)

	rep, err := Fit(context.Background(), s, DefaultOptions(4))
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if !rep.Converged {
		t.Fatalf("expected convergence, got %q after %d iterations", rep.TermReason, rep.Iterations)
	}

	// Report ordering: descending imaginary part.
	want := []complex128{
		complex(-0.05, 2),
		complex(-0.1, 1),
		complex(-0.1, -1),
		complex(-0.05, -2),
	}
	for k := range want {
		if d := cmplx.Abs(rep.Eigenvalues[k] - want[k]); d > 1e-6 {
			t.Errorf("eigenvalue %d: expected %v, got %v (err %v)", k, want[k], rep.Eigenvalues[k], d)
		}
	}
	if rep.Relative > 1e-8 {
		t.Errorf("expected near-zero relative residual, got %v", rep.Relative)
	}
}

func TestFitWithInitialGuess(t *testing.T) {
	truth := []complex128{complex(-0.1, 1), complex(-0.05, 2)}
	amps := []complex128{1, 1}
	times := testTimes(200, 10)
	s := expField(truth, amps, unitProfiles(2, 4, 3), times)

	opts := DefaultOptions(2)
	opts.InitEigs = []complex128{complex(-0.12, 1.05), complex(-0.04, 1.9)}

	rep, err := Fit(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if !rep.Converged {
		t.Fatalf("expected convergence, got %q", rep.TermReason)
	}
	want := []complex128{complex(-0.05, 2), complex(-0.1, 1)}
	for k := range want {
		if d := cmplx.Abs(rep.Eigenvalues[k] - want[k]); d > 1e-6 {
			t.Errorf("eigenvalue %d: expected %v, got %v", k, want[k], rep.Eigenvalues[k])
		}
	}
}

func TestFitRealSystemYieldsConjugateModes(t *testing.T) {
	truth := []complex128{complex(-0.05, 2)}
	amps := []complex128{1}
	times := testTimes(200, 10)
	s := realExpField(truth, amps, unitProfiles(1, 5, 9), times)

	opts := DefaultOptions(2)
	opts.RealSystem = true

	rep, err := Fit(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if !rep.Converged {
		t.Fatalf("expected convergence, got %q", rep.TermReason)
	}

	e0, e1 := rep.Eigenvalues[0], rep.Eigenvalues[1]
	if d := cmplx.Abs(e0 - cmplx.Conj(e1)); d > 1e-9 {
		t.Errorf("expected a conjugate pair, got %v and %v", e0, e1)
	}
	if d := cmplx.Abs(e0 - complex(-0.05, 2)); d > 1e-6 {
		t.Errorf("expected eigenvalue %v, got %v", complex(-0.05, 2), e0)
	}
}

func TestFitRoundTripReconstruction(t *testing.T) {
	truth := []complex128{complex(-0.1, 1), complex(-0.05, 2)}
	amps := []complex128{2, 0.5}
	times := testTimes(150, 8)
	s := expField(truth, amps, unitProfiles(2, 3, 5), times)

	opts := DefaultOptions(2)
	opts.InitEigs = []complex128{complex(-0.09, 1.02), complex(-0.06, 1.97)}
	rep, err := Fit(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	recon := rep.Reconstruct(times)
	m, n := s.Dims()
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			if d := cmplx.Abs(recon.At(i, j) - s.At(i, j)); d > 1e-6 {
				t.Fatalf("reconstruction off at (%d,%d): %v vs %v", i, j, recon.At(i, j), s.At(i, j))
			}
		}
	}
}

func TestFitNonConvergenceIsReported(t *testing.T) {
	truth := []complex128{complex(-0.05, 2)}
	amps := []complex128{1}
	times := testTimes(120, 10)
	s := noisy(realExpField(truth, amps, unitProfiles(1, 4, 9), times), 0.05, 21)

	opts := DefaultOptions(2)
	opts.InitEigs = []complex128{complex(0.5, 4), complex(0.5, -4)}
	opts.MaxIter = 1
	opts.Tol = 1e-15

	rep, err := Fit(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("a budget-limited fit must still return a report, got error: %v", err)
	}
	if rep.Converged {
		t.Fatal("expected Converged=false under a one-iteration budget")
	}
	if rep.TermReason == "" {
		t.Fatal("expected a termination reason")
	}
	if rep.Modes == nil || len(rep.Eigenvalues) != 2 {
		t.Fatal("non-converged report must still carry the current model")
	}
}

func TestFitValidation(t *testing.T) {
	times := testTimes(20, 5)
	s := expField([]complex128{-0.1 + 1i}, []complex128{1}, unitProfiles(1, 3, 1), times)

	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"zero rank", Options{Rank: 0}, ErrInvalidRank},
		{"negative rank", Options{Rank: -2}, ErrInvalidRank},
		{"rank too large", Options{Rank: 11}, ErrRankTooLarge},
		{"init mismatch", Options{Rank: 2, InitEigs: []complex128{1i}}, ErrInitMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(context.Background(), s, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFitCanceledContext(t *testing.T) {
	truth := []complex128{complex(-0.05, 2)}
	times := testTimes(100, 10)
	s := noisy(realExpField(truth, []complex128{1}, unitProfiles(1, 4, 9), times), 0.05, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions(2)
	opts.InitEigs = []complex128{complex(0.3, 3), complex(0.3, -3)}
	opts.Tol = 1e-15

	rep, err := Fit(ctx, s, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if rep == nil {
		t.Fatal("cancellation must still return the partial report")
	}
}

func TestFitObserverSeesProgress(t *testing.T) {
	truth := []complex128{complex(-0.05, 2)}
	times := testTimes(120, 10)
	s := noisy(realExpField(truth, []complex128{1}, unitProfiles(1, 4, 9), times), 0.01, 13)

	var seen []Iteration
	opts := DefaultOptions(2)
	opts.InitEigs = []complex128{complex(-0.2, 1.5), complex(-0.2, -1.5)}
	opts.RealSystem = true
	opts.Observer = func(it Iteration) { seen = append(seen, it) }

	rep, err := Fit(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if len(seen) != len(rep.History) {
		t.Errorf("observer saw %d iterations, history has %d", len(seen), len(rep.History))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i].Residual > seen[i-1].Residual {
			t.Errorf("residual increased across accepted steps: %v -> %v", seen[i-1].Residual, seen[i].Residual)
		}
		if seen[i].Index <= seen[i-1].Index {
			t.Errorf("iteration indices must increase")
		}
	}
}
