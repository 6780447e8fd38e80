package dmd

import (
	"errors"
	"fmt"
)

// Domain errors for fitting operations. Configuration errors indicate a
// problem with the caller's inputs and are never retried internally.
var (
	// ErrDimensionMismatch indicates snapshot and timestamp counts disagree.
	ErrDimensionMismatch = errors.New("dmd: snapshot and timestamp dimensions do not match")

	// ErrNonIncreasingTime indicates timestamps that are not strictly increasing.
	ErrNonIncreasingTime = errors.New("dmd: timestamps must be strictly increasing")

	// ErrInvalidData indicates NaN or Inf values in the snapshot matrix.
	ErrInvalidData = errors.New("dmd: snapshot data contains NaN or Inf")

	// ErrInvalidRank indicates a non-positive model order.
	ErrInvalidRank = errors.New("dmd: model order must be positive")

	// ErrRankTooLarge indicates an under-determined fit: fewer samples than
	// twice the requested model order.
	ErrRankTooLarge = errors.New("dmd: model order exceeds half the sample count")

	// ErrInitMismatch indicates an initial eigenvalue guess whose length
	// differs from the requested model order.
	ErrInitMismatch = errors.New("dmd: initial eigenvalue count does not match model order")

	// ErrSingularProjection indicates the projection step became singular
	// beyond recovery.
	ErrSingularProjection = errors.New("dmd: projection step singular beyond recovery")

	// ErrInvalidDelay indicates a time-delay embedding depth that is not
	// positive or leaves fewer than two samples.
	ErrInvalidDelay = errors.New("dmd: invalid time-delay embedding depth")
)

// NumericalError wraps a linear-algebra failure with the iteration it
// occurred on and the estimated condition number of the offending system.
type NumericalError struct {
	Iteration int
	Cond      float64
	Wrapped   error
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("dmd: numerical failure at iteration %d (cond=%.3e): %v",
		e.Iteration, e.Cond, e.Wrapped)
}

func (e *NumericalError) Unwrap() error {
	return e.Wrapped
}
