package dmd

import (
	"math"
	"math/cmplx"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Snapshots holds an ordered sequence of state vectors, one row per time
// sample, together with the sample timestamps. Timestamps are strictly
// increasing and every row has the same dimension.
type Snapshots struct {
	data  *mat.CDense
	times []float64
}

// NewSnapshots validates and wraps a complex snapshot matrix. The matrix
// has one row per sample and one column per spatial channel.
func NewSnapshots(data *mat.CDense, times []float64) (*Snapshots, error) {
	m, _ := data.Dims()
	if m != len(times) {
		return nil, ErrDimensionMismatch
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, ErrNonIncreasingTime
		}
	}
	if !validData(data) {
		return nil, ErrInvalidData
	}
	return &Snapshots{data: data, times: times}, nil
}

// NewRealSnapshots wraps a real-valued snapshot matrix.
func NewRealSnapshots(data *mat.Dense, times []float64) (*Snapshots, error) {
	m, n := data.Dims()
	c := mat.NewCDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			c.Set(i, j, complex(data.At(i, j), 0))
		}
	}
	return NewSnapshots(c, times)
}

func validData(data *mat.CDense) bool {
	m, n := data.Dims()
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			if cmplx.IsNaN(data.At(i, j)) || cmplx.IsInf(data.At(i, j)) {
				return false
			}
		}
	}
	return true
}

// Dims returns the number of samples and channels.
func (s *Snapshots) Dims() (samples, channels int) {
	return s.data.Dims()
}

// Times returns a copy of the sample timestamps.
func (s *Snapshots) Times() []float64 {
	t := make([]float64, len(s.times))
	copy(t, s.times)
	return t
}

// At returns the value of channel j at sample i.
func (s *Snapshots) At(i, j int) complex128 { return s.data.At(i, j) }

// TimeAt returns the timestamp of sample i.
func (s *Snapshots) TimeAt(i int) float64 { return s.times[i] }

// IsReal reports whether every snapshot value has zero imaginary part.
func (s *Snapshots) IsReal() bool {
	m, n := s.data.Dims()
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			if imag(s.data.At(i, j)) != 0 {
				return false
			}
		}
	}
	return true
}

// Resample returns a new snapshot set built from the given sample indices.
// Indices must be sorted and in range; repeats are allowed, which is how
// bootstrap trials weight individual samples. The strict-increase invariant
// is deliberately relaxed here: the exponential basis is well defined on
// repeated timestamps.
func (s *Snapshots) Resample(idx []int) (*Snapshots, error) {
	m, n := s.data.Dims()
	data := mat.NewCDense(len(idx), n, nil)
	times := make([]float64, len(idx))
	prev := -1
	for r, i := range idx {
		if i < 0 || i >= m {
			return nil, ErrDimensionMismatch
		}
		if i < prev {
			return nil, ErrNonIncreasingTime
		}
		prev = i
		for j := 0; j < n; j++ {
			data.Set(r, j, s.data.At(i, j))
		}
		times[r] = s.times[i]
	}
	return &Snapshots{data: data, times: times}, nil
}

// Options is the immutable configuration for a fit call. The zero value of
// every tolerance field is replaced by its default.
type Options struct {
	// Rank is the model order: the number of eigenvalue/mode pairs.
	Rank int

	// InitEigs is an optional initial eigenvalue guess of length Rank.
	// When nil the fitter auto-initializes from a projected linear DMD
	// estimate.
	InitEigs []complex128

	// MaxIter is the outer iteration budget. Default 200.
	MaxIter int

	// Tol is the relative residual tolerance. Default 1e-8.
	Tol float64

	// StepTol terminates when the eigenvalue update becomes smaller than
	// StepTol*(1+|alpha|). Default 1e-12.
	StepTol float64

	// Lambda0 is the initial Levenberg-Marquardt damping. Default 1.0.
	Lambda0 float64

	// LambdaUp and LambdaDown scale the damping after a rejected or
	// accepted step. Defaults 2.0 and 0.5.
	LambdaUp   float64
	LambdaDown float64

	// MaxRejects bounds consecutive rejected steps before the fit is
	// declared stalled. Default 30.
	MaxRejects int

	// CondLimit is the projection condition number beyond which the fit
	// fails with a NumericalError. Default 1e12.
	CondLimit float64

	// RealSystem enforces conjugate symmetry on eigenvalue pairs detected
	// in the initial guess, so real-valued data yields conjugate modes.
	RealSystem bool

	// Timeout, when positive, is checked once per outer iteration.
	Timeout time.Duration

	// Observer, when non-nil, receives per-iteration progress.
	Observer func(Iteration)
}

// Iteration is a progress report handed to Options.Observer.
type Iteration struct {
	Index       int
	Residual    float64
	Relative    float64
	StepNorm    float64
	Lambda      float64
	Eigenvalues []complex128
}

// DefaultOptions returns fit options with default tolerances for the
// given model order.
func DefaultOptions(rank int) Options {
	return Options{
		Rank:       rank,
		MaxIter:    200,
		Tol:        1e-8,
		StepTol:    1e-12,
		Lambda0:    1.0,
		LambdaUp:   2.0,
		LambdaDown: 0.5,
		MaxRejects: 30,
		CondLimit:  1e12,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions(o.Rank)
	if o.MaxIter == 0 {
		o.MaxIter = d.MaxIter
	}
	if o.Tol == 0 {
		o.Tol = d.Tol
	}
	if o.StepTol == 0 {
		o.StepTol = d.StepTol
	}
	if o.Lambda0 == 0 {
		o.Lambda0 = d.Lambda0
	}
	if o.LambdaUp == 0 {
		o.LambdaUp = d.LambdaUp
	}
	if o.LambdaDown == 0 {
		o.LambdaDown = d.LambdaDown
	}
	if o.MaxRejects == 0 {
		o.MaxRejects = d.MaxRejects
	}
	if o.CondLimit == 0 {
		o.CondLimit = d.CondLimit
	}
	return o
}

// Reason describes why the fitter stopped.
type Reason string

const (
	// ReasonResidualTol: relative residual fell below Options.Tol.
	ReasonResidualTol Reason = "residual below tolerance"
	// ReasonStepTol: the eigenvalue update became negligible.
	ReasonStepTol Reason = "step size below tolerance"
	// ReasonMaxIter: iteration budget exhausted without convergence.
	ReasonMaxIter Reason = "iteration budget exhausted"
	// ReasonStalled: too many consecutive rejected damping steps.
	ReasonStalled Reason = "damping stalled"
	// ReasonTimeout: the caller-supplied timeout expired.
	ReasonTimeout Reason = "timeout expired"
)

// Report is the immutable result of a fit call. A Report is returned even
// when the fit did not converge; Converged and TermReason make
// non-convergence distinguishable from success.
type Report struct {
	// Eigenvalues are the converged continuous-time growth/frequency
	// parameters, sorted by descending imaginary part.
	Eigenvalues []complex128

	// Modes holds one unit-norm spatial mode per column, paired
	// one-to-one with Eigenvalues.
	Modes *mat.CDense

	// Amplitudes are the per-mode scaling factors.
	Amplitudes []complex128

	Converged  bool
	TermReason Reason
	Iterations int

	// Residual is the final Frobenius norm of data minus reconstruction;
	// Relative is Residual over the data norm.
	Residual float64
	Relative float64

	// History records the residual norm after every outer iteration.
	History []float64
}

// Reconstruct evaluates the fitted model at the given timestamps and
// returns the reconstructed snapshot matrix (one row per timestamp).
func (r *Report) Reconstruct(times []float64) *mat.CDense {
	return Reconstruction(r.Eigenvalues, r.Modes, r.Amplitudes, times)
}

// Reconstruction evaluates sum_k b_k exp(alpha_k t) mode_k at the given
// timestamps.
func Reconstruction(eigs []complex128, modes *mat.CDense, amps []complex128, times []float64) *mat.CDense {
	n, r := modes.Dims()
	out := mat.NewCDense(len(times), n, nil)
	for i, t := range times {
		for k := 0; k < r; k++ {
			c := amps[k] * cmplx.Exp(eigs[k]*complex(t, 0))
			for j := 0; j < n; j++ {
				out.Set(i, j, out.At(i, j)+c*modes.At(j, k))
			}
		}
	}
	return out
}

// sortEigs orders eigenvalue indices by descending imaginary part, then
// ascending real part. Bootstrap aggregation relies on this ordering to
// line up modes across independent fits.
func sortEigs(eigs []complex128) []int {
	idx := make([]int, len(eigs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := imag(eigs[idx[a]]), imag(eigs[idx[b]])
		if ia != ib {
			return ia > ib
		}
		return real(eigs[idx[a]]) < real(eigs[idx[b]])
	})
	return idx
}

func alphaNorm(alpha []complex128) float64 {
	sum := 0.0
	for _, a := range alpha {
		sum += real(a)*real(a) + imag(a)*imag(a)
	}
	return math.Sqrt(sum)
}
