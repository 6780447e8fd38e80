package dmd

import (
	"context"
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/e-moran/dmdlab/internal/linalg"
)

// projection is the state of one variable-projection evaluation: the
// exponential basis at the current eigenvalues, the factorized solver for
// it, the linearly eliminated coefficient matrix B (X ~ Phi*B), and the
// residual.
type projection struct {
	phi     *mat.CDense
	lsq     *linalg.LSQ
	coef    *mat.CDense
	resid   *mat.CDense
	resNorm float64
}

// project eliminates the linear coefficients for the given eigenvalues by
// least squares. This closed-form elimination is what keeps the nonlinear
// problem well conditioned.
func project(alpha []complex128, s *Snapshots, condLimit float64, iter int) (*projection, error) {
	phi := expBasis(alpha, s.times)
	lsq, err := linalg.NewLSQ(phi)
	if err != nil {
		return nil, &NumericalError{Iteration: iter, Cond: math.Inf(1), Wrapped: err}
	}
	coef, err := lsq.Solve(s.data)
	if err != nil {
		var ce *linalg.ConditionError
		if errors.As(err, &ce) {
			if ce.Cond > condLimit {
				return nil, &NumericalError{Iteration: iter, Cond: ce.Cond, Wrapped: ErrSingularProjection}
			}
			// Tolerably ill-conditioned; keep the solution.
		} else {
			return nil, &NumericalError{Iteration: iter, Cond: linalg.Cond(phi), Wrapped: err}
		}
	}
	if !validData(coef) {
		return nil, &NumericalError{Iteration: iter, Cond: linalg.Cond(phi), Wrapped: ErrSingularProjection}
	}

	resid := linalg.Sub(s.data, linalg.Mul(phi, coef))

	return &projection{
		phi:     phi,
		lsq:     lsq,
		coef:    coef,
		resid:   resid,
		resNorm: linalg.Norm(resid),
	}, nil
}

// Fit runs optimized DMD: Levenberg-Marquardt nonlinear least squares over
// the continuous-time eigenvalues, with the mode coefficients eliminated in
// closed form at every iterate (variable projection).
//
// Fit always returns a usable Report when the iteration ran, even without
// convergence; check Report.Converged. Configuration and unrecoverable
// numerical failures return an error instead.
func Fit(ctx context.Context, s *Snapshots, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	m, _ := s.data.Dims()

	if opts.Rank <= 0 {
		return nil, ErrInvalidRank
	}
	if m < 2*opts.Rank {
		return nil, ErrRankTooLarge
	}

	var alpha []complex128
	if opts.InitEigs != nil {
		if len(opts.InitEigs) != opts.Rank {
			return nil, ErrInitMismatch
		}
		alpha = append([]complex128(nil), opts.InitEigs...)
	} else {
		est, err := linearEstimate(s, opts.Rank)
		if err != nil {
			return nil, err
		}
		alpha = est
	}

	var sym pairing
	if opts.RealSystem {
		sym = detectConjugatePairs(alpha)
		sym.enforce(alpha)
	}

	dataNorm := linalg.Norm(s.data)
	if dataNorm == 0 {
		return nil, ErrInvalidData
	}

	cur, err := project(alpha, s, opts.CondLimit, 0)
	if err != nil {
		return nil, err
	}

	if cur.resNorm/dataNorm <= opts.Tol {
		// The initial guess already fits to tolerance.
		return finishReport(alpha, cur, dataNorm, true, ReasonResidualTol, 0, nil), nil
	}

	lambda := opts.Lambda0
	deadline := time.Time{}
	if opts.Timeout > 0 {
		deadline = time.Now().Add(opts.Timeout)
	}

	history := make([]float64, 0, opts.MaxIter)
	converged := false
	reason := ReasonMaxIter
	iters := 0

	for it := 1; it <= opts.MaxIter; it++ {
		select {
		case <-ctx.Done():
			rep := finishReport(alpha, cur, dataNorm, false, ReasonTimeout, iters, history)
			return rep, ctx.Err()
		default:
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			reason = ReasonTimeout
			break
		}

		jac, rvec := buildJacobian(alpha, cur, s, opts.CondLimit, it)
		if jac == nil {
			return nil, &NumericalError{Iteration: it, Cond: linalg.Cond(cur.phi), Wrapped: ErrSingularProjection}
		}

		r2 := 2 * len(alpha)
		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		grad := mat.NewVecDense(r2, nil)
		grad.MulVec(jac.T(), rvec)

		var next *projection
		var step []complex128
		var stepNorm float64
		accepted := false

		for reject := 0; reject <= opts.MaxRejects; reject++ {
			delta, solveErr := dampedStep(&jtj, grad, lambda)
			if solveErr != nil {
				lambda *= opts.LambdaUp
				continue
			}

			trial := make([]complex128, len(alpha))
			for k := range alpha {
				trial[k] = alpha[k] + complex(delta.AtVec(2*k), delta.AtVec(2*k+1))
			}
			if opts.RealSystem {
				sym.enforce(trial)
			}

			cand, projErr := project(trial, s, opts.CondLimit, it)
			if projErr != nil {
				lambda *= opts.LambdaUp
				continue
			}
			if cand.resNorm < cur.resNorm {
				stepNorm = 0
				for k := range alpha {
					d := trial[k] - alpha[k]
					stepNorm += real(d)*real(d) + imag(d)*imag(d)
				}
				stepNorm = math.Sqrt(stepNorm)
				step = trial
				next = cand
				lambda = math.Max(lambda*opts.LambdaDown, 1e-12)
				accepted = true
				break
			}
			lambda *= opts.LambdaUp
		}

		iters = it
		if !accepted {
			reason = ReasonStalled
			break
		}

		alpha = step
		cur = next
		rel := cur.resNorm / dataNorm
		history = append(history, cur.resNorm)

		if opts.Observer != nil {
			opts.Observer(Iteration{
				Index:       it,
				Residual:    cur.resNorm,
				Relative:    rel,
				StepNorm:    stepNorm,
				Lambda:      lambda,
				Eigenvalues: append([]complex128(nil), alpha...),
			})
		}

		if rel <= opts.Tol {
			converged = true
			reason = ReasonResidualTol
			break
		}
		if stepNorm <= opts.StepTol*(1+alphaNorm(alpha)) {
			converged = true
			reason = ReasonStepTol
			break
		}
	}

	return finishReport(alpha, cur, dataNorm, converged, reason, iters, history), nil
}

// buildJacobian assembles the real Jacobian of the projected residual with
// respect to the real and imaginary eigenvalue components, using the
// Kaufman approximation: only the basis derivative term, with the
// coefficient matrix held fixed and the result projected off the basis
// column space. Returns the Jacobian and the flattened residual.
func buildJacobian(alpha []complex128, cur *projection, s *Snapshots, condLimit float64, iter int) (*mat.Dense, *mat.VecDense) {
	m, n := s.data.Dims()
	r := len(alpha)

	jac := mat.NewDense(2*m*n, 2*r, nil)
	for k := 0; k < r; k++ {
		dphi := expBasisDeriv(alpha[k], s.times)

		// Rank-one derivative block dphi_k * B[k,:].
		d := mat.NewCDense(m, n, nil)
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				d.Set(i, j, dphi[i]*cur.coef.At(k, j))
			}
		}

		// Project off the basis column space: (I - Phi Phi^+) d.
		pd, err := cur.lsq.Solve(d)
		if err != nil {
			var ce *linalg.ConditionError
			if !errors.As(err, &ce) || ce.Cond > condLimit {
				return nil, nil
			}
		}
		d = linalg.Sub(d, linalg.Mul(cur.phi, pd))

		// dR/d(Re alpha_k) = -d, dR/d(Im alpha_k) = -i*d.
		for j := 0; j < n; j++ {
			for i := 0; i < m; i++ {
				v := d.At(i, j)
				row := j*m + i
				jac.Set(row, 2*k, -real(v))
				jac.Set(m*n+row, 2*k, -imag(v))
				jac.Set(row, 2*k+1, imag(v))
				jac.Set(m*n+row, 2*k+1, -real(v))
			}
		}
	}

	rvec := mat.NewVecDense(2*m*n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			v := cur.resid.At(i, j)
			rvec.SetVec(j*m+i, real(v))
			rvec.SetVec(m*n+j*m+i, imag(v))
		}
	}
	return jac, rvec
}

// dampedStep solves (J^T J + lambda*diag(J^T J)) delta = -g, the Marquardt
// scaled trust-region system.
func dampedStep(jtj *mat.Dense, grad *mat.VecDense, lambda float64) (*mat.VecDense, error) {
	r2, _ := jtj.Dims()
	a := mat.NewDense(r2, r2, nil)
	a.Copy(jtj)
	for i := 0; i < r2; i++ {
		d := jtj.At(i, i)
		if d < floatEps {
			d = floatEps
		}
		a.Set(i, i, jtj.At(i, i)+lambda*d)
	}
	neg := mat.NewVecDense(r2, nil)
	neg.ScaleVec(-1, grad)
	delta := mat.NewVecDense(r2, nil)
	if err := delta.SolveVec(a, neg); err != nil {
		return nil, err
	}
	return delta, nil
}

// finishReport normalizes the final coefficient matrix into unit modes and
// amplitudes, sorted by the shared eigenvalue ordering.
func finishReport(alpha []complex128, cur *projection, dataNorm float64, converged bool, reason Reason, iters int, history []float64) *Report {
	_, n := cur.coef.Dims()
	order := sortEigs(alpha)
	r := len(alpha)

	eigs := make([]complex128, r)
	modes := mat.NewCDense(n, r, nil)
	amps := make([]complex128, r)
	for pos, k := range order {
		eigs[pos] = alpha[k]
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

	return &Report{
		Eigenvalues: eigs,
		Modes:       modes,
		Amplitudes:  amps,
		Converged:   converged,
		TermReason:  reason,
		Iterations:  iters,
		Residual:    cur.resNorm,
		Relative:    cur.resNorm / dataNorm,
		History:     history,
	}
}
