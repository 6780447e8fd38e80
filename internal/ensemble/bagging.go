// Package ensemble implements bagging for optimized DMD (BOP-DMD):
// bootstrap resamples of the snapshot sequence are fitted independently
// and the resulting eigenvalue distribution is aggregated into per-mode
// means and empirical variances.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"sort"
	"sync"

	"github.com/e-moran/dmdlab/internal/dmd"
)

// ErrNoTrials indicates a non-positive trial count.
var ErrNoTrials = errors.New("ensemble: trial count must be positive")

// ErrAllTrialsFailed indicates that every bootstrap fit failed.
var ErrAllTrialsFailed = errors.New("ensemble: all bootstrap trials failed")

// Options configures a bagging run.
type Options struct {
	// Trials is the number of bootstrap resamples.
	Trials int

	// SampleFraction is the resample size as a fraction of the sample
	// count. Default 1.0. Samples are drawn with replacement.
	SampleFraction float64

	// Seed derives one independent random source per trial, keeping the
	// resampling reproducible and parallel-safe.
	Seed int64

	// Fit configures every per-trial fit. Fit.InitEigs is overridden by
	// the eigenvalues of an initial full-data fit.
	Fit dmd.Options
}

// Summary aggregates an ensemble of independent fits.
type Summary struct {
	// MeanEigenvalues is the per-mode mean across trials, with modes
	// aligned by the shared eigenvalue ordering.
	MeanEigenvalues []complex128

	// EigStd is the per-mode empirical standard deviation
	// sqrt(E|eig - mean|^2).
	EigStd []float64

	// MeanAmplitudes is the per-mode mean amplitude across trials.
	MeanAmplitudes []complex128

	// Base is the full-data fit the trials were initialized from.
	Base *dmd.Report

	Trials       int
	Failed       int
	NonConverged int
}

// Run fits every bootstrap resample independently on its own goroutine and
// aggregates the eigenvalue distribution. Trials share no mutable state;
// results are collected only after all workers finish.
func Run(ctx context.Context, s *dmd.Snapshots, opts Options) (*Summary, error) {
	if opts.Trials <= 0 {
		return nil, ErrNoTrials
	}
	frac := opts.SampleFraction
	if frac == 0 {
		frac = 1.0
	}
	if frac <= 0 || frac > 1 {
		return nil, fmt.Errorf("ensemble: sample fraction %v out of (0, 1]", opts.SampleFraction)
	}

	base, err := dmd.Fit(ctx, s, opts.Fit)
	if err != nil {
		return nil, fmt.Errorf("ensemble: base fit: %w", err)
	}

	m, _ := s.Dims()
	size := int(math.Round(frac * float64(m)))
	if size < 2*opts.Fit.Rank {
		size = 2 * opts.Fit.Rank
	}

	reports := make([]*dmd.Report, opts.Trials)
	errs := make([]error, opts.Trials)

	var wg sync.WaitGroup
	for i := 0; i < opts.Trials; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			rnd := rand.New(rand.NewSource(opts.Seed + int64(idx)))
			trial, err := resample(s, size, rnd)
			if err != nil {
				errs[idx] = err
				return
			}

			cfg := opts.Fit
			cfg.InitEigs = base.Eigenvalues
			cfg.Observer = nil

			reports[idx], errs[idx] = dmd.Fit(ctx, trial, cfg)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return aggregate(base, reports, errs, opts.Trials)
}

// resample draws rows with replacement and keeps them in time order.
// Repeated rows act as sample weights in the trial's least-squares
// problems.
func resample(s *dmd.Snapshots, size int, rnd *rand.Rand) (*dmd.Snapshots, error) {
	m, _ := s.Dims()
	idx := make([]int, size)
	for i := range idx {
		idx[i] = rnd.Intn(m)
	}
	sort.Ints(idx)
	return s.Resample(idx)
}

func aggregate(base *dmd.Report, reports []*dmd.Report, errs []error, trials int) (*Summary, error) {
	rank := len(base.Eigenvalues)
	mean := make([]complex128, rank)
	meanAmp := make([]complex128, rank)
	ok := 0
	failed := 0
	nonConverged := 0

	for i, rep := range reports {
		if errs[i] != nil || rep == nil {
			failed++
			continue
		}
		if !rep.Converged {
			nonConverged++
		}
		for k := 0; k < rank; k++ {
			mean[k] += rep.Eigenvalues[k]
			meanAmp[k] += rep.Amplitudes[k]
		}
		ok++
	}
	if ok == 0 {
		return nil, ErrAllTrialsFailed
	}
	for k := 0; k < rank; k++ {
		mean[k] /= complex(float64(ok), 0)
		meanAmp[k] /= complex(float64(ok), 0)
	}

	std := make([]float64, rank)
	for i, rep := range reports {
		if errs[i] != nil || rep == nil {
			continue
		}
		for k := 0; k < rank; k++ {
			d := cmplx.Abs(rep.Eigenvalues[k] - mean[k])
			std[k] += d * d
		}
	}
	for k := 0; k < rank; k++ {
		std[k] = math.Sqrt(std[k] / float64(ok))
	}

	return &Summary{
		MeanEigenvalues: mean,
		EigStd:          std,
		MeanAmplitudes:  meanAmp,
		Base:            base,
		Trials:          trials,
		Failed:          failed,
		NonConverged:    nonConverged,
	}, nil
}
