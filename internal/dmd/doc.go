// Package dmd implements optimized Dynamic Mode Decomposition: fitting a
// sum of complex exponential modes to snapshot data by variable-projection
// nonlinear least squares.
//
// The package defines the fundamental types and operations:
//
//   - [Snapshots]: validated snapshot matrix with sample timestamps
//   - [Options]: immutable fit configuration
//   - [Fit]: the Levenberg-Marquardt variable-projection fitter
//   - [ExtractModes]: one-shot mode/amplitude recovery for known eigenvalues
//   - [Report]: eigenvalues, modes, amplitudes and convergence diagnostics
//
// # Example
//
//	snaps, _ := dmd.NewRealSnapshots(data, times)
//	rep, err := dmd.Fit(ctx, snaps, dmd.DefaultOptions(4))
//	if err != nil {
//	    // configuration or numerical failure
//	}
//	if !rep.Converged {
//	    // budget exhausted; rep still carries the best-effort result
//	}
//
// # Convergence
//
// Non-convergence is not an error: a degenerate fit silently returned as
// success is precisely the failure mode this design guards against, so
// Report.Converged and Report.TermReason always make the distinction
// explicit.
package dmd
