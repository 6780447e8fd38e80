package analysis

import (
	"errors"
	"math"

	"github.com/maorshutman/lm"
)

// ErrProbeFailed indicates the damped-sinusoid probe did not produce a
// usable fit.
var ErrProbeFailed = errors.New("analysis: damped sinusoid probe failed")

// ProbeFit is a single-channel damped sinusoid a*exp(g*t)*cos(w*t+p),
// fitted by plain Levenberg-Marquardt. It is a cheap sanity check on one
// channel before committing to a full multi-channel DMD fit: the growth
// rate and angular frequency should roughly match one of the dominant
// eigenvalues.
type ProbeFit struct {
	Amp    float64
	Growth float64
	Freq   float64 // angular frequency, rad/s
	Phase  float64
	RMSE   float64
}

// ProbeChannel fits a damped sinusoid to one channel. The frequency guess
// is seeded from the channel's power spectrum.
func ProbeChannel(times, values []float64) (*ProbeFit, error) {
	if len(times) != len(values) || len(times) < 8 {
		return nil, ErrProbeFailed
	}

	residual := func(dst, x []float64) {
		for i, t := range times {
			dst[i] = x[0]*math.Exp(x[1]*t)*math.Cos(x[2]*t+x[3]) - values[i]
		}
	}

	amp := 0.0
	for _, v := range values {
		if a := math.Abs(v); a > amp {
			amp = a
		}
	}
	if amp == 0 {
		return nil, ErrProbeFailed
	}
	dt := (times[len(times)-1] - times[0]) / float64(len(times)-1)
	omega := 2 * math.Pi * DominantFrequency(values, dt)

	jac := lm.NumJac{Func: residual}
	prob := lm.LMProblem{
		Dim:        4,
		Size:       len(values),
		Func:       residual,
		Jac:        jac.Jac,
		InitParams: []float64{amp, 0, omega, 0},
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	results, err := lm.LM(prob, &lm.Settings{Iterations: 200, ObjectiveTol: 1e-16})
	if err != nil {
		return nil, err
	}

	fit := &ProbeFit{
		Amp:    results.X[0],
		Growth: results.X[1],
		Freq:   results.X[2],
		Phase:  results.X[3],
	}
	sum := 0.0
	for i, t := range times {
		d := fit.Amp*math.Exp(fit.Growth*t)*math.Cos(fit.Freq*t+fit.Phase) - values[i]
		sum += d * d
	}
	fit.RMSE = math.Sqrt(sum / float64(len(values)))
	if math.IsNaN(fit.RMSE) || math.IsInf(fit.RMSE, 0) {
		return nil, ErrProbeFailed
	}
	return fit, nil
}
