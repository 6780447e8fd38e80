package analysis

import (
	"errors"
	"math"
	"testing"
)

func TestProbeChannelRecoversDampedSinusoid(t *testing.T) {
	const (
		amp    = 1.5
		growth = -0.1
		omega  = 3.0
		phase  = 0.4
	)
	n := 400
	times := make([]float64, n)
	values := make([]float64, n)
	for i := range times {
		times[i] = 0.025 * float64(i)
		values[i] = amp * math.Exp(growth*times[i]) * math.Cos(omega*times[i]+phase)
	}

	fit, err := ProbeChannel(times, values)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}

	if math.Abs(math.Abs(fit.Amp)-amp) > 1e-3 {
		t.Errorf("amplitude: expected %v, got %v", amp, fit.Amp)
	}
	if math.Abs(fit.Growth-growth) > 1e-3 {
		t.Errorf("growth: expected %v, got %v", growth, fit.Growth)
	}
	if math.Abs(math.Abs(fit.Freq)-omega) > 1e-3 {
		t.Errorf("frequency: expected %v, got %v", omega, fit.Freq)
	}
	if fit.RMSE > 1e-4 {
		t.Errorf("expected near-zero rmse, got %v", fit.RMSE)
	}
}

func TestProbeChannelValidation(t *testing.T) {
	short := []float64{0, 1, 2}
	if _, err := ProbeChannel(short, short); !errors.Is(err, ErrProbeFailed) {
		t.Errorf("short input: expected %v, got %v", ErrProbeFailed, err)
	}

	times := make([]float64, 20)
	values := make([]float64, 20)
	for i := range times {
		times[i] = float64(i)
	}
	if _, err := ProbeChannel(times, values); !errors.Is(err, ErrProbeFailed) {
		t.Errorf("all-zero input: expected %v, got %v", ErrProbeFailed, err)
	}

	if _, err := ProbeChannel(times, values[:10]); !errors.Is(err, ErrProbeFailed) {
		t.Errorf("mismatched lengths: expected %v, got %v", ErrProbeFailed, err)
	}
}
