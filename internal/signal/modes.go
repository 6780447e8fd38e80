package signal

import (
	"math"
	"math/cmplx"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/e-moran/dmdlab/internal/dmd"
)

// ExpMode describes one complex exponential component
// amp * exp((growth + i*freq) * t).
type ExpMode struct {
	Growth float64
	Freq   float64
	Amp    float64
}

// Eigenvalue returns the continuous-time eigenvalue of the mode.
func (m ExpMode) Eigenvalue() complex128 {
	return complex(m.Growth, m.Freq)
}

// ModeField builds a complex snapshot set from the given modes, each with
// a random unit-norm spatial profile drawn from rnd. The ground-truth
// eigenvalues are exactly the mode eigenvalues, which makes the field the
// controlled input for fitter validation.
func ModeField(modes []ExpMode, channels int, times []float64, rnd *rand.Rand) (*dmd.Snapshots, error) {
	profiles := randomProfiles(len(modes), channels, rnd)
	data := mat.NewCDense(len(times), channels, nil)
	for i, t := range times {
		for k, md := range modes {
			c := complex(md.Amp, 0) * cmplx.Exp(md.Eigenvalue()*complex(t, 0))
			for j := 0; j < channels; j++ {
				data.Set(i, j, data.At(i, j)+c*profiles[k][j])
			}
		}
	}
	return dmd.NewSnapshots(data, times)
}

// RealModeField builds a real-valued snapshot set: every mode contributes
// together with its complex conjugate, so the ground-truth spectrum is the
// conjugate-symmetric closure of the mode eigenvalues (rank 2*len(modes)).
func RealModeField(modes []ExpMode, channels int, times []float64, rnd *rand.Rand) (*dmd.Snapshots, error) {
	profiles := randomProfiles(len(modes), channels, rnd)
	data := mat.NewDense(len(times), channels, nil)
	for i, t := range times {
		for k, md := range modes {
			c := complex(md.Amp, 0) * cmplx.Exp(md.Eigenvalue()*complex(t, 0))
			for j := 0; j < channels; j++ {
				data.Set(i, j, data.At(i, j)+2*real(c*profiles[k][j]))
			}
		}
	}
	return dmd.NewRealSnapshots(data, times)
}

// AddGaussianNoise perturbs a snapshot set with seeded Gaussian noise of
// the given standard deviation, returning a new set.
func AddGaussianNoise(s *dmd.Snapshots, std float64, rnd *rand.Rand) (*dmd.Snapshots, error) {
	m, n := s.Dims()
	data := mat.NewCDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v := s.At(i, j)
			if imag(v) == 0 {
				data.Set(i, j, v+complex(rnd.NormFloat64()*std, 0))
			} else {
				data.Set(i, j, v+complex(rnd.NormFloat64()*std, rnd.NormFloat64()*std))
			}
		}
	}
	return dmd.NewSnapshots(data, s.Times())
}

func randomProfiles(k, channels int, rnd *rand.Rand) [][]complex128 {
	profiles := make([][]complex128, k)
	for i := range profiles {
		p := make([]complex128, channels)
		norm := 0.0
		for j := range p {
			p[j] = complex(rnd.NormFloat64(), rnd.NormFloat64())
			norm += real(p[j])*real(p[j]) + imag(p[j])*imag(p[j])
		}
		norm = math.Sqrt(norm)
		for j := range p {
			p[j] /= complex(norm, 0)
		}
		profiles[i] = p
	}
	return profiles
}
