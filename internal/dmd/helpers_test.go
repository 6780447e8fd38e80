package dmd

import (
	"math"
	"math/cmplx"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// testTimes returns n uniformly spaced samples on [0, tMax].
func testTimes(n int, tMax float64) []float64 {
	times := make([]float64, n)
	for i := range times {
		times[i] = tMax * float64(i) / float64(n-1)
	}
	return times
}

// unitProfiles draws deterministic unit-norm complex spatial profiles.
func unitProfiles(k, channels int, seed int64) [][]complex128 {
	rnd := rand.New(rand.NewSource(seed))
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

// expField synthesizes sum_k amp_k exp(eig_k t) profile_k as a complex
// snapshot set.
func expField(eigs, amps []complex128, profiles [][]complex128, times []float64) *Snapshots {
	channels := len(profiles[0])
	data := mat.NewCDense(len(times), channels, nil)
	for i, t := range times {
		for k, e := range eigs {
			c := amps[k] * cmplx.Exp(e*complex(t, 0))
			for j := 0; j < channels; j++ {
				data.Set(i, j, data.At(i, j)+c*profiles[k][j])
			}
		}
	}
	s, err := NewSnapshots(data, times)
	if err != nil {
		panic(err)
	}
	return s
}

// realExpField synthesizes the conjugate-symmetric closure of the given
// modes, yielding a real-valued snapshot set of rank 2*len(eigs).
func realExpField(eigs, amps []complex128, profiles [][]complex128, times []float64) *Snapshots {
	channels := len(profiles[0])
	data := mat.NewCDense(len(times), channels, nil)
	for i, t := range times {
		for k, e := range eigs {
			c := amps[k] * cmplx.Exp(e*complex(t, 0))
			for j := 0; j < channels; j++ {
				v := c * profiles[k][j]
				data.Set(i, j, data.At(i, j)+complex(2*real(v), 0))
			}
		}
	}
	s, err := NewSnapshots(data, times)
	if err != nil {
		panic(err)
	}
	return s
}

// noisy perturbs a snapshot set with seeded Gaussian noise.
func noisy(s *Snapshots, std float64, seed int64) *Snapshots {
	rnd := rand.New(rand.NewSource(seed))
	m, n := s.Dims()
	data := mat.NewCDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			data.Set(i, j, s.At(i, j)+complex(rnd.NormFloat64()*std, 0))
		}
	}
	out, err := NewSnapshots(data, s.Times())
	if err != nil {
		panic(err)
	}
	return out
}
