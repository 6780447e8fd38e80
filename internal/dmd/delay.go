package dmd

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DelayEmbed applies Hankel time-delay embedding: each output sample
// stacks d consecutive snapshots, raising the channel dimension from n to
// n*d and dropping the last d-1 samples. Embedding lifts signals whose
// spatial dimension is below the model order (a single channel cannot
// carry an oscillating pair on its own) and assumes near-uniform
// sampling. d=1 is the identity.
func DelayEmbed(s *Snapshots, d int) (*Snapshots, error) {
	m, n := s.data.Dims()
	if d < 1 {
		return nil, ErrInvalidDelay
	}
	if m-d+1 < 2 {
		return nil, fmt.Errorf("%w: %d delays leave %d of %d samples", ErrInvalidDelay, d, m-d+1, m)
	}
	if d == 1 {
		return s, nil
	}

	rows := m - d + 1
	data := mat.NewCDense(rows, n*d, nil)
	for i := 0; i < rows; i++ {
		for l := 0; l < d; l++ {
			for j := 0; j < n; j++ {
				data.Set(i, l*n+j, s.data.At(i+l, j))
			}
		}
	}
	times := make([]float64, rows)
	copy(times, s.times[:rows])
	return &Snapshots{data: data, times: times}, nil
}
