package linalg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Realify maps a complex m-by-n matrix to its real 2m-by-2n block form
//
//	[ Re(A)  -Im(A) ]
//	[ Im(A)   Re(A) ]
//
// Matrix-vector products and least-squares solutions carry over exactly
// between the two representations, which lets the real QR machinery in
// gonum handle complex systems.
func Realify(a *mat.CDense) *mat.Dense {
	m, n := a.Dims()
	out := mat.NewDense(2*m, 2*n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v := a.At(i, j)
			re, im := real(v), imag(v)
			out.Set(i, j, re)
			out.Set(i, n+j, -im)
			out.Set(m+i, j, im)
			out.Set(m+i, n+j, re)
		}
	}
	return out
}

// StackColumns maps a complex m-by-n matrix to the real 2m-by-n matrix
// whose j-th column is [Re(a_j); Im(a_j)]. This is the right-hand side
// layout matching Realify on the coefficient matrix.
func StackColumns(a *mat.CDense) *mat.Dense {
	m, n := a.Dims()
	out := mat.NewDense(2*m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v := a.At(i, j)
			out.Set(i, j, real(v))
			out.Set(m+i, j, imag(v))
		}
	}
	return out
}

// UnstackColumns inverts StackColumns.
func UnstackColumns(a *mat.Dense) *mat.CDense {
	m2, n := a.Dims()
	m := m2 / 2
	out := mat.NewCDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, complex(a.At(i, j), a.At(m+i, j)))
		}
	}
	return out
}

// Mul returns the complex matrix product a*b, carried out on the
// realified representation.
func Mul(a, b *mat.CDense) *mat.CDense {
	var out mat.Dense
	out.Mul(Realify(a), StackColumns(b))
	return UnstackColumns(&out)
}

// Sub returns the elementwise difference a-b.
func Sub(a, b *mat.CDense) *mat.CDense {
	m, n := a.Dims()
	mb, nb := b.Dims()
	if m != mb || n != nb {
		panic(mat.ErrShape)
	}
	out := mat.NewCDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, a.At(i, j)-b.At(i, j))
		}
	}
	return out
}

// ConditionError reports an ill-conditioned least-squares solve together
// with the estimated condition number of the coefficient matrix.
type ConditionError struct {
	Cond float64
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("linalg: ill-conditioned solve (cond=%.3e)", e.Cond)
}

// LSQ is a factorized complex least-squares solver. The QR factorization
// of the realified coefficient matrix is computed once and reused across
// solves against multiple right-hand sides.
type LSQ struct {
	qr   mat.QR
	rows int
	cols int
}

// NewLSQ factorizes the m-by-n complex coefficient matrix a, m >= n.
func NewLSQ(a *mat.CDense) (*LSQ, error) {
	m, n := a.Dims()
	if m < n {
		return nil, fmt.Errorf("linalg: underdetermined system (%d rows < %d cols)", m, n)
	}
	l := &LSQ{rows: m, cols: n}
	l.qr.Factorize(Realify(a))
	return l, nil
}

// Solve returns the least-squares solution X of A*X = B for a complex
// right-hand side with any number of columns. An ill-conditioned system
// returns the solution together with a *ConditionError.
func (l *LSQ) Solve(b *mat.CDense) (*mat.CDense, error) {
	mb, _ := b.Dims()
	if mb != l.rows {
		return nil, fmt.Errorf("linalg: rhs has %d rows, want %d", mb, l.rows)
	}
	rhs := StackColumns(b)
	var dst mat.Dense
	err := l.qr.SolveTo(&dst, false, rhs)
	if err != nil {
		if c, ok := err.(mat.Condition); ok {
			return UnstackColumns(&dst), &ConditionError{Cond: float64(c)}
		}
		return nil, err
	}
	return UnstackColumns(&dst), nil
}

// Cond estimates the 2-norm condition number of a complex matrix from the
// singular values of its realified form.
func Cond(a *mat.CDense) float64 {
	var svd mat.SVD
	if ok := svd.Factorize(Realify(a), mat.SVDNone); !ok {
		return math.Inf(1)
	}
	vals := svd.Values(nil)
	if len(vals) == 0 || vals[len(vals)-1] == 0 {
		return math.Inf(1)
	}
	return vals[0] / vals[len(vals)-1]
}

// Norm returns the Frobenius norm of a complex matrix.
func Norm(a *mat.CDense) float64 {
	return mat.Norm(StackColumns(a), 2)
}
