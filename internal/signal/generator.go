package signal

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/e-moran/dmdlab/internal/dmd"
)

// ErrExhausted indicates the frame cursor ran past the final sample.
var ErrExhausted = errors.New("signal: sequence exhausted")

// Generator synthesizes spatio-temporal signals on a regular space/time
// grid as a sum of components. Frames are produced lazily and the sequence
// is finite and restartable: Frame is pure, and the Next/Reset cursor can
// be rewound at any point.
type Generator struct {
	nx, nt     int
	xMin, xMax float64
	tMin, tMax float64
	components []component
	noiseStd   float64
	noiseSeed  int64
	hasNoise   bool
	cursor     int
}

type component interface {
	eval(dst []float64, x []float64, t float64)
}

// New returns a generator over an nx-by-nt grid spanning the given space
// and time intervals.
func New(nx, nt int, xMin, xMax, tMin, tMax float64) *Generator {
	return &Generator{
		nx:   nx,
		nt:   nt,
		xMin: xMin,
		xMax: xMax,
		tMin: tMin,
		tMax: tMax,
	}
}

// Space returns the spatial coordinate vector.
func (g *Generator) Space() []float64 { return linspace(g.xMin, g.xMax, g.nx) }

// Times returns the temporal coordinate vector.
func (g *Generator) Times() []float64 { return linspace(g.tMin, g.tMax, g.nt) }

// Dims returns the number of time samples and spatial points.
func (g *Generator) Dims() (nt, nx int) { return g.nt, g.nx }

// AddTravellingWave adds a damped travelling sinusoid
// a*sin(k*x - omega*t)*exp(gamma*t), normalized to unit spatial norm at
// every time sample before scaling by a.
func (g *Generator) AddTravellingWave(a, k, omega, gamma float64) {
	g.components = append(g.components, &travellingWave{a: a, k: k, omega: omega, gamma: gamma})
}

// AddStandingWave adds a Gaussian-bump standing cosine
// a*exp(-k*(x+c)^2)*cos(omega*t), normalized by the area under the spatial
// profile.
func (g *Generator) AddStandingWave(a, k, omega, c float64) {
	w := &standingWave{a: a, k: k, omega: omega, c: c}
	w.area = trapezoid(g.Space(), func(x float64) float64 {
		return math.Exp(-k * (x + c) * (x + c))
	})
	g.components = append(g.components, w)
}

// AddTrend adds a spatially uniform linear trend mu + slope*t.
func (g *Generator) AddTrend(mu, slope float64) {
	g.components = append(g.components, &trend{mu: mu, slope: slope})
}

// AddNoise enables additive Gaussian noise with the given standard
// deviation. Noise is derived deterministically from the seed and the
// frame index, so the sequence stays restartable.
func (g *Generator) AddNoise(std float64, seed int64) {
	g.noiseStd = std
	g.noiseSeed = seed
	g.hasNoise = true
}

// Frame evaluates the i-th time sample. Frame is pure: the same index
// always yields the same values.
func (g *Generator) Frame(i int) ([]float64, error) {
	if i < 0 || i >= g.nt {
		return nil, ErrExhausted
	}
	x := g.Space()
	t := g.Times()[i]

	frame := make([]float64, g.nx)
	buf := make([]float64, g.nx)
	for _, c := range g.components {
		c.eval(buf, x, t)
		for j := range frame {
			frame[j] += buf[j]
		}
	}
	if g.hasNoise {
		rnd := rand.New(rand.NewSource(g.noiseSeed + int64(i)))
		for j := range frame {
			frame[j] += rnd.NormFloat64() * g.noiseStd
		}
	}
	return frame, nil
}

// Next returns the frame at the cursor and advances it. After the final
// frame it returns ErrExhausted until Reset is called.
func (g *Generator) Next() (t float64, frame []float64, err error) {
	frame, err = g.Frame(g.cursor)
	if err != nil {
		return 0, nil, err
	}
	t = g.Times()[g.cursor]
	g.cursor++
	return t, frame, nil
}

// Reset rewinds the frame cursor to the first sample.
func (g *Generator) Reset() { g.cursor = 0 }

// Snapshots materializes the full sequence as a snapshot matrix.
func (g *Generator) Snapshots() (*dmd.Snapshots, error) {
	data := mat.NewDense(g.nt, g.nx, nil)
	for i := 0; i < g.nt; i++ {
		frame, err := g.Frame(i)
		if err != nil {
			return nil, err
		}
		data.SetRow(i, frame)
	}
	return dmd.NewRealSnapshots(data, g.Times())
}

type travellingWave struct {
	a, k, omega, gamma float64
}

func (w *travellingWave) eval(dst []float64, x []float64, t float64) {
	norm := 0.0
	for j, xj := range x {
		v := math.Sin(w.k*xj-w.omega*t) * math.Exp(w.gamma*t)
		dst[j] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for j := range dst {
		dst[j] *= w.a / norm
	}
}

type standingWave struct {
	a, k, omega, c float64
	area           float64
}

func (w *standingWave) eval(dst []float64, x []float64, t float64) {
	ct := math.Cos(w.omega * t)
	for j, xj := range x {
		dst[j] = w.a * math.Exp(-w.k*(xj+w.c)*(xj+w.c)) / w.area * ct
	}
}

type trend struct {
	mu, slope float64
}

func (tr *trend) eval(dst []float64, _ []float64, t float64) {
	v := tr.mu + tr.slope*t
	for j := range dst {
		dst[j] = v
	}
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func trapezoid(x []float64, f func(float64) float64) float64 {
	sum := 0.0
	for i := 1; i < len(x); i++ {
		sum += (f(x[i]) + f(x[i-1])) / 2 * (x[i] - x[i-1])
	}
	return sum
}
