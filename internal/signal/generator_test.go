package signal_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/e-moran/dmdlab/internal/signal"
)

var _ = Describe("Generator", func() {
	newGen := func() *signal.Generator {
		g := signal.New(50, 40, -5, 5, 0, 10)
		g.AddTravellingWave(2, 1.5, 0.5, 0)
		return g
	}

	It("reports grid dimensions", func() {
		g := newGen()
		nt, nx := g.Dims()
		Expect(nt).To(Equal(40))
		Expect(nx).To(Equal(50))
		Expect(g.Space()).To(HaveLen(50))
		Expect(g.Times()).To(HaveLen(40))
		Expect(g.Space()[0]).To(Equal(-5.0))
		Expect(g.Space()[49]).To(BeNumerically("~", 5, 1e-12))
	})

	It("produces pure frames", func() {
		g := newGen()
		a, err := g.Frame(7)
		Expect(err).NotTo(HaveOccurred())
		b, err := g.Frame(7)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(a))
	})

	It("normalizes travelling waves to the component amplitude", func() {
		g := newGen()
		frame, err := g.Frame(0)
		Expect(err).NotTo(HaveOccurred())
		norm := 0.0
		for _, v := range frame {
			norm += v * v
		}
		Expect(math.Sqrt(norm)).To(BeNumerically("~", 2, 1e-9))
	})

	It("rejects out-of-range frame indices", func() {
		g := newGen()
		_, err := g.Frame(40)
		Expect(err).To(MatchError(signal.ErrExhausted))
		_, err = g.Frame(-1)
		Expect(err).To(MatchError(signal.ErrExhausted))
	})

	It("exhausts and rewinds the cursor", func() {
		g := newGen()
		first, err := g.Frame(0)
		Expect(err).NotTo(HaveOccurred())

		count := 0
		for {
			_, _, err := g.Next()
			if err != nil {
				Expect(err).To(MatchError(signal.ErrExhausted))
				break
			}
			count++
		}
		Expect(count).To(Equal(40))

		// Exhausted stays exhausted until Reset.
		_, _, err = g.Next()
		Expect(err).To(MatchError(signal.ErrExhausted))

		g.Reset()
		t0, frame, err := g.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(t0).To(Equal(0.0))
		Expect(frame).To(Equal(first))
	})

	It("derives noise deterministically from the seed and frame index", func() {
		a := signal.New(30, 20, -5, 5, 0, 10)
		a.AddTravellingWave(1, 1, 1, 0)
		a.AddNoise(0.1, 99)

		b := signal.New(30, 20, -5, 5, 0, 10)
		b.AddTravellingWave(1, 1, 1, 0)
		b.AddNoise(0.1, 99)

		fa, err := a.Frame(5)
		Expect(err).NotTo(HaveOccurred())
		fb, err := b.Frame(5)
		Expect(err).NotTo(HaveOccurred())
		Expect(fb).To(Equal(fa))

		c := signal.New(30, 20, -5, 5, 0, 10)
		c.AddTravellingWave(1, 1, 1, 0)
		c.AddNoise(0.1, 100)
		fc, err := c.Frame(5)
		Expect(err).NotTo(HaveOccurred())
		Expect(fc).NotTo(Equal(fa))
	})

	It("materializes snapshots matching the frames", func() {
		g := newGen()
		s, err := g.Snapshots()
		Expect(err).NotTo(HaveOccurred())

		m, n := s.Dims()
		Expect(m).To(Equal(40))
		Expect(n).To(Equal(50))
		Expect(s.IsReal()).To(BeTrue())

		frame, err := g.Frame(3)
		Expect(err).NotTo(HaveOccurred())
		for j, v := range frame {
			Expect(real(s.At(3, j))).To(Equal(v))
		}
	})
})

var _ = Describe("ModeField", func() {
	times := []float64{0, 0.1, 0.2, 0.3, 0.4}

	It("builds a complex field with unit-energy initial profiles", func() {
		modes := []signal.ExpMode{{Growth: -0.1, Freq: 2, Amp: 1.5}}
		s, err := signal.ModeField(modes, 8, times, rand.New(rand.NewSource(1)))
		Expect(err).NotTo(HaveOccurred())

		m, n := s.Dims()
		Expect(m).To(Equal(5))
		Expect(n).To(Equal(8))

		// At t=0 the row is amp * (unit profile).
		norm := 0.0
		for j := 0; j < n; j++ {
			v := s.At(0, j)
			norm += real(v)*real(v) + imag(v)*imag(v)
		}
		Expect(math.Sqrt(norm)).To(BeNumerically("~", 1.5, 1e-10))
	})

	It("builds conjugate-closed real fields", func() {
		modes := []signal.ExpMode{{Growth: -0.05, Freq: 2, Amp: 1}}
		s, err := signal.RealModeField(modes, 6, times, rand.New(rand.NewSource(1)))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.IsReal()).To(BeTrue())
	})

	It("exposes the eigenvalue of a mode", func() {
		m := signal.ExpMode{Growth: -0.1, Freq: 2}
		Expect(m.Eigenvalue()).To(Equal(complex(-0.1, 2)))
	})
})
