package viz

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SaveReconstructionFigure writes a PNG comparing one measured channel
// with its reconstruction over time.
func SaveReconstructionFigure(path string, times, data, recon []float64, channel int) error {
	p := plot.New()
	p.Title.Text = "data vs reconstruction"
	p.X.Label.Text = "time"
	p.Y.Label.Text = "amplitude"

	dataXY := make(plotter.XYs, len(times))
	reconXY := make(plotter.XYs, len(times))
	for i, t := range times {
		dataXY[i].X, dataXY[i].Y = t, data[i]
		reconXY[i].X, reconXY[i].Y = t, recon[i]
	}

	if err := plotutil.AddLines(p, "data", dataXY, "reconstruction", reconXY); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// SaveEigenFigure writes a PNG scatter of the eigenvalues in the complex
// plane (growth on x, frequency on y).
func SaveEigenFigure(path string, eigs []complex128) error {
	p := plot.New()
	p.Title.Text = "eigenvalues"
	p.X.Label.Text = "growth rate"
	p.Y.Label.Text = "frequency (rad/s)"

	pts := make(plotter.XYs, len(eigs))
	for i, e := range eigs {
		pts[i].X, pts[i].Y = real(e), imag(e)
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	p.Add(s, plotter.NewGrid())
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}
