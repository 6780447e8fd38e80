// Package viz renders fit results: asciigraph plots for the terminal and
// gonum/plot PNG figures for files.
package viz

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
)

// ResidualGraph plots the per-iteration residual history.
func ResidualGraph(history []float64) string {
	if len(history) == 0 {
		return "no iterations recorded"
	}
	return asciigraph.Plot(history,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("residual norm per iteration"),
	)
}

// ChannelOverlay plots a measured channel against its reconstruction.
func ChannelOverlay(data, recon []float64, channel int) string {
	return asciigraph.PlotMany([][]float64{data, recon},
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("channel x%d: data vs reconstruction", channel)),
	)
}

// SpectrumGraph plots a power spectrum.
func SpectrumGraph(ps []float64) string {
	plotData := ps
	if len(plotData) > 4 {
		plotData = ps[:len(ps)/4]
	}
	return asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum"),
	)
}

// EigenTable writes eigenvalues, amplitudes and optional per-mode spread
// as an aligned table.
func EigenTable(out io.Writer, eigs, amps []complex128, std []float64) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if std != nil {
		fmt.Fprintln(w, "MODE\tGROWTH\tFREQ(rad/s)\tAMP\tSTD")
	} else {
		fmt.Fprintln(w, "MODE\tGROWTH\tFREQ(rad/s)\tAMP")
	}
	for k := range eigs {
		if std != nil {
			fmt.Fprintf(w, "%d\t%+.6f\t%+.6f\t%.6f\t%.2e\n",
				k, real(eigs[k]), imag(eigs[k]), real(amps[k]), std[k])
		} else {
			fmt.Fprintf(w, "%d\t%+.6f\t%+.6f\t%.6f\n",
				k, real(eigs[k]), imag(eigs[k]), real(amps[k]))
		}
	}
	return w.Flush()
}
