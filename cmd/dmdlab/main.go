package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/e-moran/dmdlab/internal/analysis"
	"github.com/e-moran/dmdlab/internal/config"
	"github.com/e-moran/dmdlab/internal/dmd"
	"github.com/e-moran/dmdlab/internal/ensemble"
	"github.com/e-moran/dmdlab/internal/signal"
	"github.com/e-moran/dmdlab/internal/storage"
	"github.com/e-moran/dmdlab/internal/tui"
	"github.com/e-moran/dmdlab/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	outFile    string
	rank       int
	delay      int
	maxIter    int
	tol        float64
	realSystem bool
	trials     int
	fraction   float64
	seed       int64
	channel    int
	pngPrefix  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dmdlab",
		Short: "optimized DMD fitting and analysis lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dmdlab", "data directory")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "generate a synthetic dataset",
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	generateCmd.Flags().StringVar(&preset, "preset", "three-sinusoids", "preset configuration")
	generateCmd.Flags().StringVar(&outFile, "out", "dataset.csv", "output dataset path")

	fitCmd := &cobra.Command{
		Use:   "fit [dataset]",
		Short: "fit an optimized DMD model",
		Args:  cobra.ExactArgs(1),
		RunE:  runFit,
	}
	fitCmd.Flags().IntVar(&rank, "rank", config.DefaultRank, "model order")
	fitCmd.Flags().IntVar(&delay, "delay", 1, "time-delay embedding depth (1 disables)")
	fitCmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIter, "iteration budget")
	fitCmd.Flags().Float64Var(&tol, "tol", config.DefaultTol, "relative residual tolerance")
	fitCmd.Flags().BoolVar(&realSystem, "real", true, "enforce conjugate eigenvalue symmetry")
	fitCmd.Flags().IntVar(&channel, "channel", 0, "channel to plot")
	fitCmd.Flags().StringVar(&pngPrefix, "png", "", "write PNG figures with this path prefix")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [dataset]",
		Short: "bagged optimized DMD (BOP-DMD)",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnsemble,
	}
	ensembleCmd.Flags().IntVar(&rank, "rank", config.DefaultRank, "model order")
	ensembleCmd.Flags().IntVar(&delay, "delay", 1, "time-delay embedding depth (1 disables)")
	ensembleCmd.Flags().IntVar(&trials, "trials", config.DefaultTrials, "bootstrap trials")
	ensembleCmd.Flags().Float64Var(&fraction, "fraction", config.DefaultFraction, "resample fraction")
	ensembleCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	ensembleCmd.Flags().BoolVar(&realSystem, "real", true, "enforce conjugate eigenvalue symmetry")

	reconstructCmd := &cobra.Command{
		Use:   "reconstruct [run_id] [dataset]",
		Short: "re-extract modes for a stored run and plot the reconstruction",
		Args:  cobra.ExactArgs(2),
		RunE:  runReconstruct,
	}
	reconstructCmd.Flags().IntVar(&channel, "channel", 0, "channel to plot")
	reconstructCmd.Flags().StringVar(&pngPrefix, "png", "", "write PNG figures with this path prefix")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [dataset]",
		Short: "power spectrum of one channel",
		Args:  cobra.ExactArgs(1),
		RunE:  runSpectrum,
	}
	spectrumCmd.Flags().IntVar(&channel, "channel", 0, "channel to analyze")

	probeCmd := &cobra.Command{
		Use:   "probe [dataset]",
		Short: "damped sinusoid probe fit of one channel",
		Args:  cobra.ExactArgs(1),
		RunE:  runProbe,
	}
	probeCmd.Flags().IntVar(&channel, "channel", 0, "channel to probe")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  runList,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live [dataset]",
		Short: "fit with live progress view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().IntVar(&rank, "rank", config.DefaultRank, "model order")
	liveCmd.Flags().IntVar(&delay, "delay", 1, "time-delay embedding depth (1 disables)")
	liveCmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIter, "iteration budget")
	liveCmd.Flags().Float64Var(&tol, "tol", config.DefaultTol, "relative residual tolerance")
	liveCmd.Flags().BoolVar(&realSystem, "real", true, "enforce conjugate eigenvalue symmetry")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(generateCmd, fitCmd, ensembleCmd, reconstructCmd,
		spectrumCmd, probeCmd, listCmd, exportCmd, liveCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildGenerator(gc config.GenerateConfig) *signal.Generator {
	gen := signal.New(gc.Nx, gc.Nt, gc.XMin, gc.XMax, gc.TMin, gc.TMax)
	for _, c := range gc.Components {
		switch c.Type {
		case "travelling":
			gen.AddTravellingWave(c.Amp, c.K, c.Omega, c.Gamma)
		case "standing":
			gen.AddStandingWave(c.Amp, c.K, c.Omega, c.C)
		case "trend":
			gen.AddTrend(c.Mu, c.Slope)
		}
	}
	if gc.NoiseStd > 0 {
		gen.AddNoise(gc.NoiseStd, gc.Seed)
	}
	return gen
}

func runGenerate(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	gen := buildGenerator(cfg.Generate)
	snaps, err := gen.Snapshots()
	if err != nil {
		return err
	}
	if err := storage.SaveDataset(outFile, snaps); err != nil {
		return err
	}

	m, n := snaps.Dims()
	fmt.Printf("wrote %s: %d samples x %d channels\n", outFile, m, n)
	return nil
}

// loadEmbedded reads a dataset and applies the requested time-delay
// embedding before fitting.
func loadEmbedded(path string) (*dmd.Snapshots, error) {
	snaps, err := storage.LoadDataset(path)
	if err != nil {
		return nil, err
	}
	return dmd.DelayEmbed(snaps, delay)
}

func fitOptions() dmd.Options {
	opts := dmd.DefaultOptions(rank)
	opts.MaxIter = maxIter
	opts.Tol = tol
	opts.RealSystem = realSystem
	return opts
}

func runFit(cmd *cobra.Command, args []string) error {
	snaps, err := loadEmbedded(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("fitting %s (rank %d)...\n", args[0], rank)
	start := time.Now()
	rep, err := dmd.Fit(context.Background(), snaps, fitOptions())
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	if err := viz.EigenTable(os.Stdout, rep.Eigenvalues, rep.Amplitudes, nil); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(viz.ResidualGraph(rep.History))
	fmt.Println()
	printOutcome(rep)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.SaveFit(args[0], rep)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)

	if pngPrefix != "" {
		if err := saveFigures(snaps, rep.Eigenvalues, rep.Modes, rep.Amplitudes); err != nil {
			return err
		}
	}
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	snaps, err := loadEmbedded(args[0])
	if err != nil {
		return err
	}

	opts := ensemble.Options{
		Trials:         trials,
		SampleFraction: fraction,
		Seed:           seed,
		Fit:            fitOptions(),
	}

	fmt.Printf("bagging %s: %d trials (rank %d)...\n", args[0], trials, rank)
	start := time.Now()
	sum, err := ensemble.Run(context.Background(), snaps, opts)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	if err := viz.EigenTable(os.Stdout, sum.MeanEigenvalues, sum.MeanAmplitudes, sum.EigStd); err != nil {
		return err
	}
	fmt.Printf("\ntrials: %d  failed: %d  non-converged: %d\n", sum.Trials, sum.Failed, sum.NonConverged)
	printOutcome(sum.Base)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.SaveEnsemble(args[0], sum.Base, sum.Trials, sum.MeanEigenvalues, sum.EigStd)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	snaps, err := storage.LoadDataset(args[1])
	if err != nil {
		return err
	}

	eigs := make([]complex128, len(meta.Eigenvalues))
	for i, e := range meta.Eigenvalues {
		eigs[i] = e.ToComplex()
	}

	ms, err := dmd.ExtractModes(snaps, eigs)
	if err != nil {
		return err
	}

	if err := viz.EigenTable(os.Stdout, ms.Eigenvalues, ms.Amplitudes, nil); err != nil {
		return err
	}
	fmt.Printf("\nresidual: %.6e\n\n", ms.Residual)

	m, n := snaps.Dims()
	if channel < 0 || channel >= n {
		return fmt.Errorf("channel %d out of range [0, %d)", channel, n)
	}
	recon := ms.Reconstruct(snaps.Times())
	data := make([]float64, m)
	fitted := make([]float64, m)
	for i := 0; i < m; i++ {
		data[i] = real(snaps.At(i, channel))
		fitted[i] = real(recon.At(i, channel))
	}
	fmt.Println(viz.ChannelOverlay(data, fitted, channel))

	if pngPrefix != "" {
		return saveFigures(snaps, ms.Eigenvalues, ms.Modes, ms.Amplitudes)
	}
	return nil
}

func saveFigures(snaps *dmd.Snapshots, eigs []complex128, modes *mat.CDense, amps []complex128) error {
	m, n := snaps.Dims()
	if channel < 0 || channel >= n {
		return fmt.Errorf("channel %d out of range [0, %d)", channel, n)
	}

	times := snaps.Times()
	recon := dmd.Reconstruction(eigs, modes, amps, times)
	data := make([]float64, m)
	fitted := make([]float64, m)
	for i := 0; i < m; i++ {
		data[i] = real(snaps.At(i, channel))
		fitted[i] = real(recon.At(i, channel))
	}

	reconPath := pngPrefix + "_reconstruction.png"
	if err := viz.SaveReconstructionFigure(reconPath, times, data, fitted, channel); err != nil {
		return err
	}
	eigPath := pngPrefix + "_eigenvalues.png"
	if err := viz.SaveEigenFigure(eigPath, eigs); err != nil {
		return err
	}
	fmt.Printf("wrote %s and %s\n", reconPath, eigPath)
	return nil
}

func runSpectrum(cmd *cobra.Command, args []string) error {
	snaps, err := storage.LoadDataset(args[0])
	if err != nil {
		return err
	}
	m, n := snaps.Dims()
	if channel < 0 || channel >= n {
		return fmt.Errorf("channel %d out of range [0, %d)", channel, n)
	}

	data := make([]float64, m)
	for i := 0; i < m; i++ {
		data[i] = real(snaps.At(i, channel))
	}

	ps := analysis.PowerSpectrum(data)
	fmt.Println(viz.SpectrumGraph(ps))

	times := snaps.Times()
	dt := (times[m-1] - times[0]) / float64(m-1)
	freq := analysis.DominantFrequency(data, dt)
	fmt.Printf("\ndominant frequency: %.4f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.4f s\n", 1.0/freq)
	}
	return nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	snaps, err := storage.LoadDataset(args[0])
	if err != nil {
		return err
	}
	m, n := snaps.Dims()
	if channel < 0 || channel >= n {
		return fmt.Errorf("channel %d out of range [0, %d)", channel, n)
	}

	data := make([]float64, m)
	for i := 0; i < m; i++ {
		data[i] = real(snaps.At(i, channel))
	}

	fit, err := analysis.ProbeChannel(snaps.Times(), data)
	if err != nil {
		return err
	}

	fmt.Printf("channel x%d damped sinusoid probe:\n", channel)
	fmt.Printf("  amplitude: %.6f\n", fit.Amp)
	fmt.Printf("  growth:    %+.6f\n", fit.Growth)
	fmt.Printf("  frequency: %+.6f rad/s\n", fit.Freq)
	fmt.Printf("  phase:     %+.6f\n", fit.Phase)
	fmt.Printf("  rmse:      %.6e\n", fit.RMSE)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATASET\tTIME\tRANK\tTRIALS\tCONVERGED\tRESIDUAL")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%v\t%.3e\n",
			run.ID,
			run.Dataset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Rank,
			run.Trials,
			run.Converged,
			run.Residual,
		)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	snaps, err := loadEmbedded(args[0])
	if err != nil {
		return err
	}

	rep, err := tui.Run(context.Background(), snaps, fitOptions())
	if err != nil {
		return err
	}

	fmt.Println()
	if err := viz.EigenTable(os.Stdout, rep.Eigenvalues, rep.Amplitudes, nil); err != nil {
		return err
	}
	printOutcome(rep)
	return nil
}

func printOutcome(rep *dmd.Report) {
	if rep.Converged {
		fmt.Printf("converged after %d iterations (%s), relative residual %.3e\n",
			rep.Iterations, rep.TermReason, rep.Relative)
	} else {
		fmt.Printf("WARNING: did not converge after %d iterations (%s), relative residual %.3e\n",
			rep.Iterations, rep.TermReason, rep.Relative)
	}
}
