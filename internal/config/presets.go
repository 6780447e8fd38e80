package config

// Presets are ready-made dataset/fit combinations. "three-sinusoids" is
// the canonical test signal: three travelling waves plus noise, six DMD
// modes.
var Presets = map[string]*Config{
	"three-sinusoids": {
		Generate: GenerateConfig{
			Nx: 100, Nt: 500, XMin: -5, XMax: 5, TMax: 60,
			Components: []ComponentConfig{
				{Type: "travelling", Amp: 2, Omega: 0.5, K: 1.5},
				{Type: "travelling", Amp: 1, Omega: 2.5, K: 1},
				{Type: "travelling", Amp: 1, Omega: 5, K: -2},
			},
			NoiseStd: 0.1,
			Seed:     42,
		},
		Fit:      FitConfig{Rank: 6, Delay: 2, MaxIter: 200, Tol: 1e-8, RealSystem: true},
		Ensemble: EnsembleConfig{Trials: 50, SampleFraction: 0.8, Seed: 1},
	},
	"decaying-pair": {
		Generate: GenerateConfig{
			Nx: 64, Nt: 200, XMin: 0, XMax: 10, TMax: 10,
			Components: []ComponentConfig{
				{Type: "travelling", Amp: 1, Omega: 1.0, K: 0.8, Gamma: -0.1},
				{Type: "travelling", Amp: 0.5, Omega: 2.0, K: 1.2, Gamma: -0.05},
			},
			Seed: 7,
		},
		Fit:      FitConfig{Rank: 4, Delay: 1, MaxIter: 200, Tol: 1e-9, RealSystem: true},
		Ensemble: EnsembleConfig{Trials: 30, SampleFraction: 0.8, Seed: 1},
	},
	"trend-and-wave": {
		Generate: GenerateConfig{
			Nx: 80, Nt: 400, XMin: -5, XMax: 5, TMax: 40,
			Components: []ComponentConfig{
				{Type: "standing", Amp: 1, K: 0.2, Omega: 1.5},
				{Type: "trend", Mu: 0.2, Slope: 0.01},
			},
			NoiseStd: 0.05,
			Seed:     11,
		},
		Fit:      FitConfig{Rank: 4, Delay: 1, MaxIter: 200, Tol: 1e-8, RealSystem: true},
		Ensemble: EnsembleConfig{Trials: 40, SampleFraction: 0.8, Seed: 1},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
