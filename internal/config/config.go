package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRank     = 6
	DefaultMaxIter  = 200
	DefaultTol      = 1e-8
	DefaultTrials   = 50
	DefaultFraction = 0.8
	DefaultNx       = 100
	DefaultNt       = 500
)

// Config is the YAML-backed description of a full dmdlab run: how to
// synthesize (or which file holds) the dataset, how to fit it, and how to
// bag the fit.
type Config struct {
	Dataset  string         `yaml:"dataset"`
	Generate GenerateConfig `yaml:"generate"`
	Fit      FitConfig      `yaml:"fit"`
	Ensemble EnsembleConfig `yaml:"ensemble"`
}

// GenerateConfig describes a synthetic dataset.
type GenerateConfig struct {
	Nx         int               `yaml:"nx"`
	Nt         int               `yaml:"nt"`
	XMin       float64           `yaml:"x_min"`
	XMax       float64           `yaml:"x_max"`
	TMin       float64           `yaml:"t_min"`
	TMax       float64           `yaml:"t_max"`
	Components []ComponentConfig `yaml:"components"`
	NoiseStd   float64           `yaml:"noise_std"`
	Seed       int64             `yaml:"seed"`
}

// ComponentConfig describes one signal component. Type is one of
// "travelling", "standing" or "trend"; fields not used by the type are
// ignored.
type ComponentConfig struct {
	Type  string  `yaml:"type"`
	Amp   float64 `yaml:"amp"`
	K     float64 `yaml:"k"`
	Omega float64 `yaml:"omega"`
	Gamma float64 `yaml:"gamma"`
	C     float64 `yaml:"c"`
	Mu    float64 `yaml:"mu"`
	Slope float64 `yaml:"slope"`
}

// FitConfig mirrors the fitter options that make sense in a file. Delay
// is the Hankel time-delay embedding depth applied before fitting; 1
// disables embedding.
type FitConfig struct {
	Rank       int     `yaml:"rank"`
	Delay      int     `yaml:"delay"`
	MaxIter    int     `yaml:"max_iter"`
	Tol        float64 `yaml:"tol"`
	StepTol    float64 `yaml:"step_tol"`
	RealSystem bool    `yaml:"real_system"`
}

// EnsembleConfig describes the bagging run.
type EnsembleConfig struct {
	Trials         int     `yaml:"trials"`
	SampleFraction float64 `yaml:"sample_fraction"`
	Seed           int64   `yaml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Generate: GenerateConfig{
			Nx:   DefaultNx,
			Nt:   DefaultNt,
			XMin: -5,
			XMax: 5,
			TMax: 60,
			Seed: 42,
		},
		Fit: FitConfig{
			Rank:       DefaultRank,
			Delay:      1,
			MaxIter:    DefaultMaxIter,
			Tol:        DefaultTol,
			RealSystem: true,
		},
		Ensemble: EnsembleConfig{
			Trials:         DefaultTrials,
			SampleFraction: DefaultFraction,
			Seed:           1,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
