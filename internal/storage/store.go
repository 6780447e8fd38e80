// Package storage persists datasets and fit runs under a base directory.
// Each run gets its own directory holding metadata.json and modes.csv;
// datasets are plain CSV with a time column followed by one column per
// channel.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/e-moran/dmdlab/internal/dmd"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Complex is the JSON-encodable form of a complex number.
type Complex struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

func fromComplex(v complex128) Complex { return Complex{Re: real(v), Im: imag(v)} }

// ToComplex returns the native complex value.
func (c Complex) ToComplex() complex128 { return complex(c.Re, c.Im) }

// RunMetadata is the JSON summary of one fit run.
type RunMetadata struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Dataset     string    `json:"dataset"`
	Rank        int       `json:"rank"`
	Trials      int       `json:"trials,omitempty"`
	Eigenvalues []Complex `json:"eigenvalues"`
	Amplitudes  []Complex `json:"amplitudes"`
	EigStd      []float64 `json:"eig_std,omitempty"`
	Converged   bool      `json:"converged"`
	Reason      string    `json:"reason"`
	Iterations  int       `json:"iterations"`
	Residual    float64   `json:"residual"`
	Relative    float64   `json:"relative_residual"`
	History     []float64 `json:"history,omitempty"`
}

// SaveFit persists a fit report and returns the run ID.
func (s *Store) SaveFit(dataset string, rep *dmd.Report) (string, error) {
	meta := metaFromReport(dataset, rep)
	return s.save(meta, rep.Modes)
}

// SaveEnsemble persists a bagged fit: the base report plus per-mode
// eigenvalue statistics.
func (s *Store) SaveEnsemble(dataset string, rep *dmd.Report, trials int, mean []complex128, std []float64) (string, error) {
	meta := metaFromReport(dataset, rep)
	meta.Trials = trials
	meta.Eigenvalues = make([]Complex, len(mean))
	for i, v := range mean {
		meta.Eigenvalues[i] = fromComplex(v)
	}
	meta.EigStd = append([]float64(nil), std...)
	return s.save(meta, rep.Modes)
}

func metaFromReport(dataset string, rep *dmd.Report) RunMetadata {
	meta := RunMetadata{
		ID:         fmt.Sprintf("fit_%d", time.Now().Unix()),
		Timestamp:  time.Now(),
		Dataset:    dataset,
		Rank:       len(rep.Eigenvalues),
		Converged:  rep.Converged,
		Reason:     string(rep.TermReason),
		Iterations: rep.Iterations,
		Residual:   rep.Residual,
		Relative:   rep.Relative,
		History:    rep.History,
	}
	meta.Eigenvalues = make([]Complex, len(rep.Eigenvalues))
	meta.Amplitudes = make([]Complex, len(rep.Amplitudes))
	for i := range rep.Eigenvalues {
		meta.Eigenvalues[i] = fromComplex(rep.Eigenvalues[i])
		meta.Amplitudes[i] = fromComplex(rep.Amplitudes[i])
	}
	return meta
}

func (s *Store) save(meta RunMetadata, modes *mat.CDense) (string, error) {
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if modes != nil {
		if err := writeModesCSV(filepath.Join(runDir, "modes.csv"), modes); err != nil {
			return "", err
		}
	}
	return meta.ID, nil
}

// List returns the metadata of all stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

// Load returns the metadata of one run.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ExportJSON writes a run's metadata as indented JSON.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
