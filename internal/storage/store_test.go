package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/e-moran/dmdlab/internal/dmd"
)

func testReport() *dmd.Report {
	return &dmd.Report{
		Eigenvalues: []complex128{complex(-0.05, 2), complex(-0.05, -2)},
		Modes: mat.NewCDense(3, 2, []complex128{
			0.5, 0.5,
			0.5 + 0.5i, 0.5 - 0.5i,
			0.5i, -0.5i,
		}),
		Amplitudes: []complex128{1.2, 1.2},
		Converged:  true,
		TermReason: dmd.ReasonResidualTol,
		Iterations: 12,
		Residual:   1e-9,
		Relative:   1e-11,
		History:    []float64{1, 0.1, 1e-9},
	}
}

func TestSaveFitAndLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	id, err := st.SaveFit("dataset.csv", testReport())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a run id")
	}

	meta, err := st.Load(id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Dataset != "dataset.csv" || meta.Rank != 2 || !meta.Converged {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.Eigenvalues[0].ToComplex() != complex(-0.05, 2) {
		t.Errorf("eigenvalue mismatch: %+v", meta.Eigenvalues[0])
	}
	if meta.Iterations != 12 || meta.Reason != string(dmd.ReasonResidualTol) {
		t.Errorf("fit outcome mismatch: %+v", meta)
	}
}

func TestSaveWritesModesCSV(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	id, err := st.SaveFit("d.csv", testReport())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, id, "modes.csv")); err != nil {
		t.Errorf("modes.csv not written: %v", err)
	}
}

func TestSaveEnsembleCarriesStatistics(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	mean := []complex128{complex(-0.049, 2.001), complex(-0.049, -2.001)}
	std := []float64{0.003, 0.003}
	id, err := st.SaveEnsemble("d.csv", testReport(), 40, mean, std)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	meta, err := st.Load(id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Trials != 40 {
		t.Errorf("expected 40 trials, got %d", meta.Trials)
	}
	if meta.Eigenvalues[0].ToComplex() != mean[0] {
		t.Errorf("mean eigenvalue mismatch: %+v", meta.Eigenvalues[0])
	}
	if len(meta.EigStd) != 2 || meta.EigStd[0] != 0.003 {
		t.Errorf("std mismatch: %+v", meta.EigStd)
	}
}

func TestListEmptyBaseDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	id, err := st.SaveFit("d.csv", testReport())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, id); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var meta RunMetadata
	if err := json.Unmarshal(buf.Bytes(), &meta); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if meta.ID != id {
		t.Errorf("expected id %s, got %s", id, meta.ID)
	}
}

func TestDatasetRoundTrip(t *testing.T) {
	data := mat.NewDense(4, 2, []float64{
		1.5, -0.25,
		0.125, 2,
		-3, 0.5,
		0.75, -1,
	})
	s, err := dmd.NewRealSnapshots(data, []float64{0, 0.5, 1, 1.5})
	if err != nil {
		t.Fatalf("snapshot build failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "dataset.csv")
	if err := SaveDataset(path, s); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	m, n := loaded.Dims()
	if m != 4 || n != 2 {
		t.Fatalf("expected 4x2, got %dx%d", m, n)
	}
	for i := 0; i < m; i++ {
		if math.Abs(loaded.TimeAt(i)-s.TimeAt(i)) > 1e-6 {
			t.Errorf("time %d mismatch: %v vs %v", i, loaded.TimeAt(i), s.TimeAt(i))
		}
		for j := 0; j < n; j++ {
			if math.Abs(real(loaded.At(i, j))-real(s.At(i, j))) > 1e-6 {
				t.Errorf("value (%d,%d) mismatch: %v vs %v", i, j, loaded.At(i, j), s.At(i, j))
			}
		}
	}
}

func TestLoadDatasetErrors(t *testing.T) {
	dir := t.TempDir()

	ragged := filepath.Join(dir, "ragged.csv")
	if err := os.WriteFile(ragged, []byte("time,x0\n0,1\n1,2,3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDataset(ragged); err == nil {
		t.Error("expected an error for ragged rows")
	}

	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("time,x0\n0,abc\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDataset(bad); err == nil {
		t.Error("expected an error for non-numeric values")
	}

	empty := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDataset(empty); err == nil {
		t.Error("expected an error for an empty file")
	}
}
