package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/e-moran/dmdlab/internal/dmd"
)

// SaveDataset writes a real-valued snapshot set as CSV: a time column
// followed by one column per channel.
func SaveDataset(path string, s *dmd.Snapshots) error {
	if !s.IsReal() {
		return fmt.Errorf("storage: dataset files hold real-valued signals only")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	m, n := s.Dims()
	header := []string{"time"}
	for j := 0; j < n; j++ {
		header = append(header, fmt.Sprintf("x%d", j))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := 0; i < m; i++ {
		row := []string{strconv.FormatFloat(s.TimeAt(i), 'f', 6, 64)}
		for j := 0; j < n; j++ {
			row = append(row, strconv.FormatFloat(real(s.At(i, j)), 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// LoadDataset reads a CSV dataset written by SaveDataset. A header row is
// detected and skipped.
func LoadDataset(path string) (*dmd.Snapshots, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("storage: empty dataset %s", path)
	}
	if strings.EqualFold(strings.TrimSpace(records[0][0]), "time") {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("storage: dataset %s has no samples", path)
	}

	n := len(records[0]) - 1
	if n < 1 {
		return nil, fmt.Errorf("storage: dataset %s has no channels", path)
	}
	times := make([]float64, len(records))
	data := mat.NewDense(len(records), n, nil)
	for i, rec := range records {
		if len(rec) != n+1 {
			return nil, fmt.Errorf("storage: ragged row %d in %s", i, path)
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("storage: bad time at row %d: %w", i, err)
		}
		times[i] = t
		for j := 0; j < n; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[j+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("storage: bad value at row %d col %d: %w", i, j, err)
			}
			data.Set(i, j, v)
		}
	}
	return dmd.NewRealSnapshots(data, times)
}

// writeModesCSV stores the mode matrix with interleaved real/imaginary
// columns, one row per spatial channel.
func writeModesCSV(path string, modes *mat.CDense) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	n, r := modes.Dims()
	header := []string{"channel"}
	for k := 0; k < r; k++ {
		header = append(header, fmt.Sprintf("mode%d_re", k), fmt.Sprintf("mode%d_im", k))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for j := 0; j < n; j++ {
		row := []string{strconv.Itoa(j)}
		for k := 0; k < r; k++ {
			v := modes.At(j, k)
			row = append(row,
				strconv.FormatFloat(real(v), 'g', 12, 64),
				strconv.FormatFloat(imag(v), 'g', 12, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
