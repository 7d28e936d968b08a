// Package output writes the run's monthly series as an NPZ archive — a
// zip of NPY members, readable by the downstream plotting tools. The
// archive is written to a temp file and renamed into place on success, so
// a failed run never leaves a partial artifact.
package output

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/talgya/runwaysim/internal/stats"
)

// WriteSeries writes the time series to an NPZ archive at path.
func WriteSeries(path string, ts *stats.TimeSeries) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeArchive(tmp, ts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}

func writeArchive(f *os.File, ts *stats.TimeSeries) error {
	zw := zip.NewWriter(f)

	months := ts.Months()
	bins := len(ts.HistBins) - 1

	entries := []struct {
		name  string
		write func() ([]byte, error)
	}{
		{"active", func() ([]byte, error) { return npyInt64(ts.Active, shape1(months)) }},
		{"exited", func() ([]byte, error) { return npyInt64(ts.Exited, shape1(months)) }},
		{"employed", func() ([]byte, error) { return npyInt64(ts.Employed, shape1(months)) }},
		{"unemployed", func() ([]byte, error) { return npyInt64(ts.Unemployed, shape1(months)) }},
		{"mean_runway_sample", func() ([]byte, error) { return npyFloat64(ts.MeanRunway, shape1(months)) }},
		{"p10_runway_sample", func() ([]byte, error) { return npyFloat64(ts.P10Runway, shape1(months)) }},
		{"p50_runway_sample", func() ([]byte, error) { return npyFloat64(ts.P50Runway, shape1(months)) }},
		{"p90_runway_sample", func() ([]byte, error) { return npyFloat64(ts.P90Runway, shape1(months)) }},
		{"hist_runway_sample", func() ([]byte, error) {
			flat := make([]int64, 0, months*bins)
			for _, row := range ts.Hist {
				flat = append(flat, row...)
			}
			return npyInt64(flat, fmt.Sprintf("(%d, %d)", months, bins))
		}},
		{"hist_bins", func() ([]byte, error) { return npyFloat64(ts.HistBins, shape1(len(ts.HistBins))) }},
		{"final_effective_job_slot_ratio", func() ([]byte, error) {
			return npyFloat64([]float64{ts.FinalSlotRatio}, shape1(1))
		}},
	}

	for _, e := range entries {
		data, err := e.write()
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.name, err)
		}
		w, err := zw.Create(e.name + ".npy")
		if err != nil {
			return fmt.Errorf("archive %s: %w", e.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("archive %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

func shape1(n int) string { return fmt.Sprintf("(%d,)", n) }

// npyHeader builds an NPY v1.0 header for a little-endian C-order array.
// The header is space-padded so the data section starts on a 64-byte
// boundary, matching what NumPy itself writes.
func npyHeader(descr, shape string) []byte {
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shape)

	// magic(6) + version(2) + headerlen(2) + dict + padding + '\n'
	unpadded := 10 + len(dict) + 1
	pad := (64 - unpadded%64) % 64

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(1)
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, uint16(len(dict)+pad+1))
	buf.WriteString(dict)
	for i := 0; i < pad; i++ {
		buf.WriteByte(' ')
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

func npyInt64(vals []int64, shape string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(npyHeader("<i8", shape))
	if err := binary.Write(&buf, binary.LittleEndian, vals); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func npyFloat64(vals []float64, shape string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(npyHeader("<f8", shape))
	if err := binary.Write(&buf, binary.LittleEndian, vals); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
