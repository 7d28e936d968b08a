package output

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/runwaysim/internal/stats"
)

var testEdges = []float64{0, 0.5, 1, 2, 3, 6, 12, 24, 36, 48}

func buildSeries(months int) *stats.TimeSeries {
	ts := stats.NewTimeSeries(months, testEdges)
	for m := 0; m < months; m++ {
		hist := make([]int64, len(testEdges)-1)
		hist[0] = 500
		ts.Append(stats.MonthRecord{
			Counts: stats.Counts{
				Active:     int64(2000 - m),
				Exited:     int64(m),
				Employed:   1100,
				Unemployed: int64(900 - m),
			},
			MeanRunway: 3.5,
			P10Runway:  -1.0,
			P50Runway:  2.5,
			P90Runway:  11.0,
			Hist:       hist,
			SlotRatio:  0.57 - float64(m)*0.001,
		})
	}
	return ts
}

func TestWriteSeriesArchiveContents(t *testing.T) {
	ts := buildSeries(3)
	path := filepath.Join(t.TempDir(), "series.npz")
	if err := WriteSeries(path, ts); err != nil {
		t.Fatal(err)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	want := map[string]string{
		"active.npy":                         "(3,)",
		"exited.npy":                         "(3,)",
		"employed.npy":                       "(3,)",
		"unemployed.npy":                     "(3,)",
		"mean_runway_sample.npy":             "(3,)",
		"p10_runway_sample.npy":              "(3,)",
		"p50_runway_sample.npy":              "(3,)",
		"p90_runway_sample.npy":              "(3,)",
		"hist_runway_sample.npy":             "(3, 9)",
		"hist_bins.npy":                      "(10,)",
		"final_effective_job_slot_ratio.npy": "(1,)",
	}

	got := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		got[f.Name] = data
	}

	if len(got) != len(want) {
		t.Errorf("archive has %d entries, want %d", len(got), len(want))
	}
	for name, shape := range want {
		data, ok := got[name]
		if !ok {
			t.Errorf("missing entry %s", name)
			continue
		}
		checkNPY(t, name, data, shape)
	}
}

// checkNPY validates the NPY v1.0 framing: magic, header dict, and that the
// data section length matches the declared shape at 8 bytes per element.
func checkNPY(t *testing.T, name string, data []byte, shape string) {
	t.Helper()
	if !bytes.HasPrefix(data, []byte("\x93NUMPY\x01\x00")) {
		t.Errorf("%s: bad NPY magic", name)
		return
	}
	hlen := int(binary.LittleEndian.Uint16(data[8:10]))
	if (10+hlen)%64 != 0 {
		t.Errorf("%s: data section not 64-byte aligned (header %d)", name, hlen)
	}
	header := string(data[10 : 10+hlen])
	if !strings.Contains(header, fmt.Sprintf("'shape': %s", shape)) {
		t.Errorf("%s: header %q lacks shape %s", name, header, shape)
	}
	if !strings.Contains(header, "'fortran_order': False") {
		t.Errorf("%s: header %q lacks C order marker", name, header)
	}
	if !strings.HasSuffix(header, "\n") {
		t.Errorf("%s: header not newline-terminated", name)
	}

	elems := 1
	for _, dim := range strings.FieldsFunc(strings.Trim(shape, "(),"), func(r rune) bool { return r == ',' }) {
		var d int
		fmt.Sscanf(strings.TrimSpace(dim), "%d", &d)
		elems *= d
	}
	if got, wantLen := len(data)-10-hlen, elems*8; got != wantLen {
		t.Errorf("%s: data section %d bytes, want %d", name, got, wantLen)
	}
}

func TestWriteSeriesDataRoundTrip(t *testing.T) {
	ts := buildSeries(2)
	path := filepath.Join(t.TempDir(), "series.npz")
	if err := WriteSeries(path, ts); err != nil {
		t.Fatal(err)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "active.npy" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		hlen := int(binary.LittleEndian.Uint16(data[8:10]))
		vals := make([]int64, 2)
		if err := binary.Read(bytes.NewReader(data[10+hlen:]), binary.LittleEndian, vals); err != nil {
			t.Fatal(err)
		}
		if vals[0] != 2000 || vals[1] != 1999 {
			t.Errorf("active values %v, want [2000 1999]", vals)
		}
		return
	}
	t.Fatal("active.npy not found")
}

func TestWriteSeriesZeroMonths(t *testing.T) {
	ts := buildSeries(0)
	path := filepath.Join(t.TempDir(), "empty.npz")
	if err := WriteSeries(path, ts); err != nil {
		t.Fatal(err)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "hist_runway_sample.npy" {
			continue
		}
		rc, _ := f.Open()
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		checkNPY(t, f.Name, data, "(0, 9)")
	}
}

func TestWriteSeriesLeavesNoPartialFile(t *testing.T) {
	ts := buildSeries(1)
	// Target inside a directory that does not exist: CreateTemp fails and
	// nothing may be left behind at the final path.
	path := filepath.Join(t.TempDir(), "missing", "series.npz")
	if err := WriteSeries(path, ts); err == nil {
		t.Fatal("expected error writing into missing directory")
	}
	if _, err := zip.OpenReader(path); err == nil {
		t.Error("partial artifact exists at output path")
	}
}
