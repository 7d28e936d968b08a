package stats

import (
	"math"
	"testing"
)

var testEdges = []float64{0, 0.5, 1, 2, 3, 6, 12, 24, 36, 48}

func TestNewSamplerValidation(t *testing.T) {
	cases := []struct {
		name  string
		n     int
		size  int
		edges []float64
	}{
		{"zero size", 100, 0, testEdges},
		{"negative size", 100, -5, testEdges},
		{"size beyond population", 100, 101, testEdges},
		{"one edge", 100, 10, []float64{1}},
		{"non-increasing edges", 100, 10, []float64{0, 1, 1, 2}},
	}
	for _, tc := range cases {
		if _, err := NewSampler(tc.n, tc.size, 42, tc.edges); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	s, err := NewSampler(10_000, 2_000, 42, testEdges)
	if err != nil {
		t.Fatal(err)
	}
	idx := s.Indices()
	if len(idx) != 2000 {
		t.Fatalf("expected 2000 indices, got %d", len(idx))
	}
	seen := make(map[int]struct{}, len(idx))
	prev := -1
	for _, id := range idx {
		if id < 0 || id >= 10_000 {
			t.Fatalf("index %d out of range", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate index %d", id)
		}
		seen[id] = struct{}{}
		if id <= prev {
			t.Fatalf("indices not strictly ascending at %d", id)
		}
		prev = id
	}

	// Same seed, same sample.
	s2, err := NewSampler(10_000, 2_000, 42, testEdges)
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range s2.Indices() {
		if id != idx[i] {
			t.Fatalf("sample not deterministic at position %d", i)
		}
	}
}

func TestSampleDegeneratesToFullPopulation(t *testing.T) {
	s, err := NewSampler(500, 500, 42, testEdges)
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range s.Indices() {
		if id != i {
			t.Fatalf("full-population sample should be the identity, got %d at %d", id, i)
		}
	}
}

func TestSnapshotPercentiles(t *testing.T) {
	// capital[i] = i over 0..100 gives exactly known percentiles.
	n := 101
	capital := make([]float64, n)
	for i := range capital {
		capital[i] = float64(i)
	}
	s, err := NewSampler(n, n, 42, testEdges)
	if err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot(capital)
	if math.Abs(snap.Mean-50) > 1e-9 {
		t.Errorf("mean = %v, want 50", snap.Mean)
	}
	if math.Abs(snap.P10-10) > 1e-9 {
		t.Errorf("p10 = %v, want 10", snap.P10)
	}
	if math.Abs(snap.P50-50) > 1e-9 {
		t.Errorf("p50 = %v, want 50", snap.P50)
	}
	if math.Abs(snap.P90-90) > 1e-9 {
		t.Errorf("p90 = %v, want 90", snap.P90)
	}
}

func TestPercentileInterpolation(t *testing.T) {
	vals := []float64{0, 10}
	if got := percentile(vals, 50); math.Abs(got-5) > 1e-9 {
		t.Errorf("interpolated p50 = %v, want 5", got)
	}
	if got := percentile([]float64{7}, 90); got != 7 {
		t.Errorf("single-value percentile = %v, want 7", got)
	}
	if got := percentile(vals, 100); got != 10 {
		t.Errorf("p100 = %v, want 10", got)
	}
}

func TestHistogramFoldsOutOfRange(t *testing.T) {
	capital := []float64{-12.0, -0.001, 0.25, 1.5, 47.9, 48.0, 500.0}
	n := len(capital)
	s, err := NewSampler(n, n, 42, testEdges)
	if err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot(capital)
	var total int64
	for _, c := range snap.Hist {
		total += c
	}
	if total != int64(n) {
		t.Fatalf("histogram total %d, want %d", total, n)
	}
	// Both negatives fold into the first bin alongside 0.25.
	if snap.Hist[0] != 3 {
		t.Errorf("first bin = %d, want 3", snap.Hist[0])
	}
	// 47.9 lands in [36, 48); 48.0 and 500.0 fold into the last bin.
	last := len(snap.Hist) - 1
	if snap.Hist[last] != 3 {
		t.Errorf("last bin = %d, want 3", snap.Hist[last])
	}
	if snap.Hist[2] != 1 { // 1.5 in [1, 2)
		t.Errorf("bin [1,2) = %d, want 1", snap.Hist[2])
	}
}

func TestTimeSeriesAppend(t *testing.T) {
	ts := NewTimeSeries(2, testEdges)
	if ts.Months() != 0 {
		t.Fatalf("fresh series has %d months", ts.Months())
	}
	ts.Append(MonthRecord{
		Counts:    Counts{Active: 10, Exited: 0, Employed: 6, Unemployed: 4},
		SlotRatio: 0.57,
		Hist:      make([]int64, len(testEdges)-1),
	})
	ts.Append(MonthRecord{
		Counts:    Counts{Active: 9, Exited: 1, Employed: 5, Unemployed: 4},
		SlotRatio: 0.55,
		Hist:      make([]int64, len(testEdges)-1),
	})
	if ts.Months() != 2 {
		t.Fatalf("expected 2 months, got %d", ts.Months())
	}
	if ts.FinalSlotRatio != 0.55 {
		t.Errorf("final ratio = %v, want last appended 0.55", ts.FinalSlotRatio)
	}
	if ts.Active[0] != 10 || ts.Exited[1] != 1 {
		t.Error("counter series out of order")
	}
}
