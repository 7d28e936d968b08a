// Package stats maintains the per-run summary state: full-population
// counters, a fixed statistics sample, and the monthly time series the run
// emits. The population itself is never sorted or scanned for
// distributional detail — only the sample is.
package stats

// Counts are full-population scalar counters for one month, reduced from
// per-chunk counts after the month's barrier.
type Counts struct {
	Active     int64
	Exited     int64 // cumulative by construction: Exited is absorbing
	Employed   int64
	Unemployed int64
}

// Add accumulates another chunk's counts.
func (c *Counts) Add(o Counts) {
	c.Active += o.Active
	c.Exited += o.Exited
	c.Employed += o.Employed
	c.Unemployed += o.Unemployed
}

// MonthRecord is one month's full output row.
type MonthRecord struct {
	Counts
	MeanRunway float64
	P10Runway  float64
	P50Runway  float64
	P90Runway  float64
	Hist       []int64
	SlotRatio  float64
}

// TimeSeries collects monthly records. Small relative to the population:
// a few scalars and one histogram row per month.
type TimeSeries struct {
	Active     []int64
	Exited     []int64
	Employed   []int64
	Unemployed []int64

	MeanRunway []float64
	P10Runway  []float64
	P50Runway  []float64
	P90Runway  []float64

	Hist     [][]int64
	HistBins []float64

	SlotRatio []float64
	// FinalSlotRatio is the run's closing effective job-slot ratio.
	FinalSlotRatio float64
}

// NewTimeSeries returns an empty series preallocated for the given number
// of months. months may be zero; every slice is then empty but non-nil.
func NewTimeSeries(months int, histBins []float64) *TimeSeries {
	edges := make([]float64, len(histBins))
	copy(edges, histBins)
	return &TimeSeries{
		Active:     make([]int64, 0, months),
		Exited:     make([]int64, 0, months),
		Employed:   make([]int64, 0, months),
		Unemployed: make([]int64, 0, months),
		MeanRunway: make([]float64, 0, months),
		P10Runway:  make([]float64, 0, months),
		P50Runway:  make([]float64, 0, months),
		P90Runway:  make([]float64, 0, months),
		Hist:       make([][]int64, 0, months),
		HistBins:   edges,
		SlotRatio:  make([]float64, 0, months),
	}
}

// Months returns the number of recorded months.
func (ts *TimeSeries) Months() int { return len(ts.Active) }

// Append records one month.
func (ts *TimeSeries) Append(rec MonthRecord) {
	ts.Active = append(ts.Active, rec.Active)
	ts.Exited = append(ts.Exited, rec.Exited)
	ts.Employed = append(ts.Employed, rec.Employed)
	ts.Unemployed = append(ts.Unemployed, rec.Unemployed)
	ts.MeanRunway = append(ts.MeanRunway, rec.MeanRunway)
	ts.P10Runway = append(ts.P10Runway, rec.P10Runway)
	ts.P50Runway = append(ts.P50Runway, rec.P50Runway)
	ts.P90Runway = append(ts.P90Runway, rec.P90Runway)
	ts.Hist = append(ts.Hist, rec.Hist)
	ts.SlotRatio = append(ts.SlotRatio, rec.SlotRatio)
	ts.FinalSlotRatio = rec.SlotRatio
}
