// Chunk scheduler — drives the strictly sequential monthly timeline and
// fans each month's chunk updates out across workers. Chunks share no
// mutable state: each writes only its own agents and its own counter slot,
// and draws from a stream keyed by (seed, month, chunk), so parallel runs
// are bit-identical to sequential ones.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/talgya/runwaysim/internal/entropy"
	"github.com/talgya/runwaysim/internal/population"
	"github.com/talgya/runwaysim/internal/stats"
)

// Scheduler runs a simulation over a spawned population.
type Scheduler struct {
	pop         *population.Store
	params      Params
	tierWeights [population.NumTiers]float64
	sampler     *stats.Sampler

	// ProgressEvery logs a monthly report every N months. 0 disables.
	ProgressEvery int

	divergences int64
}

// New prepares a scheduler for the given population. The statistics sample
// is fixed here, once, for the whole run.
func New(pop *population.Store, params Params) (*Scheduler, error) {
	if params.Months < 0 {
		return nil, fmt.Errorf("months must be non-negative, got %d", params.Months)
	}
	if params.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", params.ChunkSize)
	}

	sampler, err := stats.NewSampler(pop.Len(), params.SampleSize, params.Seed, params.HistBins)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		pop:           pop,
		params:        params,
		tierWeights:   params.normalizedTierWeights(),
		sampler:       sampler,
		ProgressEvery: 12,
	}, nil
}

// Divergences returns the run's cumulative count of numeric divergences
// recovered by clamping.
func (s *Scheduler) Divergences() int64 { return s.divergences }

// Run executes the monthly loop and returns the time series. A canceled
// context aborts the run and discards partial output.
func (s *Scheduler) Run(ctx context.Context) (*stats.TimeSeries, error) {
	p := s.params
	n := s.pop.Len()

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	numChunks := (n + p.ChunkSize - 1) / p.ChunkSize
	if workers > numChunks {
		workers = numChunks
	}

	ts := stats.NewTimeSeries(p.Months, p.HistBins)

	for m := 0; m < p.Months; m++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run aborted at month %d: %w", m, err)
		}

		slotRatio := p.SlotRatio(m)

		// Per-chunk result slots: no shared mutable state between workers.
		counts := make([]stats.Counts, numChunks)
		chunkDivs := make([]int64, numChunks)

		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				separated := make([]bool, p.ChunkSize)
				for ci := range jobs {
					lo := ci * p.ChunkSize
					hi := lo + p.ChunkSize
					if hi > n {
						hi = n
					}
					view := s.pop.Chunk(lo, hi)
					rng := entropy.ChunkStream(p.Seed, m, ci)
					sep := separated[:view.Len()]

					s.assignEmployment(view, rng, slotRatio, sep)
					chunkDivs[ci] = s.applyCashflow(view, rng, sep)
					s.applyTransitions(view, rng)
					counts[ci] = countChunk(view)
				}
			}()
		}
		for ci := 0; ci < numChunks; ci++ {
			jobs <- ci
		}
		close(jobs)
		wg.Wait()

		// Barrier passed: reduce counters and take the sample snapshot.
		var total stats.Counts
		monthDivs := int64(0)
		for ci := 0; ci < numChunks; ci++ {
			total.Add(counts[ci])
			monthDivs += chunkDivs[ci]
		}
		if monthDivs > 0 {
			s.divergences += monthDivs
			slog.Warn("numeric divergence recovered by clamping",
				"month", m, "count", monthDivs)
		}

		snap := s.sampler.Snapshot(s.pop.Capital)
		ts.Append(stats.MonthRecord{
			Counts:     total,
			MeanRunway: snap.Mean,
			P10Runway:  snap.P10,
			P50Runway:  snap.P50,
			P90Runway:  snap.P90,
			Hist:       snap.Hist,
			SlotRatio:  slotRatio,
		})

		if s.ProgressEvery > 0 && (m+1)%s.ProgressEvery == 0 {
			empRate := 0.0
			if total.Active > 0 {
				empRate = float64(total.Employed) / float64(total.Active)
			}
			slog.Info("monthly report",
				"month", m+1,
				"months", p.Months,
				"active", humanize.Comma(total.Active),
				"exited", humanize.Comma(total.Exited),
				"emp_rate", fmt.Sprintf("%.3f", empRate),
				"median_runway", fmt.Sprintf("%.2f", snap.P50),
				"slot_ratio", fmt.Sprintf("%.3f", slotRatio),
			)
		}
	}

	return ts, nil
}

// countChunk tallies one chunk's counters after its month update. Exited
// is cumulative for free: the state is absorbing.
func countChunk(v population.ChunkView) stats.Counts {
	var c stats.Counts
	for i := 0; i < v.Len(); i++ {
		if population.State(v.State[i]) == population.StateExited {
			c.Exited++
			continue
		}
		c.Active++
		if v.Employed[i] {
			c.Employed++
		} else {
			c.Unemployed++
		}
	}
	return c
}
