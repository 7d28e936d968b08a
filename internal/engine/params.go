// Package engine runs the monthly simulation loop: capacity-constrained
// employment assignment, cashflow and shocks, and categorical state
// transitions, processed chunk by chunk over the population.
package engine

import (
	"math"

	"github.com/talgya/runwaysim/internal/population"
)

// Params holds every numeric knob of the model. Defaults reproduce the
// standard scenario; all fields are overridable through configuration.
type Params struct {
	Months     int
	ChunkSize  int
	SampleSize int
	Seed       uint64
	// Workers bounds concurrent chunk processing. 0 means one worker per CPU.
	Workers int

	// Employment capacity: r(t) = SlotRatio0 · (1−SlotDecline)^t · HireFriction,
	// floored at SlotRatioMin.
	SlotRatio0   float64
	SlotDecline  float64
	HireFriction float64
	SlotRatioMin float64

	// Raw per-tier employment weights (low, mid, high), normalized against
	// the tier mixture at run start so the population-wide employment
	// expectation stays active · r(t).
	TierWeights [population.NumTiers]float64

	// Separation: an employed agent loses its job before the month's
	// employment draw with this probability, and takes a fixed runway hit.
	SeparationProb float64
	SeparationHit  float64

	// Monthly cashflow in runway months, per tier.
	Income      [population.NumTiers]float64
	Consumption [population.NumTiers]float64
	Burn        [population.NumTiers]float64
	RevSigma    [population.NumTiers]float64

	// Shocks: unplanned expenses, independent of employment.
	ShockProb         [population.NumTiers]float64
	ShockMagnitude    [population.NumTiers]float64
	ShockLogNormMu    float64
	ShockLogNormSigma float64

	// Exit: only insolvent agents with unemployment duration beyond the
	// threshold face the exit draw; risk saturates toward ExitProbMax.
	ExitThresholdMonths uint32
	ExitProbMax         float64
	ExitRamp            float64

	// Histogram bin edges for the sampled runway distribution.
	HistBins []float64

	Spawn population.SpawnConfig
}

// DefaultParams returns the standard parameterization.
func DefaultParams() Params {
	return Params{
		Months:     120,
		ChunkSize:  5_000_000,
		SampleSize: 1_000_000,
		Seed:       1234,

		SlotRatio0:   0.62,
		SlotDecline:  0.0015,
		HireFriction: 0.92,
		SlotRatioMin: 0.05,

		TierWeights: [population.NumTiers]float64{0.85, 1.05, 1.25},

		SeparationProb: 0.030,
		SeparationHit:  0.40,

		Income:      [population.NumTiers]float64{0.92, 1.18, 1.50},
		Consumption: [population.NumTiers]float64{0.90, 1.10, 1.30},
		Burn:        [population.NumTiers]float64{0.40, 0.32, 0.22},
		RevSigma:    [population.NumTiers]float64{0.10, 0.08, 0.07},

		ShockProb:         [population.NumTiers]float64{0.025, 0.020, 0.015},
		ShockMagnitude:    [population.NumTiers]float64{1.0, 1.0, 1.0},
		ShockLogNormMu:    0.5,
		ShockLogNormSigma: 0.65,

		ExitThresholdMonths: 6,
		ExitProbMax:         0.35,
		ExitRamp:            0.12,

		HistBins: []float64{0, 0.5, 1, 2, 3, 6, 12, 24, 36, 48},

		Spawn: population.DefaultSpawnConfig(),
	}
}

// SlotRatio returns the effective job-slot ratio for a month: geometric
// decay with hiring friction, floored, clamped to (0, 1]. Monotonically
// non-increasing in t.
func (p Params) SlotRatio(month int) float64 {
	r := p.SlotRatio0 * math.Pow(1.0-p.SlotDecline, float64(month)) * p.HireFriction
	if r < p.SlotRatioMin {
		r = p.SlotRatioMin
	}
	if r > 1.0 {
		r = 1.0
	}
	if !isFinite(r) {
		r = p.SlotRatioMin
	}
	return r
}

// ExitProb returns the monthly exit probability for an insolvent agent
// with the given unemployment duration. Zero at or below the threshold,
// then monotonically increasing and saturating toward ExitProbMax.
func (p Params) ExitProb(unempMonths uint32) float64 {
	if unempMonths <= p.ExitThresholdMonths {
		return 0
	}
	over := float64(unempMonths - p.ExitThresholdMonths)
	return p.ExitProbMax * (1.0 - math.Exp(-p.ExitRamp*over))
}

// normalizedTierWeights scales the raw weights so that, under the
// configured tier mixture, the expected employment probability of a
// uniformly chosen active agent equals r(t).
func (p Params) normalizedTierWeights() [population.NumTiers]float64 {
	norm := 0.0
	for t := 0; t < population.NumTiers; t++ {
		norm += p.Spawn.TierMix[t] * p.TierWeights[t]
	}
	var w [population.NumTiers]float64
	if norm <= 0 {
		for t := range w {
			w[t] = 1.0
		}
		return w
	}
	for t := 0; t < population.NumTiers; t++ {
		w[t] = p.TierWeights[t] / norm
	}
	return w
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
