// Cashflow & shock engine — updates each agent's runway from employment
// income, consumption, unemployment burn, separation hits, and random
// shock expenses. Capital has no floor: negative values measure depth of
// insolvency.
package engine

import (
	"math"
	"math/rand/v2"

	"github.com/talgya/runwaysim/internal/entropy"
	"github.com/talgya/runwaysim/internal/population"
)

// applyCashflow runs the month's cashflow pass over one chunk and returns
// the number of numeric divergences recovered by clamping. Exited agents
// are skipped entirely.
func (s *Scheduler) applyCashflow(v population.ChunkView, rng *rand.Rand, separated []bool) int64 {
	p := s.params
	divergences := int64(0)

	for i := 0; i < v.Len(); i++ {
		if population.State(v.State[i]) == population.StateExited {
			continue
		}
		tier := v.Tier[i]

		var mu float64
		if v.Employed[i] {
			mu = p.Income[tier] - p.Consumption[tier]
		} else {
			mu = -p.Burn[tier]
		}
		delta := mu + p.RevSigma[tier]*rng.NormFloat64()

		if separated[i] {
			delta -= p.SeparationHit
		}

		// Shocks hit employed and unemployed alike.
		if rng.Float64() < p.ShockProb[tier] {
			delta -= p.ShockMagnitude[tier] * entropy.LogNormal(rng, p.ShockLogNormMu, p.ShockLogNormSigma)
		}

		c := v.Capital[i] + delta
		if !isFinite(c) {
			c = clampFinite(c)
			divergences++
		}
		v.Capital[i] = c
	}

	return divergences
}

// clampFinite maps a non-finite value to the nearest finite extreme. NaN
// carries no sign; it collapses to zero rather than either extreme.
func clampFinite(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	default:
		return 0
	}
}
