// Capacity allocator — decides employment per agent under the month's
// job-slot ratio. The constraint is enforced only through independent
// per-agent Bernoulli draws, so chunks stay embarrassingly parallel; the
// population-level cap holds in expectation, not exactly.
package engine

import (
	"math/rand/v2"

	"github.com/talgya/runwaysim/internal/population"
)

// assignEmployment runs the month's employment pass over one chunk.
// separated[i] is set when an employed agent loses its job this month;
// the cashflow pass applies the corresponding runway hit. Side effects:
// Employed and UnempMonths.
func (s *Scheduler) assignEmployment(v population.ChunkView, rng *rand.Rand, slotRatio float64, separated []bool) {
	for i := 0; i < v.Len(); i++ {
		separated[i] = false
		if population.State(v.State[i]) == population.StateExited {
			continue
		}

		// Separation first: a separated agent sits out this month's
		// employment draw entirely.
		if v.Employed[i] && rng.Float64() < s.params.SeparationProb {
			separated[i] = true
			v.Employed[i] = false
		} else {
			p := slotRatio * s.tierWeights[v.Tier[i]]
			if p > 1.0 {
				p = 1.0
			}
			v.Employed[i] = rng.Float64() < p
		}

		if v.Employed[i] {
			v.UnempMonths[i] = 0
		} else {
			v.UnempMonths[i]++
		}
	}
}
