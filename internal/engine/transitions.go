// State transition engine — re-derives each agent's categorical state from
// capital and unemployment duration every month, plus the one-way exit
// draw. Exited is absorbing and short-circuits everything.
package engine

import (
	"math/rand/v2"

	"github.com/talgya/runwaysim/internal/population"
)

// applyTransitions runs the month's state pass over one chunk, after the
// cashflow update.
func (s *Scheduler) applyTransitions(v population.ChunkView, rng *rand.Rand) {
	p := s.params

	for i := 0; i < v.Len(); i++ {
		if population.State(v.State[i]) == population.StateExited {
			continue
		}

		// Stable/Precarious/Insolvent are pure functions of the current
		// signals, re-derived each month.
		switch {
		case v.Capital[i] <= 0:
			v.State[i] = uint8(population.StateInsolvent)
		case v.UnempMonths[i] == 0:
			v.State[i] = uint8(population.StateStable)
		default:
			v.State[i] = uint8(population.StatePrecarious)
		}

		// Exit draw: insolvent and unemployed past the threshold. The only
		// edge into Exited, and there is no edge out.
		if population.State(v.State[i]) == population.StateInsolvent &&
			v.UnempMonths[i] > p.ExitThresholdMonths {
			if rng.Float64() < p.ExitProb(v.UnempMonths[i]) {
				v.State[i] = uint8(population.StateExited)
				v.Employed[i] = false
			}
		}
	}
}
