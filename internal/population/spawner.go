// Population spawning — fills a store with the initial agent distribution:
// lognormal capital runway, a fixed tier mixture, everyone unemployed and
// solvent at month zero.
package population

import (
	"math/rand/v2"

	"github.com/talgya/runwaysim/internal/entropy"
)

// SpawnConfig controls initial population generation.
type SpawnConfig struct {
	// Initial runway months: lognormal, capped.
	CapitalLogNormMu    float64
	CapitalLogNormSigma float64
	CapitalCap          float64

	// Tier mixture (low, mid, high); must sum to 1.
	TierMix [NumTiers]float64
}

// DefaultSpawnConfig returns the standard initial distribution.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		CapitalLogNormMu:    1.15,
		CapitalLogNormSigma: 0.85,
		CapitalCap:          48.0,
		TierMix:             [NumTiers]float64{0.45, 0.40, 0.15},
	}
}

// Spawn initializes every agent in the store. Deterministic from the seed:
// the same seed always produces the same population regardless of backend.
func Spawn(s *Store, cfg SpawnConfig, seed uint64) {
	rng := entropy.InitStream(seed)

	for i := 0; i < s.Len(); i++ {
		capital := entropy.LogNormal(rng, cfg.CapitalLogNormMu, cfg.CapitalLogNormSigma)
		if capital > cfg.CapitalCap {
			capital = cfg.CapitalCap
		}
		s.Capital[i] = capital
		s.Tier[i] = uint8(drawTier(rng, cfg.TierMix))
		s.Employed[i] = false
		s.UnempMonths[i] = 0

		if capital <= 0 {
			s.State[i] = uint8(StateInsolvent)
		} else {
			s.State[i] = uint8(StateStable)
		}
	}
}

func drawTier(rng *rand.Rand, mix [NumTiers]float64) Tier {
	u := rng.Float64()
	acc := 0.0
	for t := 0; t < NumTiers-1; t++ {
		acc += mix[t]
		if u < acc {
			return Tier(t)
		}
	}
	return Tier(NumTiers - 1)
}
