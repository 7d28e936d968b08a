// Package entropy derives deterministic random streams for the simulation.
// Every stochastic draw in a run comes from a stream keyed by
// (seed, month, chunk), so parallel chunk execution reproduces the exact
// sequence a sequential run would see.
package entropy

import (
	"math"
	"math/rand/v2"
)

// Stream labels partition the seed space so streams with the same
// (month, chunk) but different purposes never collide.
const (
	LabelInit   = 0x01 // population initialization
	LabelSample = 0x02 // sample index selection
	LabelMonth  = 0x03 // per-month, per-chunk agent updates
)

// splitmix64 is the finalizer from the SplitMix64 generator. It spreads
// structured keys (small month/chunk integers) across the full 64-bit space
// before they seed a PCG state.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Stream returns the generator for a given label, month, and chunk index.
// Identical arguments always yield an identical draw sequence.
func Stream(seed uint64, label uint64, month int, chunk int) *rand.Rand {
	hi := splitmix64(seed ^ splitmix64(label))
	lo := splitmix64(uint64(month)<<32 ^ uint64(chunk) ^ splitmix64(seed+label))
	return rand.New(rand.NewPCG(hi, lo))
}

// InitStream returns the stream used for population initialization.
func InitStream(seed uint64) *rand.Rand {
	return Stream(seed, LabelInit, 0, 0)
}

// SampleStream returns the stream used to pick the fixed statistics sample.
func SampleStream(seed uint64) *rand.Rand {
	return Stream(seed, LabelSample, 0, 0)
}

// ChunkStream returns the stream driving one chunk's updates for one month.
func ChunkStream(seed uint64, month, chunk int) *rand.Rand {
	return Stream(seed, LabelMonth, month, chunk)
}

// LogNormal draws from a lognormal distribution with the given parameters
// of the underlying normal.
func LogNormal(rng *rand.Rand, mu, sigma float64) float64 {
	return math.Exp(mu + sigma*rng.NormFloat64())
}
