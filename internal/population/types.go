// Package population provides the structure-of-arrays agent store.
// Agents are addressed by integer index only; there are no per-agent
// objects, so a hundred-million-agent run is five flat arrays that can
// live in memory or in memory-mapped files.
package population

// Tier is an agent's fixed income/expense band.
type Tier uint8

const (
	TierLow  Tier = 0
	TierMid  Tier = 1
	TierHigh Tier = 2
)

// NumTiers is the number of income tiers.
const NumTiers = 3

// TierName returns a human-readable tier label.
func TierName(t Tier) string {
	switch t {
	case TierLow:
		return "low"
	case TierMid:
		return "mid"
	case TierHigh:
		return "high"
	}
	return "unknown"
}

// State is an agent's categorical economic health. Exited is absorbing:
// no transition ever leaves it.
type State uint8

const (
	StateStable     State = 0
	StatePrecarious State = 1
	StateInsolvent  State = 2
	StateExited     State = 3
)

// StateName returns a human-readable state label.
func StateName(s State) string {
	switch s {
	case StateStable:
		return "stable"
	case StatePrecarious:
		return "precarious"
	case StateInsolvent:
		return "insolvent"
	case StateExited:
		return "exited"
	}
	return "unknown"
}
