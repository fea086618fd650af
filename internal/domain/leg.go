package domain

// HedgeLeg is the static descriptor of one leg of the hedge basket.
// A leg pairs a strength-rank slot against a weakness-rank slot and
// carries its own risk parameters. Legs are configuration, not state;
// at most one position exists per leg at any time.
type HedgeLeg struct {
	ID          int     `yaml:"id"`           // Stable leg identifier (1-based)
	Label       string  `yaml:"label"`        // Human-readable name for logs and reports
	StrongSlot  int     `yaml:"strongSlot"`   // Rank slot the base currency must hold (1 = strongest)
	WeakSlot    int     `yaml:"weakSlot"`     // Rank slot the quote currency must hold
	Weight      float64 `yaml:"weight"`       // Fraction of the cycle risk budget allotted to this leg
	MinStopPips float64 `yaml:"minStopPips"`  // Floor for the stop distance, in pips
	RewardRatio float64 `yaml:"rewardRatio"`  // Target distance as a multiple of the stop distance
}

// TradeCandidate is an ephemeral entry proposal for one leg. It lives
// for a single evaluation cycle and is discarded if any gate rejects it.
type TradeCandidate struct {
	Leg        HedgeLeg
	Instrument string    // Resolved tradable instrument
	Direction  Direction // Already inverted if the pair resolved inverse
	Strong     Currency  // Currency occupying the leg's strong slot
	Weak       Currency  // Currency occupying the leg's weak slot
}
