package clock

import (
	"github.com/valvesuite/valvekit/internal/duration"
)

// DefaultRecoveryFactor is the default multiplier applied to the worst
// observed oversleep lag when deciding whether a tick is still recoverable.
// NewRecovery takes the factor as an argument; it falls back to this value
// when the argument is zero or negative.
const DefaultRecoveryFactor = 2

// Recovery tracks the oversleep-recovery policy: a rate pump configured in
// recovery mode (the default) advances its planned deadline by one
// interval to make up lost time when a tick's lag is within bounds, and
// resets to "now" otherwise; strict mode always resets to "now".
type Recovery struct {
	Strict   bool
	Factor   int
	recovMax duration.D
}

// NewRecovery constructs a Recovery tracker. A zero Factor defaults to
// DefaultRecoveryFactor.
func NewRecovery(strict bool, factor int) *Recovery {
	if factor <= 0 {
		factor = DefaultRecoveryFactor
	}

	return &Recovery{Strict: strict, Factor: factor}
}

// Next computes the deadline for the following tick given the previously
// planned deadline, the actual wake time, and the configured period.
func (r *Recovery) Next(planned, actualWake Deadline, period duration.D) Deadline {
	if r.Strict {
		return Add(actualWake, period)
	}

	lag := Diff(actualWake, planned)

	recoverable := lag == 0 || r.recovMax == 0 || lag <= r.recovMax*duration.D(r.Factor)

	if lag > r.recovMax {
		r.recovMax = lag
	}

	if recoverable {
		// Within bounds (or no history yet): advance the planned deadline
		// by one interval so the pump attempts to make up lost ground.
		return Add(planned, period)
	}

	// Too far behind to recover this slot: decline, and reset to now.
	return Add(actualWake, period)
}
