package cliutil

import (
	"fmt"

	"github.com/valvesuite/valvekit/pkg/priority"
)

var errPriorityOutOfRange = fmt.Errorf("cliutil: priority class must be 0..3")

// ParsePriorityClass validates the -p flag shared by valve, relval, oobleck,
// dilatant, and qvalve, converting the raw integer to a priority.Class.
func ParsePriorityClass(n int) (priority.Class, error) {
	if n < int(priority.Normal) || n > int(priority.MaxRealtime) {
		return priority.Normal, fmt.Errorf("%w: got %d", errPriorityOutOfRange, n)
	}

	return priority.Class(n), nil
}
