// Package priority abstracts process-priority elevation as a capability
// query: the core treats failure as "keep normal" and continues, falling
// back to the next weaker class.
package priority

// Class is one of the four priority classes named for the -p flag shared
// by valve, relval, oobleck, dilatant, and qvalve.
type Class int

const (
	// Normal is ordinary scheduling: no elevation attempted.
	Normal Class = 0
	// WeakRealtime is the default: the weakest real-time class available to
	// an unprivileged caller.
	WeakRealtime Class = 1
	// StrongRealtime is the strongest class available to an unprivileged
	// caller.
	StrongRealtime Class = 2
	// MaxRealtime is the strongest class, for privileged callers only.
	MaxRealtime Class = 3
)

// raiser is swapped in tests and replaced per-platform in priority_linux.go
// / priority_other.go.
var raiser = platformTryRaise //nolint:gochecknoglobals // platform capability hook, mirrors teacher's schedSetScheduler var

// TryRaise attempts to elevate the calling thread to class, falling back to
// progressively weaker classes on failure. It returns the class actually
// achieved (which may be Normal) and the error from the final attempt, if
// any attempt above Normal was made and failed.
func TryRaise(class Class) (Class, error) {
	if class <= Normal {
		return Normal, nil
	}

	var lastErr error

	for c := class; c > Normal; c-- {
		err := raiser(c)
		if err == nil {
			return c, nil
		}

		lastErr = err
	}

	return Normal, lastErr
}
