//go:build linux

package priority

import "golang.org/x/sys/unix"

// platformTryRaise maps the four priority classes onto Linux scheduling
// policies: SCHED_RR priority 1 for WeakRealtime, SCHED_RR priority 50 for
// StrongRealtime, and SCHED_FIFO priority 99 for MaxRealtime. Callers
// without CAP_SYS_NICE will see every class above Normal fail, and TryRaise
// falls back to Normal.
func platformTryRaise(class Class) error {
	switch class {
	case Normal:
		return nil
	case WeakRealtime:
		return unix.SchedSetScheduler(0, unix.SCHED_RR, &unix.SchedParam{Priority: 1}) //nolint:exhaustruct
	case StrongRealtime:
		return unix.SchedSetScheduler(0, unix.SCHED_RR, &unix.SchedParam{Priority: 50}) //nolint:exhaustruct
	case MaxRealtime:
		return unix.SchedSetScheduler(0, unix.SCHED_FIFO, &unix.SchedParam{Priority: 99}) //nolint:exhaustruct
	default:
		return nil
	}
}
