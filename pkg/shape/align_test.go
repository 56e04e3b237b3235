//nolint:testpackage // tests exercise unexported aligner internals
package shape

import (
	"context"
	"testing"
	"time"

	"github.com/valvesuite/valvekit/internal/clock"
	"github.com/valvesuite/valvekit/internal/duration"
)

func TestAlignWaitsForNextRoundBoundary(t *testing.T) {
	t.Parallel()

	// Monotonic clock starts at 3.4s; period 1s means the next round
	// boundary is 0.6s away.
	start := clock.Deadline{Sec: 3, Nsec: 400_000_000}
	fake := clock.NewWithNow(func() clock.Deadline { return start })

	align := &Align{ //nolint:exhaustruct
		Clock:  fake,
		Period: duration.D(time.Second),
	}

	wait := align.waitUntilRoundBoundary()
	if wait != duration.D(600*time.Millisecond) {
		t.Fatalf("wait = %v, want 600ms", time.Duration(wait))
	}
}

func TestAlignPrematureDeltaPullsBoundaryEarlier(t *testing.T) {
	t.Parallel()

	start := clock.Deadline{Sec: 3, Nsec: 400_000_000}
	fake := clock.NewWithNow(func() clock.Deadline { return start })

	align := &Align{ //nolint:exhaustruct
		Clock:     fake,
		Period:    duration.D(time.Second),
		Premature: duration.D(200 * time.Millisecond),
	}

	wait := align.waitUntilRoundBoundary()
	if wait != duration.D(400*time.Millisecond) {
		t.Fatalf("wait = %v, want 400ms", time.Duration(wait))
	}
}

func TestAlignPrematureDeltaFloorsAtZero(t *testing.T) {
	t.Parallel()

	start := clock.Deadline{Sec: 3, Nsec: 400_000_000}
	fake := clock.NewWithNow(func() clock.Deadline { return start })

	align := &Align{ //nolint:exhaustruct
		Clock:     fake,
		Period:    duration.D(time.Second),
		Premature: duration.D(time.Second),
	}

	wait := align.waitUntilRoundBoundary()
	if wait != 0 {
		t.Fatalf("wait = %v, want 0", time.Duration(wait))
	}
}

func TestAlignAlreadyOnBoundaryNeedsNoWait(t *testing.T) {
	t.Parallel()

	start := clock.Deadline{Sec: 4, Nsec: 0}
	fake := clock.NewWithNow(func() clock.Deadline { return start })

	align := &Align{ //nolint:exhaustruct
		Clock:  fake,
		Period: duration.D(time.Second),
	}

	wait := align.waitUntilRoundBoundary()
	if wait != 0 {
		t.Fatalf("wait = %v, want 0 (already on a round boundary)", time.Duration(wait))
	}
}

func TestAlignRunHonorsStandbyThenBoundary(t *testing.T) {
	t.Parallel()

	align := &Align{ //nolint:exhaustruct
		Clock:   clock.New(),
		Standby: duration.D(20 * time.Millisecond),
		Period:  duration.D(50 * time.Millisecond),
	}

	start := time.Now()

	err := align.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if time.Since(start) < 20*time.Millisecond {
		t.Fatalf("Run returned before standby elapsed")
	}
}

func TestAlignRunRespectsContextCancellationDuringStandby(t *testing.T) {
	t.Parallel()

	align := &Align{ //nolint:exhaustruct
		Clock:   clock.New(),
		Standby: duration.Infinite,
		Period:  duration.D(time.Second),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- align.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not respect context cancellation during infinite standby")
	}
}
