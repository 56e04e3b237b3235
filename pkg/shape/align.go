package shape

import (
	"context"

	"go.uber.org/zap"

	"github.com/valvesuite/valvekit/internal/clock"
	"github.com/valvesuite/valvekit/internal/duration"
)

// Align is the startup aligner (herewego): it sleeps a fixed standby
// duration, then blocks until the Deadline Clock's Mod operation reports
// the next "nice round" instant of Period, optionally pulled earlier by
// Premature.
type Align struct {
	Clock     *clock.Source
	Standby   duration.D
	Premature duration.D
	Period    duration.D
	Logger    *zap.Logger
}

// Run blocks until standby has elapsed and the next round boundary of Period
// is reached (or ctx is cancelled), then returns.
func (a *Align) Run(ctx context.Context) error {
	if a.Clock == nil {
		a.Clock = clock.New()
	}

	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}

	if !a.sleepFor(ctx, a.Standby) {
		return nil
	}

	wait := a.waitUntilRoundBoundary()

	a.sleepFor(ctx, wait)

	return nil
}

// sleepFor blocks for d, or until ctx is cancelled, reporting false in the
// latter case. An Infinite d blocks until cancellation; an Immediate or zero
// d returns at once.
func (a *Align) sleepFor(ctx context.Context, d duration.D) bool {
	if d.IsInfinite() {
		<-ctx.Done()

		return false
	}

	if d.IsImmediate() || d <= 0 {
		return true
	}

	deadline := clock.Add(a.Clock.Now(), d)
	wake := a.Clock.SleepUntil(deadline, ctx.Done())

	return wake == clock.Expired
}

// waitUntilRoundBoundary computes the remaining duration until the next
// multiple of Period, pulled earlier by Premature and floored at zero.
func (a *Align) waitUntilRoundBoundary() duration.D {
	if a.Period.IsInfinite() {
		return duration.Infinite
	}

	if a.Period.IsImmediate() || a.Period < 0 {
		return duration.Immediate
	}

	now := a.Clock.Now()
	remainder := clock.Mod(now, a.Period)

	wait := a.Period
	if remainder > 0 {
		wait = a.Period - remainder
	} else {
		wait = 0
	}

	if a.Premature > 0 {
		wait -= a.Premature
		if wait < 0 {
			wait = 0
		}
	}

	return wait
}
