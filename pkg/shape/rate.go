// Package shape implements the three stream-shaping disciplines: the
// rate-limited pump (valve/relval), the hold-and-replace pump
// (oobleck/dilatant), and the quota pump (qvalve), plus the timed head
// filter (tshead).
package shape

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/valvesuite/valvekit/internal/clock"
	"github.com/valvesuite/valvekit/internal/duration"
	"github.com/valvesuite/valvekit/internal/lineio"
	"github.com/valvesuite/valvekit/internal/paramchan"
)

// Unit selects whether the rate pump governs one byte or one line per
// interval.
type Unit int

const (
	// UnitChar paces output one byte at a time.
	UnitChar Unit = iota
	// UnitLine paces output one line at a time.
	UnitLine
)

// RatePump is the constant-period discipline shared by valve and relval.
type RatePump struct {
	Unit     Unit
	Clock    *clock.Source
	Recovery *clock.Recovery
	Period   duration.D
	Handoff  *paramchan.Handoff[duration.D] // may be nil: no live parameter
	Logger   *zap.Logger
}

// Run paces in to out one unit per Period until EOF or ctx cancellation. A
// write error is fatal.
func (p *RatePump) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	reader := bufio.NewReader(in)

	var (
		next  clock.Deadline
		armed bool
	)

	for {
		if ctx.Err() != nil {
			return nil
		}

		p.drainPending()

		arrival, done, err := p.readUnit(reader, out)
		if err != nil {
			return err
		}

		if done {
			return nil
		}

		switch {
		case p.Period.IsInfinite():
			if !p.waitForChange(ctx) {
				return nil
			}

			armed = false
		case p.Period.IsImmediate():
			// no sleep: pass straight through.
		default:
			if !armed {
				next = clock.Add(arrival, p.Period)
				armed = true
			}

			next = p.sleepAndAdvance(ctx, next)
		}
	}
}

// readUnit reads and immediately writes one unit (byte or line), returning
// the unit's arrival deadline and whether EOF ended the stream.
func (p *RatePump) readUnit(reader *bufio.Reader, out io.Writer) (clock.Deadline, bool, error) {
	switch p.Unit {
	case UnitLine:
		return p.readLineUnit(reader, out)
	default:
		return p.readCharUnit(reader, out)
	}
}

func (p *RatePump) readCharUnit(reader *bufio.Reader, out io.Writer) (clock.Deadline, bool, error) {
	b, err := reader.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return clock.Deadline{}, true, nil
		}

		return clock.Deadline{}, false, err
	}

	arrival := p.Clock.Now()

	_, err = out.Write([]byte{b})
	if err != nil {
		return clock.Deadline{}, false, err
	}

	return arrival, false, nil
}

func (p *RatePump) readLineUnit(reader *bufio.Reader, out io.Writer) (clock.Deadline, bool, error) {
	var (
		line    lineio.Line
		arrival clock.Deadline
	)

	kind, err := line.ReadLineWithHook(reader, func() { arrival = p.Clock.Now() })
	if err != nil {
		return clock.Deadline{}, false, err
	}

	if kind == lineio.EmptyEOF {
		return clock.Deadline{}, true, nil
	}

	err = line.FlushLF(out)
	if err != nil {
		return clock.Deadline{}, false, err
	}

	return arrival, false, nil
}

func (p *RatePump) drainPending() {
	if p.Handoff == nil {
		return
	}

	select {
	case v := <-p.Handoff.C():
		p.Period = v
	default:
	}
}

// waitForChange blocks until a new parameter arrives through the handoff or
// ctx is cancelled; it reports false on cancellation.
func (p *RatePump) waitForChange(ctx context.Context) bool {
	if p.Handoff == nil {
		<-ctx.Done()

		return false
	}

	select {
	case v := <-p.Handoff.C():
		p.Period = v

		return true
	case <-ctx.Done():
		return false
	}
}

// sleepAndAdvance sleeps until next (or until a parameter change arrives),
// then returns the following planned deadline per the recovery policy.
func (p *RatePump) sleepAndAdvance(ctx context.Context, next clock.Deadline) clock.Deadline {
	remaining := next.ToTime().Sub(p.Clock.Now().ToTime())

	if remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()

		if p.Handoff != nil {
			select {
			case <-timer.C:
			case v := <-p.Handoff.C():
				p.Period = v

				return clock.Add(p.Clock.Now(), p.Period)
			case <-ctx.Done():
				return next
			}
		} else {
			select {
			case <-timer.C:
			case <-ctx.Done():
				return next
			}
		}
	}

	return p.Recovery.Next(next, p.Clock.Now(), p.Period)
}
