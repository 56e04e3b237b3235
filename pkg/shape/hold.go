package shape

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valvesuite/valvekit/internal/duration"
	"github.com/valvesuite/valvekit/internal/lineio"
	"github.com/valvesuite/valvekit/internal/paramchan"
)

// HoldParam is the N@holdtime parameter.
type HoldParam struct {
	N        int
	HoldTime duration.D
}

const (
	holdParamMinN     = 1
	holdParamMaxN     = 256
	holdParamDefaultN = 1
)

var errHoldParamRange = fmt.Errorf("N must be in [%d, %d]", holdParamMinN, holdParamMaxN)

// ParseHoldParam parses the "N@holdtime" grammar: N defaults to 1 when the
// "N@" prefix is omitted.
func ParseHoldParam(s string) (HoldParam, error) {
	n := holdParamDefaultN
	rest := s

	if at := strings.IndexByte(s, '@'); at >= 0 {
		var err error

		n, err = strconv.Atoi(s[:at])
		if err != nil {
			return HoldParam{}, fmt.Errorf("hold parameter %q: invalid N: %w", s, err)
		}

		rest = s[at+1:]
	}

	if n < holdParamMinN || n > holdParamMaxN {
		return HoldParam{}, fmt.Errorf("hold parameter %q: %w", s, errHoldParamRange)
	}

	holdTime, err := duration.Parse(rest)
	if err != nil {
		return HoldParam{}, fmt.Errorf("hold parameter %q: invalid holdtime: %w", s, err)
	}

	return HoldParam{N: n, HoldTime: holdTime}, nil
}

// deadlineReader is satisfied by *os.File; setting a deadline succeeds only
// for pollable descriptors such as pipes, FIFOs, and character devices.
// When in does not implement it, or setting the deadline fails (e.g. a plain
// regular file), the hold pump treats every line as immediately quiescent.
type deadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// HoldPump is the delay-before-output discipline shared by oobleck and
// dilatant: it buffers up to N most recent lines, releasing
// them only after quiescence of HoldTime; newer arrivals push the oldest
// line out of the ring, optionally to a drain stream.
type HoldPump struct {
	Param   HoldParam
	Drain   io.Writer // nil means discard, matching "-d" being unset
	Handoff *paramchan.Handoff[HoldParam]
	Logger  *zap.Logger
}

var errNotDeadlineCapable = errors.New("shape: input does not support read deadlines")

// Run holds and releases lines from in to out until EOF.
func (p *HoldPump) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	if p.Drain == nil {
		p.Drain = io.Discard
	}

	ring, err := lineio.NewRing(p.Param.N)
	if err != nil {
		return fmt.Errorf("hold pump: %w", err)
	}

	reader := bufio.NewReader(in)
	dr, _ := in.(deadlineReader)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		p.applyPendingResize(ctx, ring)

		slot := ring.Next()

		kind, err := slot.ReadLine(reader)
		if err != nil {
			return err
		}

		if kind == lineio.EmptyEOF {
			return ring.FlushAll(out)
		}

		settled, err := p.awaitQuiescence(reader, dr)
		if err != nil {
			return err
		}

		if settled {
			err := ring.FlushAll(out)
			if err != nil {
				return err
			}

			continue
		}

		// A newer byte has already arrived (peeked and unread): if the ring
		// is full, Next will overwrite the oldest resident line next time
		// around, so it is evicted now, to the drain stream if configured.
		// Before the ring fills, there is no real oldest line to evict.
		if ring.Full() {
			err = ring.Oldest().FlushLF(p.Drain)
			if err != nil {
				return err
			}
		}
	}
}

// awaitQuiescence waits up to Param.HoldTime for the next byte to arrive.
// It reports settled=true on timeout, on EOF during the wait, or when no
// deadline can be set (release the ring), false if a byte arrived (peeked
// back via UnreadByte so the next ReadLine sees it), and an error on any
// other I/O failure.
func (p *HoldPump) awaitQuiescence(reader *bufio.Reader, dr deadlineReader) (bool, error) {
	hold := p.Param.HoldTime

	if hold.IsInfinite() {
		_, err := reader.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return true, nil
			}

			return false, err
		}

		return false, reader.UnreadByte()
	}

	if dr == nil {
		// No deadline support (e.g. a plain regular file): treat as
		// immediate quiescence, matching the 0% behavior.
		return true, nil
	}

	deadline := time.Now().Add(time.Duration(hold))
	if hold.IsImmediate() {
		deadline = time.Now()
	}

	err := dr.SetReadDeadline(deadline)
	if err != nil {
		return true, nil
	}

	_, err = reader.ReadByte()

	resetErr := dr.SetReadDeadline(time.Time{})
	if resetErr != nil {
		return false, resetErr
	}

	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return true, nil
		}

		if errors.Is(err, io.EOF) {
			return true, nil
		}

		return false, err
	}

	return false, reader.UnreadByte()
}

func (p *HoldPump) applyPendingResize(ctx context.Context, ring *lineio.Ring) {
	if p.Handoff == nil {
		return
	}

	select {
	case v := <-p.Handoff.C():
		p.Param = v

		if v.N != ring.Cap() {
			_ = ring.Resize(v.N, p.Drain)
		}
	case <-ctx.Done():
	default:
	}
}
