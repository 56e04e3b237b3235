package shape

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/valvesuite/valvekit/internal/duration"
	"github.com/valvesuite/valvekit/internal/lineio"
)

// TimestampFormat selects how Head parses a line's leading timestamp field.
type TimestampFormat int

const (
	// FormatCalendar reads YYYYMMDDhhmmss[.n] (-c).
	FormatCalendar TimestampFormat = iota
	// FormatEpoch reads UNIX epoch seconds, optionally fractional (-e).
	FormatEpoch
	// FormatElapsed reads seconds since program start (-z).
	FormatElapsed
)

// BoundMode selects which of the three range variants governs admission.
type BoundMode int

const (
	// BoundUpperInterval keeps lines within Interval of the epoch (-i D).
	BoundUpperInterval BoundMode = iota
	// BoundLowerWindow keeps lines at least Interval behind the latest seen
	// timestamp (-i -D); see DESIGN.md for the buffering policy.
	BoundLowerWindow
	// BoundAbsolute keeps lines up to a fixed instant (-t T).
	BoundAbsolute
)

// Head is the timed-head discipline (tshead): it passes lines whose
// first-field timestamp lies within a bound, dropping the rest.
type Head struct {
	Format     TimestampFormat
	UTC        bool
	Exclusive  bool // -x: strict </ > instead of <=/>=
	ZeroRebase bool // -Z: first accepted line's timestamp becomes the new epoch

	Mode     BoundMode
	Interval duration.D // magnitude for BoundUpperInterval and BoundLowerWindow
	Absolute time.Time  // bound for BoundAbsolute

	// StartTime is the program's start instant: the basis for FormatElapsed
	// and the initial epoch for BoundUpperInterval/BoundLowerWindow.
	StartTime time.Time

	Logger *zap.Logger

	epoch    time.Time
	epochSet bool

	lastSeen    time.Time
	lastSeenSet bool
	pending     []pendingLine
}

type pendingLine struct {
	line lineio.Line
	ts   time.Time
}

// Run copies admitted lines from in to out until EOF or ctx cancellation.
func (p *Head) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	if p.StartTime.IsZero() {
		p.StartTime = time.Now()
	}

	p.epoch = p.StartTime

	reader := bufio.NewReader(in)

	for {
		select {
		case <-ctx.Done():
			return p.flushRemaining(out)
		default:
		}

		var line lineio.Line

		kind, err := line.ReadLine(reader)
		if err != nil {
			return err
		}

		if kind == lineio.EmptyEOF {
			return p.flushRemaining(out)
		}

		ts, ok := p.parseTimestamp(line.Bytes())
		if !ok {
			p.Logger.Warn("tshead: unparsable timestamp field, line skipped")

			continue
		}

		if p.Mode == BoundLowerWindow {
			err := p.admitLowerWindow(line, ts, out)
			if err != nil {
				return err
			}

			continue
		}

		if !p.admit(ts) {
			continue
		}

		p.rebaseEpoch(ts)

		err = line.FlushLF(out)
		if err != nil {
			return err
		}
	}
}

func (p *Head) rebaseEpoch(ts time.Time) {
	if p.ZeroRebase && !p.epochSet {
		p.epoch = ts
		p.epochSet = true
	}
}

// admit reports whether ts is within bound for BoundUpperInterval or
// BoundAbsolute.
func (p *Head) admit(ts time.Time) bool {
	switch p.Mode {
	case BoundUpperInterval:
		limit := p.epoch.Add(time.Duration(p.Interval))

		return p.compareLE(ts, limit)
	case BoundAbsolute:
		return p.compareLE(ts, p.Absolute)
	case BoundLowerWindow:
		return false
	default:
		return false
	}
}

func (p *Head) compareLE(ts, limit time.Time) bool {
	if p.Exclusive {
		return ts.Before(limit)
	}

	return !ts.After(limit)
}

// admitLowerWindow implements the -i -D time-window buffering policy
// recorded as a decided open question: see DESIGN.md.
func (p *Head) admitLowerWindow(line lineio.Line, ts time.Time, out io.Writer) error {
	if !p.lastSeenSet || ts.After(p.lastSeen) {
		p.lastSeen = ts
		p.lastSeenSet = true
	}

	p.pending = append(p.pending, pendingLine{line: line, ts: ts})

	return p.releasePending(out, false)
}

// releasePending scans the pending queue from its oldest entry, releasing
// candidates that satisfy the trailing window and stopping at the first one
// that does not yet. At final=true
// (EOF), every remaining candidate is resolved: released if it now
// qualifies, dropped otherwise.
func (p *Head) releasePending(out io.Writer, final bool) error {
	limit := p.lastSeen.Add(-time.Duration(p.Interval))

	i := 0

	for ; i < len(p.pending); i++ {
		candidate := p.pending[i]
		ready := p.compareLE(candidate.ts, limit)

		if !ready && !final {
			break
		}

		if !ready {
			continue // final pass: this candidate never qualifies, drop it.
		}

		p.rebaseEpoch(candidate.ts)

		err := candidate.line.FlushLF(out)
		if err != nil {
			return err
		}
	}

	p.pending = p.pending[i:]

	return nil
}

func (p *Head) flushRemaining(out io.Writer) error {
	if p.Mode == BoundLowerWindow {
		return p.releasePending(out, true)
	}

	return nil
}

// parseTimestamp extracts and parses the first whitespace-delimited field
// of a line per Format.
func (p *Head) parseTimestamp(lineBytes []byte) (time.Time, bool) {
	field := firstField(lineBytes)
	if field == "" {
		return time.Time{}, false
	}

	switch p.Format {
	case FormatCalendar:
		return p.parseCalendar(field)
	case FormatEpoch:
		return parseSecondsField(field, time.Unix(0, 0))
	case FormatElapsed:
		return parseSecondsField(field, p.StartTime)
	default:
		return time.Time{}, false
	}
}

// ParseTimestampLiteral parses a standalone timestamp token (the "-t T"
// absolute-bound CLI argument, not a line's leading field) using the given
// format, matching the Head that will use it as a bound.
func ParseTimestampLiteral(format TimestampFormat, utc bool, startTime time.Time, token string) (time.Time, bool) {
	p := &Head{Format: format, UTC: utc, StartTime: startTime} //nolint:exhaustruct

	return p.parseTimestamp([]byte(token))
}

func firstField(b []byte) string {
	i := bytes.IndexAny(b, " \t")
	if i < 0 {
		return string(b)
	}

	return string(b[:i])
}

// parseSecondsField parses a (possibly fractional) decimal seconds count and
// adds it to base: base is the UNIX epoch for FormatEpoch, or the program's
// start time for FormatElapsed.
func parseSecondsField(field string, base time.Time) (time.Time, bool) {
	secs, err := strconv.ParseFloat(field, 64)
	if err != nil || secs < 0 {
		return time.Time{}, false
	}

	return base.Add(time.Duration(secs * float64(time.Second))), true
}

// parseCalendar parses YYYYMMDDhhmmss[.n] in UTC or the local zone.
func (p *Head) parseCalendar(field string) (time.Time, bool) {
	if len(field) < 14 {
		return time.Time{}, false
	}

	digits := field[:14]
	if !allDigits(digits) {
		return time.Time{}, false
	}

	nsec, ok := parseCalendarFraction(field[14:])
	if !ok {
		return time.Time{}, false
	}

	year, _ := strconv.Atoi(digits[0:4])
	month, _ := strconv.Atoi(digits[4:6])
	day, _ := strconv.Atoi(digits[6:8])
	hour, _ := strconv.Atoi(digits[8:10])
	minute, _ := strconv.Atoi(digits[10:12])
	second, _ := strconv.Atoi(digits[12:14])

	loc := time.Local

	if p.UTC {
		loc = time.UTC
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, nsec, loc), true
}

func parseCalendarFraction(rest string) (int, bool) {
	if rest == "" {
		return 0, true
	}

	if rest[0] != '.' || len(rest) < 2 {
		return 0, false
	}

	frac := rest[1:]
	if !allDigits(frac) {
		return 0, false
	}

	for len(frac) < 9 {
		frac += "0"
	}

	nsec, err := strconv.Atoi(frac[:9])
	if err != nil {
		return 0, false
	}

	return nsec, true
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}
