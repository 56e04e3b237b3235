package shape

import (
	"bufio"
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/valvesuite/valvekit/internal/lineio"
	"github.com/valvesuite/valvekit/internal/paramchan"
)

// QuotaUnit selects whether the quota pump counts bytes or lines.
type QuotaUnit int

const (
	// QuotaChar counts bytes (the default, -c).
	QuotaChar QuotaUnit = iota
	// QuotaLine counts lines (-l).
	QuotaLine
)

// QuotaPump is the quota-gated release discipline: it blocks until an
// externally updated counter has units, decrementing it on each unit
// emitted.
type QuotaPump struct {
	Unit      QuotaUnit
	Counter   *paramchan.Counter
	Bootstrap bool // -1: emit one starter unit before any input is consumed.
	Logger    *zap.Logger
}

// Run releases units from in to out as the counter permits, until the
// counter is at zero after termination, ctx is cancelled, or in reaches EOF.
// Units still available when termination is requested are released first.
func (p *QuotaPump) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}

	if p.Bootstrap {
		err := p.writeBootstrap(out)
		if err != nil {
			return err
		}
	}

	reader := bufio.NewReader(in)

	for {
		if !p.Counter.Take(ctx) {
			return nil
		}

		done, err := p.releaseOne(reader, out)
		if err != nil {
			return err
		}

		if done {
			return nil
		}
	}
}

// writeBootstrap emits a single newline before any input has been read, per
// the "-1" flag, regardless of unit mode.
func (p *QuotaPump) writeBootstrap(out io.Writer) error {
	_, err := out.Write([]byte{'\n'})

	return err
}

// releaseOne reads and writes exactly one unit already authorized by the
// counter. It reports done=true at EOF (the unit of quota already taken is
// not refunded, matching the literal acquire-then-read ordering).
func (p *QuotaPump) releaseOne(reader *bufio.Reader, out io.Writer) (bool, error) {
	if p.Unit == QuotaLine {
		var line lineio.Line

		kind, err := line.ReadLine(reader)
		if err != nil {
			return false, err
		}

		if kind == lineio.EmptyEOF {
			return true, nil
		}

		return false, line.FlushLF(out)
	}

	b, err := reader.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}

		return false, err
	}

	_, err = out.Write([]byte{b})

	return false, err
}
