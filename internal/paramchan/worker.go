package paramchan

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Regime selects how the control file is re-read, fixed at startup by stat
// and never changed thereafter.
type Regime int

const (
	// RegimeRegularFile polls a seekable file every PollInterval.
	RegimeRegularFile Regime = iota
	// RegimeCharSpecial edge-triggers off a character-special device or
	// FIFO via poll(2).
	RegimeCharSpecial
)

// DefaultPollInterval is the regular-file regime's re-read cadence.
const DefaultPollInterval = 100 * time.Millisecond

// maxCommandLen bounds a pending partial command line; longer input is
// marked overlong and discarded at the next newline.
const maxCommandLen = 63

const readBufSize = 256

// Worker re-reads a control file and delivers newly-parsed, changed values
// through a Handoff. T is the parsed parameter type (duration.D or
// quantity.Quantity).
type Worker[T any] struct {
	Path           string
	Regime         Regime
	Parse          func(string) (T, error)
	Equal          func(a, b T) bool
	Handoff        *Handoff[T]
	TerminateOnEOF bool
	PollInterval   time.Duration
	SIGHUP         <-chan struct{}
	Logger         *zap.Logger

	breaker     *gobreaker.CircuitBreaker
	hasAccepted bool
	lastValue   T
}

// DetectRegime stats path and returns the regime to use.
func DetectRegime(path string) (Regime, error) {
	info, err := os.Stat(path)
	if err != nil {
		return RegimeRegularFile, err
	}

	mode := info.Mode()
	if mode&(os.ModeCharDevice|os.ModeNamedPipe) != 0 {
		return RegimeCharSpecial, nil
	}

	return RegimeRegularFile, nil
}

// Run drives the worker until ctx is cancelled. It never returns an error
// for a discardable parse failure; it returns an error only when the control
// file cannot be opened. It returns nil on ctx cancellation and, in the
// character-special regime, when poll/read fails or when TerminateOnEOF is
// set and the FIFO reaches EOF.
func (w *Worker[T]) Run(ctx context.Context) error {
	if w.PollInterval <= 0 {
		w.PollInterval = DefaultPollInterval
	}

	if w.Logger == nil {
		w.Logger = zap.NewNop()
	}

	w.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{ //nolint:exhaustruct
		Name: "control-file:" + w.Path,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				w.Logger.Warn("control file reads keep failing, backing off", zap.String("path", w.Path))
			}
		},
	})

	switch w.Regime {
	case RegimeCharSpecial:
		return w.runCharSpecial(ctx)
	default:
		return w.runRegularFile(ctx)
	}
}

func (w *Worker[T]) runRegularFile(ctx context.Context) error {
	file, err := os.Open(w.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	fl := flock.New(w.Path)

	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	current := w.PollInterval

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.SIGHUP:
			w.pollRegularFile(ctx, file, fl)
		case <-ticker.C:
			interval := w.PollInterval
			if w.breaker.State() == gobreaker.StateOpen {
				interval = time.Second
			}

			if interval != current {
				ticker.Reset(interval)
				current = interval
			}

			w.pollRegularFile(ctx, file, fl)
		}
	}
}

func (w *Worker[T]) pollRegularFile(ctx context.Context, file *os.File, fl *flock.Flock) {
	value, ok := w.readRegularFileOnce(fl, file)
	if !ok {
		return
	}

	w.deliverIfChanged(ctx, value)
}

func (w *Worker[T]) readRegularFileOnce(fl *flock.Flock, file *os.File) (T, bool) {
	var zero T

	result, err := w.breaker.Execute(func() (any, error) {
		locked, lockErr := fl.TryLock()
		if lockErr != nil {
			return nil, lockErr
		}

		if locked {
			defer fl.Unlock() //nolint:errcheck
		}

		_, seekErr := file.Seek(0, io.SeekStart)
		if seekErr != nil {
			return nil, seekErr
		}

		buf := make([]byte, readBufSize)

		n, readErr := file.Read(buf)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, readErr
		}

		line := firstLine(buf[:n])

		parsed, parseErr := w.Parse(string(line))
		if parseErr != nil {
			return nil, parseErr
		}

		return parsed, nil
	})
	if err != nil {
		w.logDiscard(err)

		return zero, false
	}

	value, ok := result.(T)

	return value, ok
}

func firstLine(buf []byte) []byte {
	if idx := bytes.IndexByte(buf, '\n'); idx >= 0 {
		return buf[:idx]
	}

	return buf
}

func (w *Worker[T]) logDiscard(err error) {
	w.Logger.Debug("control file proposal discarded", zap.String("path", w.Path), zap.Error(err))
}

func (w *Worker[T]) deliverIfChanged(ctx context.Context, value T) {
	if w.hasAccepted && w.equal()(w.lastValue, value) {
		return
	}

	err := w.Handoff.Propose(ctx, value)
	if err != nil {
		return
	}

	w.hasAccepted = true
	w.lastValue = value
}

func (w *Worker[T]) equal() func(a, b T) bool {
	if w.Equal != nil {
		return w.Equal
	}

	return func(a, b T) bool {
		return any(a) == any(b)
	}
}
