// Package ratecli implements the shared command-line frontend for the
// rate-limited pump, used by both valve and relval: the two are wired to
// the identical pump with identical flags, historically shipped as separate
// executables with no behavioral difference between them.
package ratecli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/valvesuite/valvekit/internal/cliutil"
	"github.com/valvesuite/valvekit/internal/clock"
	"github.com/valvesuite/valvekit/internal/duration"
	"github.com/valvesuite/valvekit/internal/paramchan"
	"github.com/valvesuite/valvekit/pkg/priority"
	"github.com/valvesuite/valvekit/pkg/shape"
)

var errMissingArgument = errors.New("a duration or control-file argument is required")

type options struct {
	unit          shape.Unit
	strict        bool
	priorityClass int // -1 means "use the -defaults value"
	logLevel      string
	defaultsPath  string
	arg           string
	files         []string
}

func parseArgs(program string, args []string) (options, error) {
	var (
		charMode     bool
		lineMode     bool
		recoveryMode bool
		strictMode   bool
	)

	opts := options{priorityClass: -1} //nolint:exhaustruct

	flagSet := flag.NewFlagSet(program, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&charMode, "c", false, "byte-granular pacing (default)")
	flagSet.BoolVar(&lineMode, "l", false, "line-granular pacing")
	flagSet.BoolVar(&recoveryMode, "r", false, "oversleep recovery mode (default)")
	flagSet.BoolVar(&strictMode, "s", false, "strict mode: never exceed the instantaneous rate")
	flagSet.IntVar(&opts.priorityClass, "p", -1, "priority class 0..3")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "structured log level")
	flagSet.StringVar(&opts.defaultsPath, "defaults", "", "path to a YAML defaults file")

	err := flagSet.Parse(args)
	if err != nil {
		return options{}, fmt.Errorf("parse CLI arguments: %w", err)
	}

	rest := flagSet.Args()
	if len(rest) < 1 {
		return options{}, errMissingArgument
	}

	opts.arg = rest[0]
	opts.files = rest[1:]

	opts.unit = shape.UnitChar
	if lineMode && !charMode {
		opts.unit = shape.UnitLine
	}

	opts.strict = strictMode && !recoveryMode

	return opts, nil
}

// Run parses args and drives the rate pump to completion, returning the
// process exit code. program names the calling binary ("valve" or
// "relval") for flag-set identity, log naming, and diagnostics.
func Run(ctx context.Context, program string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if cliutil.ShowVersion(program, args, stdout) {
		return cliutil.ExitSuccess
	}

	opts, err := parseArgs(program, args)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)

		return cliutil.ExitUsage
	}

	defaults, err := cliutil.LoadDefaults(opts.defaultsPath)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)

		return cliutil.ExitUsage
	}

	priorityClass := defaults.PriorityClass
	if opts.priorityClass >= 0 {
		priorityClass = opts.priorityClass
	}

	class, err := cliutil.ParsePriorityClass(priorityClass)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)

		return cliutil.ExitUsage
	}

	logger, err := cliutil.NewLogger(program, opts.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)

		return cliutil.ExitUsage
	}

	defer func() { _ = logger.Sync() }()

	achieved, raiseErr := priority.TryRaise(class)
	if raiseErr != nil {
		logger.Warn("priority elevation failed, continuing at a lower class",
			zap.Int("requested", int(class)),
			zap.Int("achieved", int(achieved)),
			zap.Error(raiseErr),
		)
	}

	var teardown cliutil.Teardown
	defer func() { _ = teardown.Close() }()

	in, closeIn, err := cliutil.OpenInputs(opts.files, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)

		return cliutil.ExitPartial
	}

	teardown.Add("input", closeIn)

	pump := &shape.RatePump{ //nolint:exhaustruct
		Unit:     opts.unit,
		Clock:    clock.New(),
		Recovery: clock.NewRecovery(opts.strict, defaults.RecoveryFactor),
		Logger:   logger,
	}

	err = wireParameter(ctx, opts.arg, defaults, logger, pump, &teardown)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)

		return cliutil.ExitPartial
	}

	err = pump.Run(ctx, in, stdout)
	if err != nil {
		logger.Error("pump failed", zap.Error(err))

		return cliutil.ExitPartial
	}

	return cliutil.ExitSuccess
}

// wireParameter resolves arg as a literal duration or a control file; in the
// latter case it spawns the parameter worker and wires its handoff into
// pump, registering the worker's shutdown with teardown.
func wireParameter(
	ctx context.Context,
	arg string,
	defaults cliutil.Defaults,
	logger *zap.Logger,
	pump *shape.RatePump,
	teardown *cliutil.Teardown,
) error {
	period, controlPath, isLiteral := cliutil.ResolveLiteralOrControlFile(arg, duration.Parse)
	if isLiteral {
		pump.Period = period

		return nil
	}

	regime, err := paramchan.DetectRegime(controlPath)
	if err != nil {
		return fmt.Errorf("control file %q: %w", controlPath, err)
	}

	handoff := paramchan.NewHandoff[duration.D]()
	pump.Handoff = handoff

	workerCtx, cancelWorker := context.WithCancel(ctx)

	worker := &paramchan.Worker[duration.D]{ //nolint:exhaustruct
		Path:         controlPath,
		Regime:       regime,
		Parse:        duration.Parse,
		Handoff:      handoff,
		PollInterval: defaults.PollInterval,
		Logger:       logger,
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = worker.Run(workerCtx)
	}()

	teardown.Add("parameter worker", func() error {
		cancelWorker()
		<-done

		return nil
	})

	return nil
}
