// Package holdcli implements the shared command-line frontend for the
// hold-and-replace pump, used by both oobleck and dilatant: the two are
// wired to the identical pump with identical flags.
package holdcli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/valvesuite/valvekit/internal/cliutil"
	"github.com/valvesuite/valvekit/internal/paramchan"
	"github.com/valvesuite/valvekit/pkg/priority"
	"github.com/valvesuite/valvekit/pkg/shape"
)

var errMissingArgument = errors.New("an N@holdtime or control-file argument is required")

type options struct {
	drainSpec     string
	priorityClass int
	logLevel      string
	defaultsPath  string
	arg           string
	files         []string
}

func parseArgs(program string, args []string) (options, error) {
	opts := options{priorityClass: -1} //nolint:exhaustruct

	flagSet := flag.NewFlagSet(program, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.drainSpec, "d", "", "drain destination: fd or path")
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

	return opts, nil
}

// Run parses args and drives the hold pump to completion, returning the
// process exit code. program names the calling binary ("oobleck" or
// "dilatant").
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

	drain, closeDrain, err := cliutil.OpenDrain(opts.drainSpec)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", program, err)

		return cliutil.ExitPartial
	}

	teardown.Add("drain", closeDrain)

	pump := &shape.HoldPump{Logger: logger} //nolint:exhaustruct
	if drain != nil {
		pump.Drain = drain
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

func wireParameter(
	ctx context.Context,
	arg string,
	defaults cliutil.Defaults,
	logger *zap.Logger,
	pump *shape.HoldPump,
	teardown *cliutil.Teardown,
) error {
	param, controlPath, isLiteral := cliutil.ResolveLiteralOrControlFile(arg, shape.ParseHoldParam)
	if isLiteral {
		pump.Param = param

		return nil
	}

	regime, err := paramchan.DetectRegime(controlPath)
	if err != nil {
		return fmt.Errorf("control file %q: %w", controlPath, err)
	}

	handoff := paramchan.NewHandoff[shape.HoldParam]()
	pump.Handoff = handoff

	workerCtx, cancelWorker := context.WithCancel(ctx)

	worker := &paramchan.Worker[shape.HoldParam]{ //nolint:exhaustruct
		Path:         controlPath,
		Regime:       regime,
		Parse:        shape.ParseHoldParam,
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
