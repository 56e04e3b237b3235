// Command qvalve is the quota-gated pump: it releases bytes or lines from
// input as an externally updated counter permits, terminating cleanly at
// input EOF or once the counter is exhausted after termination (a literal
// quantity, a termination command, or -t with FIFO EOF). An exhausted counter
// that has not been terminated waits for more quota.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/valvesuite/valvekit/internal/cliutil"
	"github.com/valvesuite/valvekit/internal/paramchan"
	"github.com/valvesuite/valvekit/internal/quantity"
	"github.com/valvesuite/valvekit/pkg/priority"
	"github.com/valvesuite/valvekit/pkg/shape"
)

const programName = "qvalve"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

var errMissingArgument = errors.New("a quantity or control-file argument is required")

type options struct {
	unit          shape.QuotaUnit
	terminateEOF  bool
	bootstrap     bool
	priorityClass int
	logLevel      string
	defaultsPath  string
	arg           string
	files         []string
}

func parseArgs(args []string) (options, error) {
	var charMode, lineMode bool

	opts := options{priorityClass: -1} //nolint:exhaustruct

	flagSet := flag.NewFlagSet(programName, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&charMode, "c", false, "byte-granular release (default)")
	flagSet.BoolVar(&lineMode, "l", false, "line-granular release")
	flagSet.BoolVar(&opts.terminateEOF, "t", false, "terminate when the control FIFO closes")
	flagSet.BoolVar(&opts.bootstrap, "1", false, "emit one starter unit before any input is read")
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

	opts.unit = shape.QuotaChar
	if lineMode && !charMode {
		opts.unit = shape.QuotaLine
	}

	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if cliutil.ShowVersion(programName, args, stdout) {
		return cliutil.ExitSuccess
	}

	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)

		return cliutil.ExitUsage
	}

	defaults, err := cliutil.LoadDefaults(opts.defaultsPath)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)

		return cliutil.ExitUsage
	}

	priorityClass := defaults.PriorityClass
	if opts.priorityClass >= 0 {
		priorityClass = opts.priorityClass
	}

	class, err := cliutil.ParsePriorityClass(priorityClass)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)

		return cliutil.ExitUsage
	}

	logger, err := cliutil.NewLogger(programName, opts.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)

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
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)

		return cliutil.ExitPartial
	}

	teardown.Add("input", closeIn)

	counter, err := wireQuota(ctx, opts, defaults, logger, &teardown)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)

		return cliutil.ExitPartial
	}

	pump := &shape.QuotaPump{ //nolint:exhaustruct
		Unit:      opts.unit,
		Counter:   counter,
		Bootstrap: opts.bootstrap,
		Logger:    logger,
	}

	err = pump.Run(ctx, in, stdout)
	if err != nil {
		logger.Error("pump failed", zap.Error(err))

		return cliutil.ExitPartial
	}

	return cliutil.ExitSuccess
}

// wireQuota resolves arg as a literal quantity or a control file. A literal
// quantity seeds the counter directly and starts terminated (there is no
// worker to keep it alive beyond the initial grant: a bare number is the
// whole of "available"). A control file spawns
// the parameter worker, which applies Set/Add/Terminate quantities to the
// counter as they are parsed; with -t, the worker additionally terminates
// the counter once the control FIFO reaches EOF.
func wireQuota(
	ctx context.Context,
	opts options,
	defaults cliutil.Defaults,
	logger *zap.Logger,
	teardown *cliutil.Teardown,
) (*paramchan.Counter, error) {
	initial, controlPath, isLiteral := cliutil.ResolveLiteralOrControlFile(opts.arg, quantity.ParseAvailable)
	if isLiteral {
		counter := paramchan.NewCounter(initial)
		counter.Terminate()

		return counter, nil
	}

	counter := paramchan.NewCounter(0)

	regime, err := paramchan.DetectRegime(controlPath)
	if err != nil {
		return nil, fmt.Errorf("control file %q: %w", controlPath, err)
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)

	worker := &paramchan.Worker[quantity.Quantity]{ //nolint:exhaustruct
		Path:           controlPath,
		Regime:         regime,
		Parse:          quantity.Parse,
		TerminateOnEOF: opts.terminateEOF,
		PollInterval:   defaults.PollInterval,
		Logger:         logger,
	}

	applyHandoff := paramchan.NewHandoff[quantity.Quantity]()
	worker.Handoff = applyHandoff

	done := make(chan struct{})

	go func() {
		defer close(done)

		runErr := worker.Run(workerCtx)
		if runErr == nil && opts.terminateEOF {
			counter.Terminate()
		}
	}()

	go func() {
		for {
			select {
			case q := <-applyHandoff.C():
				counter.Apply(q)
			case <-workerCtx.Done():
				return
			}
		}
	}()

	teardown.Add("parameter worker", func() error {
		cancelWorker()
		<-done

		return nil
	})

	return counter, nil
}
