// Command tshead is the timed head: it keeps lines whose leading timestamp
// field falls within an upper interval, a trailing lower window, or up to
// a fixed absolute instant, dropping (or warning and skipping, on a parse
// failure) the rest.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valvesuite/valvekit/internal/cliutil"
	"github.com/valvesuite/valvekit/internal/duration"
	"github.com/valvesuite/valvekit/pkg/shape"
)

const programName = "tshead"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

var (
	errNoBound         = errors.New("exactly one of -i or -t is required")
	errBothBounds      = errors.New("-i and -t are mutually exclusive")
	errInvalidBound    = errors.New("invalid -i interval")
	errInvalidAbsolute = errors.New("invalid -t datetime")
)

type options struct {
	format       shape.TimestampFormat
	utc          bool
	exclusive    bool
	zeroRebase   bool
	mode         shape.BoundMode
	interval     duration.D
	absoluteText string
	logLevel     string
	defaultsPath string
	files        []string
}

func parseArgs(args []string) (options, error) {
	var (
		calendar, epoch, elapsed bool
		intervalText             string
		absoluteText             string
	)

	opts := options{} //nolint:exhaustruct

	flagSet := flag.NewFlagSet(programName, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&calendar, "c", false, "calendar timestamp format YYYYMMDDhhmmss[.n]")
	flagSet.BoolVar(&epoch, "e", false, "UNIX epoch seconds timestamp format")
	flagSet.BoolVar(&elapsed, "z", false, "seconds-since-start timestamp format")
	flagSet.BoolVar(&opts.utc, "u", false, "interpret calendar timestamps in UTC")
	flagSet.BoolVar(&opts.exclusive, "x", false, "strict inequality instead of inclusive")
	flagSet.BoolVar(&opts.zeroRebase, "Z", false, "rebase zero to the first accepted line")
	flagSet.StringVar(&intervalText, "i", "", "interval bound (negate for the trailing-window variant)")
	flagSet.StringVar(&absoluteText, "t", "", "absolute datetime bound")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "structured log level")
	flagSet.StringVar(&opts.defaultsPath, "defaults", "", "path to a YAML defaults file")

	err := flagSet.Parse(args)
	if err != nil {
		return options{}, fmt.Errorf("parse CLI arguments: %w", err)
	}

	opts.files = flagSet.Args()

	opts.format = shape.FormatCalendar
	if epoch && !calendar {
		opts.format = shape.FormatEpoch
	} else if elapsed && !calendar && !epoch {
		opts.format = shape.FormatElapsed
	}

	switch {
	case intervalText != "" && absoluteText != "":
		return options{}, errBothBounds
	case intervalText != "":
		negated := strings.HasPrefix(intervalText, "-")
		magnitudeText := intervalText

		if negated {
			magnitudeText = intervalText[1:]
		}

		interval, parseErr := duration.Parse(magnitudeText)
		if parseErr != nil {
			return options{}, fmt.Errorf("%w: %w", errInvalidBound, parseErr)
		}

		opts.interval = interval
		opts.mode = shape.BoundUpperInterval

		if negated {
			opts.mode = shape.BoundLowerWindow
		}
	case absoluteText != "":
		opts.mode = shape.BoundAbsolute
		opts.absoluteText = absoluteText
	default:
		return options{}, errNoBound
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

	_, err = cliutil.LoadDefaults(opts.defaultsPath)
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

	startTime := time.Now()

	head := &shape.Head{ //nolint:exhaustruct
		Format:     opts.format,
		UTC:        opts.utc,
		Exclusive:  opts.exclusive,
		ZeroRebase: opts.zeroRebase,
		Mode:       opts.mode,
		Interval:   opts.interval,
		StartTime:  startTime,
		Logger:     logger,
	}

	if opts.mode == shape.BoundAbsolute {
		absolute, ok := shape.ParseTimestampLiteral(opts.format, opts.utc, startTime, opts.absoluteText)
		if !ok {
			fmt.Fprintf(stderr, "%s: %v\n", programName, errInvalidAbsolute)

			return cliutil.ExitUsage
		}

		head.Absolute = absolute
	}

	var teardown cliutil.Teardown
	defer func() { _ = teardown.Close() }()

	in, closeIn, err := cliutil.OpenInputs(opts.files, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)

		return cliutil.ExitPartial
	}

	teardown.Add("input", closeIn)

	err = head.Run(ctx, in, stdout)
	if err != nil {
		logger.Error("head failed", zap.Error(err))

		return cliutil.ExitPartial
	}

	return cliutil.ExitSuccess
}
