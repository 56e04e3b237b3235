// Command herewego is the startup aligner: it sleeps a fixed standby
// duration, then blocks until the next round boundary of the given period,
// optionally pulled earlier by a premature delta, then exits 0.
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
	"github.com/valvesuite/valvekit/internal/duration"
	"github.com/valvesuite/valvekit/pkg/shape"
)

const programName = "herewego"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

var errMissingPeriod = errors.New("a period argument is required")

type options struct {
	standby      duration.D
	premature    duration.D
	period       duration.D
	logLevel     string
	defaultsPath string
}

func parseArgs(defaults cliutil.Defaults, args []string) (options, error) {
	var standbyText, prematureText string

	opts := options{} //nolint:exhaustruct

	flagSet := flag.NewFlagSet(programName, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&standbyText, "standby", "", "fixed standby duration before alignment")
	flagSet.StringVar(&prematureText, "premature", "", "delta pulling the round boundary earlier")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "structured log level")
	flagSet.StringVar(&opts.defaultsPath, "defaults", "", "path to a YAML defaults file")

	err := flagSet.Parse(args)
	if err != nil {
		return options{}, fmt.Errorf("parse CLI arguments: %w", err)
	}

	rest := flagSet.Args()
	if len(rest) < 1 {
		return options{}, errMissingPeriod
	}

	period, err := duration.Parse(rest[0])
	if err != nil {
		return options{}, fmt.Errorf("period %q: %w", rest[0], err)
	}

	opts.period = period

	opts.standby = duration.D(defaults.Standby)
	if standbyText != "" {
		opts.standby, err = duration.Parse(standbyText)
		if err != nil {
			return options{}, fmt.Errorf("-standby %q: %w", standbyText, err)
		}
	}

	opts.premature = duration.D(defaults.Premature)
	if prematureText != "" {
		opts.premature, err = duration.Parse(prematureText)
		if err != nil {
			return options{}, fmt.Errorf("-premature %q: %w", prematureText, err)
		}
	}

	return opts, nil
}

func run(ctx context.Context, args []string, _ io.Reader, stdout, stderr io.Writer) int {
	if cliutil.ShowVersion(programName, args, stdout) {
		return cliutil.ExitSuccess
	}

	defaultsPath := extractDefaultsPath(args)

	defaults, err := cliutil.LoadDefaults(defaultsPath)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)

		return cliutil.ExitUsage
	}

	opts, err := parseArgs(defaults, args)
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

	align := &shape.Align{ //nolint:exhaustruct
		Standby:   opts.standby,
		Premature: opts.premature,
		Period:    opts.period,
		Logger:    logger,
	}

	err = align.Run(ctx)
	if err != nil {
		logger.Error("align failed", zap.Error(err))

		return cliutil.ExitPartial
	}

	return cliutil.ExitSuccess
}

// extractDefaultsPath pre-scans args for -defaults so the defaults file can
// be loaded before the full flag set (whose standby/premature defaults come
// from it) is built.
func extractDefaultsPath(args []string) string {
	for i, arg := range args {
		if arg == "-defaults" || arg == "--defaults" {
			if i+1 < len(args) {
				return args[i+1]
			}

			return ""
		}
	}

	return ""
}
