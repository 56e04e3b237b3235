// Package cliutil collects the pieces every cmd/<filter> binary shares:
// logging setup, the -defaults YAML file, cleanup-hook aggregation, exit
// codes, and -p priority-flag parsing.
package cliutil

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogLevel is used when -log-level is unset or empty.
const DefaultLogLevel = "error"

var errInvalidLogLevel = fmt.Errorf("cliutil: invalid log level")

// NewLogger builds the zap logger every binary uses: at the default level
// (error) only the bare message is printed, prefixed by the program name by
// the caller; raising the level switches in full structured keys so
// priority-elevation downgrades, oversleep recovery, and parameter-file
// reparses can be diagnosed without swapping logging libraries.
func NewLogger(program, level string) (*zap.Logger, error) {
	if level == "" {
		level = DefaultLogLevel
	}

	var zapLevel zapcore.Level

	err := zapLevel.UnmarshalText([]byte(level))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.CallerKey = "caller"

	if zapLevel >= zapcore.ErrorLevel {
		cfg.EncoderConfig.TimeKey = ""
		cfg.EncoderConfig.LevelKey = ""
		cfg.EncoderConfig.CallerKey = ""
		cfg.EncoderConfig.StacktraceKey = ""
		cfg.EncoderConfig.EncodeLevel = nil
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return logger.Named(program), nil
}
