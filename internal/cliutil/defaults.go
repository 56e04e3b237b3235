package cliutil

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults carries the cross-tool operational defaults: default priority
// class, the oversleep recovery factor, the control-file poll interval,
// and herewego's standby/premature deltas. Precedence, low to high: these
// built-in constants, a -defaults YAML file, environment variables, then
// the explicit per-invocation flag.
type Defaults struct {
	PriorityClass  int
	RecoveryFactor int
	PollInterval   time.Duration
	Standby        time.Duration
	Premature      time.Duration
}

const (
	defaultPriorityClass  = 1
	defaultRecoveryFactor = 2
	defaultPollInterval   = 100 * time.Millisecond
	defaultStandby        = 0
	defaultPremature      = 0
)

const (
	envPriorityClass  = "VALVEKIT_PRIORITY_CLASS"
	envRecoveryFactor = "VALVEKIT_RECOVERY_FACTOR"
	envPollInterval   = "VALVEKIT_POLL_INTERVAL"
	envStandby        = "VALVEKIT_STANDBY"
	envPremature      = "VALVEKIT_PREMATURE"
)

// DefaultDefaults returns the built-in constants before any file or
// environment override is applied.
func DefaultDefaults() Defaults {
	return Defaults{
		PriorityClass:  defaultPriorityClass,
		RecoveryFactor: defaultRecoveryFactor,
		PollInterval:   defaultPollInterval,
		Standby:        defaultStandby,
		Premature:      defaultPremature,
	}
}

type defaultsFileConfig struct {
	PriorityClass  *int           `yaml:"priorityClass"`
	RecoveryFactor *int           `yaml:"recoveryFactor"`
	PollInterval   *time.Duration `yaml:"pollInterval"`
	Standby        *time.Duration `yaml:"standby"`
	Premature      *time.Duration `yaml:"premature"`
}

// LoadDefaults reads path (if non-empty and present) as a defaultsFileConfig
// YAML document, merges it over the built-in constants, then applies
// environment-variable overrides.
func LoadDefaults(path string) (Defaults, error) {
	cfg := DefaultDefaults()

	trimmed := strings.TrimSpace(path)
	if trimmed != "" {
		data, err := os.ReadFile(trimmed)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Defaults{}, fmt.Errorf("read defaults file %q: %w", trimmed, err)
			}
		} else {
			var fileCfg defaultsFileConfig

			err := yaml.Unmarshal(data, &fileCfg)
			if err != nil {
				return Defaults{}, fmt.Errorf("decode defaults file %q: %w", trimmed, err)
			}

			mergeDefaults(&cfg, fileCfg)
		}
	}

	err := applyEnvOverrides(&cfg)
	if err != nil {
		return Defaults{}, err
	}

	return cfg, nil
}

func mergeDefaults(dst *Defaults, src defaultsFileConfig) {
	if src.PriorityClass != nil {
		dst.PriorityClass = *src.PriorityClass
	}

	if src.RecoveryFactor != nil {
		dst.RecoveryFactor = *src.RecoveryFactor
	}

	if src.PollInterval != nil {
		dst.PollInterval = *src.PollInterval
	}

	if src.Standby != nil {
		dst.Standby = *src.Standby
	}

	if src.Premature != nil {
		dst.Premature = *src.Premature
	}
}

func applyEnvOverrides(cfg *Defaults) error {
	if v, ok := os.LookupEnv(envPriorityClass); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", envPriorityClass, v, err)
		}

		cfg.PriorityClass = n
	}

	if v, ok := os.LookupEnv(envRecoveryFactor); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", envRecoveryFactor, v, err)
		}

		cfg.RecoveryFactor = n
	}

	if err := applyDurationEnv(envPollInterval, &cfg.PollInterval); err != nil {
		return err
	}

	if err := applyDurationEnv(envStandby, &cfg.Standby); err != nil {
		return err
	}

	return applyDurationEnv(envPremature, &cfg.Premature)
}

func applyDurationEnv(name string, dst *time.Duration) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", name, v, err)
	}

	*dst = d

	return nil
}
