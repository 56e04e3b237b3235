// Package duration parses the human duration/rate grammar shared by every
// shaping pump: a decimal number with an optional unit suffix, plus the two
// percent sentinels that mean "shut" and "open".
package duration

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// D is a parsed duration expressed in nanoseconds, or one of the two
// sentinels below. Valid finite values are always >= 0.
type D int64

const (
	// Infinite means "shut": the rate/hold pump blocks forever on this
	// parameter until a new value arrives or a signal wakes it.
	Infinite D = -1
	// Immediate means "open": zero delay, pass straight through.
	Immediate D = 0
)

// maxBaseValue bounds the integer part of the user-supplied number, before
// unit conversion, at the largest signed 32-bit value.
const maxBaseValue = math.MaxInt32

const maxTokenLen = 63

var (
	// ErrInvalid is returned for any token that does not match the grammar.
	ErrInvalid = errors.New("duration: invalid token")
)

// Parse converts a text token to a D or ErrInvalid. The grammar is
// <number>[<unit>] with unit in {s, ms, us, ns, bps, kbps, Mbps, Gbps, cps,
// %}; the default unit (no suffix) is s.
func Parse(token string) (D, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" || len(trimmed) > maxTokenLen {
		return 0, ErrInvalid
	}

	if trimmed == "100%" {
		return Infinite, nil
	}
	if trimmed == "0%" {
		return Immediate, nil
	}
	if strings.HasSuffix(trimmed, "%") {
		return 0, ErrInvalid
	}

	number, unit := splitNumberUnit(trimmed)
	if number == "" {
		return 0, ErrInvalid
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil || value < 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, ErrInvalid
	}

	if math.Trunc(value) > maxBaseValue {
		return 0, ErrInvalid
	}

	nanos, ok := toNanos(value, unit)
	if !ok {
		return 0, ErrInvalid
	}

	return D(nanos), nil
}

// splitNumberUnit separates the leading numeric run from the trailing unit
// letters. Units are ASCII-letter-only (plus the already-handled '%').
func splitNumberUnit(s string) (number, unit string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' ||
			((c == '+' || c == '-') && i > 0 && (s[i-1] == 'e' || s[i-1] == 'E')) {
			i++

			continue
		}

		break
	}

	return s[:i], s[i:]
}

func toNanos(value float64, unit string) (int64, bool) {
	const (
		nsPerSecond = 1e9
		nsPerMilli  = 1e6
		nsPerMicro  = 1e3
	)

	switch unit {
	case "", "s":
		return truncNanos(value * nsPerSecond)
	case "ms":
		return truncNanos(value * nsPerMilli)
	case "us":
		return truncNanos(value * nsPerMicro)
	case "ns":
		return truncNanos(value)
	case "bps":
		return periodFromBits(value, 8)
	case "kbps":
		return periodFromBits(value, 8e-3)
	case "Mbps":
		return periodFromBits(value, 8e-6)
	case "Gbps":
		return periodFromBits(value, 8e-9)
	case "cps":
		return periodFromBits(value, 10)
	default:
		return 0, false
	}
}

// periodFromBits computes the per-character period in nanoseconds for a
// rate given in units-per-second, where bitsPerCharPerUnit folds in both
// the bits-per-character convention (8 for bps, 10 for cps) and the SI
// prefix already applied to the unit name. A larger SI prefix means a
// faster rate and thus a smaller period, so the prefix is folded in as
// its reciprocal (e.g. kbps -> 8e-3, not 8e3).
func periodFromBits(value, bitsPerCharPerUnit float64) (int64, bool) {
	if value <= 0 {
		return 0, false
	}

	periodNanos := (bitsPerCharPerUnit * nsPerSecondFloat) / value
	if periodNanos < 1 {
		// A period under 1ns is invalid, never clamped.
		return 0, false
	}

	return truncNanos(periodNanos)
}

const nsPerSecondFloat = 1e9

func truncNanos(ns float64) (int64, bool) {
	truncated := math.Trunc(ns)
	if truncated < 0 || truncated > math.MaxInt64 {
		return 0, false
	}

	return int64(truncated), true
}

// IsInfinite reports whether d is the "shut" sentinel.
func (d D) IsInfinite() bool { return d == Infinite }

// IsImmediate reports whether d is zero delay.
func (d D) IsImmediate() bool { return d == Immediate }
