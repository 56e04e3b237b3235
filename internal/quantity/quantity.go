// Package quantity parses the byte/line quota grammar consumed by the quota
// pump. The hold pump's N@holdtime count is a plain decimal integer parsed by
// shape.ParseHoldParam, not by this package.
package quantity

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Mode distinguishes how a parsed Quantity should be applied to a counter.
type Mode int

const (
	// Set overwrites the counter with Value.
	Set Mode = iota
	// Add increments the counter by Value, saturating on overflow.
	Add
	// Terminate raises the termination flag; Value is unused.
	Terminate
)

// Quantity is the result of parsing one control-file line or CLI argument.
type Quantity struct {
	Mode  Mode
	Value uint64
}

// ErrInvalid is returned for tokens that do not match the grammar.
var ErrInvalid = errors.New("quantity: invalid token")

var prefixMultipliers = map[string]*big.Float{
	"k":  bigFloat(1e3),
	"M":  bigFloat(1e6),
	"G":  bigFloat(1e9),
	"T":  bigFloat(1e12),
	"P":  bigFloat(1e15),
	"E":  bigFloat(1e18),
	"ki": bigPow2(10),
	"Mi": bigPow2(20),
	"Gi": bigPow2(30),
	"Ti": bigPow2(40),
	"Pi": bigPow2(50),
	"Ei": bigPow2(60),
	// legacy uppercase K is accepted as 1024, same as ki.
	"K": bigPow2(10),
}

func bigFloat(v float64) *big.Float {
	return new(big.Float).SetPrec(200).SetFloat64(v)
}

func bigPow2(n uint) *big.Float {
	return new(big.Float).SetPrec(200).SetInt(new(big.Int).Lsh(big.NewInt(1), n))
}

// Parse converts a text token to a Quantity or ErrInvalid. The grammar is
// [+]<number>[<prefix>] or the bare letter t/T for Terminate.
func Parse(token string) (Quantity, error) {
	trimmed := strings.TrimLeft(token, " \t")
	trimmed = strings.TrimRight(trimmed, " \t\r\n")

	if trimmed == "t" || trimmed == "T" {
		return Quantity{Mode: Terminate}, nil
	}

	mode := Set

	rest := trimmed
	if strings.HasPrefix(rest, "+") {
		mode = Add
		rest = rest[1:]
	}

	if rest == "" {
		return Quantity{}, ErrInvalid
	}

	number, prefix := splitNumberPrefix(rest)
	if number == "" {
		return Quantity{}, ErrInvalid
	}

	value, err := parseValue(number, prefix)
	if err != nil {
		return Quantity{}, err
	}

	return Quantity{Mode: mode, Value: value}, nil
}

// ParseAvailable parses the quota pump's literal CLI argument: a bare
// quantity naming the initial "available" count, not the Set/Add/Terminate
// control-file grammar (no leading "+" and not the terminate sentinel).
func ParseAvailable(token string) (uint64, error) {
	q, err := Parse(token)
	if err != nil {
		return 0, err
	}

	if q.Mode != Set {
		return 0, ErrInvalid
	}

	return q.Value, nil
}

func splitNumberPrefix(s string) (number, prefix string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c >= '0' && c <= '9' || c == '.' {
			i++

			continue
		}

		// 'e'/'E' is an exponent only when (optionally signed) digits follow;
		// otherwise it starts the E/Ei prefix.
		if (c == 'e' || c == 'E') && i > 0 {
			j := i + 1
			if j < len(s) && (s[j] == '+' || s[j] == '-') {
				j++
			}

			if j < len(s) && s[j] >= '0' && s[j] <= '9' {
				i = j + 1

				continue
			}
		}

		break
	}

	return s[:i], s[i:]
}

func parseValue(number, prefix string) (uint64, error) {
	isFloatForm := strings.ContainsAny(number, ".eE")

	mult, hasPrefix := prefixMultipliers[prefix]
	if prefix != "" && !hasPrefix {
		return 0, ErrInvalid
	}

	if !isFloatForm && !hasPrefix {
		// Integer fast path: full precision, no binary-float rounding.
		n, ok := new(big.Int).SetString(number, 10)
		if !ok || n.Sign() < 0 {
			return 0, ErrInvalid
		}

		return saturateBigInt(n), nil
	}

	base, ok := new(big.Float).SetPrec(200).SetString(number)
	if !ok || base.Sign() < 0 {
		return 0, ErrInvalid
	}

	if hasPrefix {
		base = new(big.Float).SetPrec(200).Mul(base, mult)
	}

	bi, _ := base.Int(nil)
	if bi == nil {
		return 0, ErrInvalid
	}

	return saturateBigInt(bi), nil
}

func saturateBigInt(n *big.Int) uint64 {
	maxU64 := new(big.Int).SetUint64(math.MaxUint64)
	if n.Cmp(maxU64) > 0 {
		return math.MaxUint64
	}

	if !n.IsUint64() {
		return 0
	}

	return n.Uint64()
}

// AddSaturating adds delta to current, saturating at math.MaxUint64.
func AddSaturating(current, delta uint64) uint64 {
	sum := current + delta
	if sum < current {
		return math.MaxUint64
	}

	return sum
}

// FormatValue is a convenience used by tests and diagnostics.
func FormatValue(v uint64) string {
	return strconv.FormatUint(v, 10)
}
