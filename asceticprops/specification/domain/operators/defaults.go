package operators

import (
	"cmp"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

func registerComparison[T cmp.Ordered](reg *OperatorRegistry) {
	RegisterBinary[T, T](reg, OperatorEq, func(a, b T) (any, error) { return a == b, nil })
	RegisterBinary[T, T](reg, OperatorNe, func(a, b T) (any, error) { return a != b, nil })
	RegisterBinary[T, T](reg, OperatorGt, func(a, b T) (any, error) { return a > b, nil })
	RegisterBinary[T, T](reg, OperatorGte, func(a, b T) (any, error) { return a >= b, nil })
	RegisterBinary[T, T](reg, OperatorLt, func(a, b T) (any, error) { return a < b, nil })
	RegisterBinary[T, T](reg, OperatorLte, func(a, b T) (any, error) { return a <= b, nil })
}

func registerArithmetic[T int | int64 | float64 | time.Duration](reg *OperatorRegistry) {
	RegisterBinary[T, T](reg, OperatorAdd, func(a, b T) (any, error) { return a + b, nil })
	RegisterBinary[T, T](reg, OperatorSub, func(a, b T) (any, error) { return a - b, nil })
	RegisterBinary[T, T](reg, OperatorMul, func(a, b T) (any, error) { return a * b, nil })
	RegisterBinary[T, T](reg, OperatorDiv, func(a, b T) (any, error) {
		if b == 0 {
			return nil, errors.New("division by zero")
		}
		return a / b, nil
	})
}

func registerModulo[T int | int64](reg *OperatorRegistry) {
	RegisterBinary[T, T](reg, OperatorMod, func(a, b T) (any, error) {
		if b == 0 {
			return nil, errors.New("modulo by zero")
		}
		return a % b, nil
	})
}

// NewDefaultRegistry creates a registry with PostgreSQL-compatible operators
// for the value types a props store keeps.
func NewDefaultRegistry() *OperatorRegistry {
	reg := NewOperatorRegistry()

	RegisterBinary[bool, bool](reg, OperatorEq, func(a, b bool) (any, error) { return a == b, nil })
	RegisterBinary[bool, bool](reg, OperatorNe, func(a, b bool) (any, error) { return a != b, nil })
	RegisterBinary[bool, bool](reg, OperatorIs, func(a, b bool) (any, error) { return a == b, nil })
	RegisterUnary[bool](reg, OperatorNot, func(a bool) (any, error) { return !a, nil })

	registerComparison[int](reg)
	registerArithmetic[int](reg)
	registerModulo[int](reg)

	registerComparison[int64](reg)
	registerArithmetic[int64](reg)
	registerModulo[int64](reg)

	registerComparison[float64](reg)
	registerArithmetic[float64](reg)

	registerComparison[string](reg)
	RegisterBinary[string, string](reg, OperatorLike, func(a, pattern string) (any, error) {
		re, err := likePattern(pattern)
		if err != nil {
			return nil, err
		}
		return re.MatchString(a), nil
	})

	registerComparison[time.Duration](reg)
	registerArithmetic[time.Duration](reg)

	RegisterBinary[time.Time, time.Time](reg, OperatorEq, func(a, b time.Time) (any, error) { return a.Equal(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorNe, func(a, b time.Time) (any, error) { return !a.Equal(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorGt, func(a, b time.Time) (any, error) { return a.After(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorGte, func(a, b time.Time) (any, error) { return !a.Before(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorLt, func(a, b time.Time) (any, error) { return a.Before(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorLte, func(a, b time.Time) (any, error) { return !a.After(b), nil })
	RegisterBinary[time.Time, time.Time](reg, OperatorSub, func(a, b time.Time) (any, error) { return a.Sub(b), nil })
	RegisterBinary[time.Time, time.Duration](reg, OperatorAdd, func(a time.Time, b time.Duration) (any, error) { return a.Add(b), nil })
	RegisterBinary[time.Time, time.Duration](reg, OperatorSub, func(a time.Time, b time.Duration) (any, error) { return a.Add(-b), nil })

	// uuid has no ordering in the store
	RegisterBinary[uuid.UUID, uuid.UUID](reg, OperatorEq, func(a, b uuid.UUID) (any, error) { return a == b, nil })
	RegisterBinary[uuid.UUID, uuid.UUID](reg, OperatorNe, func(a, b uuid.UUID) (any, error) { return a != b, nil })

	return reg
}

var likeCache sync.Map

// likePattern translates a SQL LIKE pattern (% and _ wildcards, backslash
// escape) to an anchored regular expression.
func likePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := likeCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	var b strings.Builder
	b.WriteString("(?s)^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, err
	}
	likeCache.Store(pattern, re)
	return re, nil
}
