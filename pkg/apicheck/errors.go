package apicheck

import (
	"errors"
	"fmt"
)

var (
	// ErrSymbolAbsent reports a macro the header does not define.
	ErrSymbolAbsent = errors.New("symbol absent")

	// ErrValueMismatch reports a macro that resolved to an unexpected value.
	ErrValueMismatch = errors.New("value mismatch")

	// ErrForbiddenValue reports a macro that resolved to a known-bad value.
	ErrForbiddenValue = errors.New("forbidden value")
)

func (k FailureKind) sentinel() error {
	switch k {
	case SymbolAbsent:
		return ErrSymbolAbsent
	case ForbiddenValueMatch:
		return ErrForbiddenValue
	default:
		return ErrValueMismatch
	}
}

// RuleError describes one failed rule. It unwraps to ErrSymbolAbsent,
// ErrValueMismatch or ErrForbiddenValue.
type RuleError struct {
	Rule     string
	Expected string
	Observed Value
	Kind     FailureKind
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: expected %s, observed %s", e.Rule, e.Expected, e.Observed)
}

func (e *RuleError) Unwrap() error { return e.Kind.sentinel() }

func newRuleError(r Result) *RuleError {
	return &RuleError{
		Rule:     r.Rule.Name,
		Expected: r.Rule.Expect.Describe(r.Rule.Symbol),
		Observed: r.Observed,
		Kind:     r.Kind,
	}
}
