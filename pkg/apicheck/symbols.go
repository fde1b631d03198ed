package apicheck

import (
	"context"
	"fmt"
	"strconv"
)

// Value is the resolved value of one macro. The zero Value is an undefined
// symbol.
type Value struct {
	Defined bool
	Int     int64
}

// Defined returns a Value for a symbol that resolved to v.
func Defined(v int64) Value {
	return Value{Defined: true, Int: v}
}

// Absent is the Value of a symbol the header does not define.
var Absent = Value{}

func (v Value) String() string {
	if !v.Defined {
		return "undefined"
	}
	return strconv.FormatInt(v.Int, 10)
}

// Symbols maps macro names to their resolved values. A name missing from the
// map is treated as undefined.
type Symbols map[string]Value

// Lookup returns the value for name, or Absent.
func (s Symbols) Lookup(name string) Value {
	if s == nil {
		return Absent
	}
	return s[name]
}

// Resolver reads the values of the named macros as the C toolchain sees them.
// Names the header does not define are reported as Absent, not as an error;
// an error means the toolchain could not be consulted at all.
type Resolver interface {
	Resolve(ctx context.Context, names []string) (Symbols, error)
}

// Check validates rules, resolves every symbol they reference and evaluates
// them.
func Check(ctx context.Context, r Resolver, rules []Rule) (Report, error) {
	if err := Validate(rules); err != nil {
		return Report{}, err
	}
	syms, err := r.Resolve(ctx, SymbolNames(rules))
	if err != nil {
		return Report{}, fmt.Errorf("resolve symbols: %w", err)
	}
	return NewReport(Evaluate(rules, syms)), nil
}
