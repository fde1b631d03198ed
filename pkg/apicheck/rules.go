package apicheck

import (
	"errors"
	"fmt"
)

// Values the bindings are compiled against.
const (
	APIVersion  = 20141031
	WantPollIn  = -2
	WantPollOut = -3
)

// Macro names in <tls.h>.
const (
	SymbolAPI         = "TLS_API"
	SymbolWantPollIn  = "TLS_WANT_POLLIN"
	SymbolWantPollOut = "TLS_WANT_POLLOUT"

	// Names the sentinels carried before TLS_WANT_POLLIN/POLLOUT.
	SymbolReadAgain  = "TLS_READ_AGAIN"
	SymbolWriteAgain = "TLS_WRITE_AGAIN"
)

// Severity controls whether a failed rule stops the build.
type Severity int

const (
	// Warning failures are reported and the build continues.
	Warning Severity = iota + 1
	// Error failures stop the build.
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ExpectKind tags an Expectation.
type ExpectKind int

const (
	KindMustExist ExpectKind = iota + 1
	KindEquals
	KindNotEquals
)

// Expectation is the property a rule asserts about its symbol. Construct it
// with MustExist, EqualsExactly or NotEqualsExactly.
type Expectation struct {
	Kind  ExpectKind
	Value int64
}

// MustExist requires the symbol to be defined at all.
func MustExist() Expectation {
	return Expectation{Kind: KindMustExist}
}

// EqualsExactly requires the symbol to be defined and equal to v.
func EqualsExactly(v int64) Expectation {
	return Expectation{Kind: KindEquals, Value: v}
}

// NotEqualsExactly forbids the symbol from resolving to v. An undefined symbol
// satisfies it.
func NotEqualsExactly(v int64) Expectation {
	return Expectation{Kind: KindNotEquals, Value: v}
}

// Describe renders the condition for symbol, e.g. "TLS_API == 20141031".
func (e Expectation) Describe(symbol string) string {
	switch e.Kind {
	case KindMustExist:
		return symbol + " defined"
	case KindEquals:
		return fmt.Sprintf("%s == %d", symbol, e.Value)
	case KindNotEquals:
		return fmt.Sprintf("%s != %d", symbol, e.Value)
	default:
		return fmt.Sprintf("%s <unknown expectation %d>", symbol, int(e.Kind))
	}
}

// Rule binds a name to an expected property of one external symbol.
type Rule struct {
	Name     string
	Symbol   string
	Expect   Expectation
	Severity Severity
	// Hint is shown to the operator when the rule fails.
	Hint string
}

// Rules are append-only: supporting a newer API generation adds entries, it
// never edits these.
var baseline = [...]Rule{
	{
		Name:     "api_version",
		Symbol:   SymbolAPI,
		Expect:   EqualsExactly(APIVersion),
		Severity: Warning,
	},
	{
		Name:     "poll_in_sentinel_defined",
		Symbol:   SymbolWantPollIn,
		Expect:   MustExist(),
		Severity: Error,
		Hint:     "is this version of libtls too old? earlier releases named it TLS_READ_AGAIN",
	},
	{
		Name:     "poll_in_sentinel_value",
		Symbol:   SymbolWantPollIn,
		Expect:   EqualsExactly(WantPollIn),
		Severity: Error,
	},
	{
		Name:     "poll_out_sentinel_defined",
		Symbol:   SymbolWantPollOut,
		Expect:   MustExist(),
		Severity: Error,
		Hint:     "is this version of libtls too old? earlier releases named it TLS_WRITE_AGAIN",
	},
	{
		Name:     "poll_out_sentinel_value",
		Symbol:   SymbolWantPollOut,
		Expect:   EqualsExactly(WantPollOut),
		Severity: Error,
	},
}

// BaselineRules returns a fresh copy of the rule set for API 20141031.
func BaselineRules() []Rule {
	out := make([]Rule, len(baseline))
	copy(out, baseline[:])
	return out
}

// SymbolNames lists the distinct symbols referenced by rules in first-use
// order.
func SymbolNames(rules []Rule) []string {
	seen := make(map[string]struct{}, len(rules))
	var names []string
	for _, r := range rules {
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		names = append(names, r.Symbol)
	}
	return names
}

// ErrInvalidRule reports a malformed rule set. It is a configuration error,
// not a rule failure.
var ErrInvalidRule = errors.New("apicheck: invalid rule")

// Validate reports malformed rule sets. It does not look at any symbol values.
func Validate(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("%w: empty rule set", ErrInvalidRule)
	}
	names := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		if r.Name == "" {
			return fmt.Errorf("%w: rule %d has no name", ErrInvalidRule, i)
		}
		if _, dup := names[r.Name]; dup {
			return fmt.Errorf("%w: duplicate rule name %q", ErrInvalidRule, r.Name)
		}
		names[r.Name] = struct{}{}
		if r.Symbol == "" {
			return fmt.Errorf("%w: rule %q has no symbol", ErrInvalidRule, r.Name)
		}
		switch r.Expect.Kind {
		case KindMustExist, KindEquals, KindNotEquals:
		default:
			return fmt.Errorf("%w: rule %q has unknown expectation %d", ErrInvalidRule, r.Name, int(r.Expect.Kind))
		}
		if r.Severity != Warning && r.Severity != Error {
			return fmt.Errorf("%w: rule %q has unknown severity %d", ErrInvalidRule, r.Name, int(r.Severity))
		}
	}
	return nil
}
