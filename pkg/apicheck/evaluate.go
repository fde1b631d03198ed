package apicheck

// Status is the outcome of a single rule.
type Status int

const (
	Pass Status = iota
	Fail
)

func (s Status) String() string {
	if s == Pass {
		return "pass"
	}
	return "fail"
}

// FailureKind classifies why a rule failed.
type FailureKind int

const (
	NoFailure FailureKind = iota
	SymbolAbsent
	ValueMismatch
	ForbiddenValueMatch
)

func (k FailureKind) String() string {
	switch k {
	case NoFailure:
		return "none"
	case SymbolAbsent:
		return "symbol absent"
	case ValueMismatch:
		return "value mismatch"
	case ForbiddenValueMatch:
		return "forbidden value"
	default:
		return "unknown"
	}
}

// Result is the evaluation of one rule against the resolved symbols.
type Result struct {
	Rule     Rule
	Status   Status
	Observed Value
	Kind     FailureKind
}

// Failed reports whether the rule did not hold.
func (r Result) Failed() bool { return r.Status == Fail }

// Evaluate checks every rule against syms and returns one Result per rule in
// rule order. Evaluation continues past fatal failures. Neither argument is
// modified.
func Evaluate(rules []Rule, syms Symbols) []Result {
	results := make([]Result, 0, len(rules))
	for _, rule := range rules {
		results = append(results, evaluate(rule, syms.Lookup(rule.Symbol)))
	}
	return results
}

func evaluate(rule Rule, got Value) Result {
	res := Result{Rule: rule, Status: Pass, Observed: got}
	fail := func(k FailureKind) Result {
		res.Status = Fail
		res.Kind = k
		return res
	}

	switch rule.Expect.Kind {
	case KindMustExist:
		if !got.Defined {
			return fail(SymbolAbsent)
		}
	case KindEquals:
		// An undefined symbol cannot compare equal to anything.
		if !got.Defined {
			return fail(SymbolAbsent)
		}
		if got.Int != rule.Expect.Value {
			return fail(ValueMismatch)
		}
	case KindNotEquals:
		if got.Defined && got.Int == rule.Expect.Value {
			return fail(ForbiddenValueMatch)
		}
	default:
		// Unknown expectations never pass.
		return fail(ValueMismatch)
	}
	return res
}
