package apicheck

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"
)

// Outcome is the overall result of a check run.
type Outcome int

const (
	BuildPass Outcome = iota
	BuildWarn
	BuildFail
)

func (o Outcome) String() string {
	switch o {
	case BuildPass:
		return "pass"
	case BuildWarn:
		return "warn"
	case BuildFail:
		return "fail"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Diagnostic is the operator-facing message for one failed rule.
type Diagnostic struct {
	Severity Severity
	Rule     string
	Expected string
	Observed Value
	Hint     string
}

// Fatal reports whether the diagnostic stops the build. Only Warning is
// advisory; a rule with any other severity, including the zero value, is
// fatal.
func (d Diagnostic) Fatal() bool { return fatal(d.Severity) }

func fatal(s Severity) bool { return s != Warning }

func (d Diagnostic) String() string {
	marker, class := Warning.String(), "advisory"
	if d.Fatal() {
		marker, class = Error.String(), "fatal"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: expected %s, observed %s (%s)", marker, d.Rule, d.Expected, d.Observed, class)
	if d.Hint != "" {
		b.WriteString("; ")
		b.WriteString(d.Hint)
	}
	return b.String()
}

// Report holds the results of one evaluation pass.
type Report struct {
	Results     []Result
	Diagnostics []Diagnostic
	Outcome     Outcome
}

// NewReport derives diagnostics and the overall outcome from results.
func NewReport(results []Result) Report {
	rep := Report{Results: results, Outcome: BuildPass}
	for _, r := range results {
		if !r.Failed() {
			continue
		}
		rep.Diagnostics = append(rep.Diagnostics, Diagnostic{
			Severity: r.Rule.Severity,
			Rule:     r.Rule.Name,
			Expected: r.Rule.Expect.Describe(r.Rule.Symbol),
			Observed: r.Observed,
			Hint:     r.Rule.Hint,
		})
		switch {
		case fatal(r.Rule.Severity):
			rep.Outcome = BuildFail
		case rep.Outcome == BuildPass:
			rep.Outcome = BuildWarn
		}
	}
	return rep
}

// Err returns one *RuleError per fatal failure, combined with multierr, or
// nil when the outcome is not BuildFail. Advisory failures are not included.
func (r Report) Err() error {
	var err error
	for _, res := range r.Results {
		if res.Failed() && fatal(res.Rule.Severity) {
			err = multierr.Append(err, newRuleError(res))
		}
	}
	return err
}

// ExitCode maps the outcome to a process status: 1 for BuildFail, else 0.
func (r Report) ExitCode() int {
	if r.Outcome == BuildFail {
		return 1
	}
	return 0
}

// WriteTo writes one line per diagnostic to w.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, d := range r.Diagnostics {
		n, err := fmt.Fprintln(w, d.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
