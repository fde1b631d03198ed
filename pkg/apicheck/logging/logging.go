package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/telos-tls/apicheck/pkg/apicheck"
)

// Logger receives the check's structured records. It is shaped after
// slog.Logger.Log so an existing *slog.Logger adapts with New, and a build
// system can forward records without implementing one method per level.
type Logger interface {
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
	Enabled(ctx context.Context, level slog.Level) bool
	With(args ...any) Logger
}

// New returns a Logger backed by the provided slog.Logger. Passing nil binds to
// slog.Default().
func New(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{logger}
}

// NewText logs text records to w: warnings and errors only, or everything
// down to per-rule results when verbose is set.
func NewText(w io.Writer, verbose bool) Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return New(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return slogLogger{slog.New(slog.DiscardHandler)}
}

type slogLogger struct {
	*slog.Logger
}

func (l slogLogger) With(args ...any) Logger {
	return slogLogger{l.Logger.With(args...)}
}

// Debug logs at debug level.
func Debug(ctx context.Context, l Logger, msg string, args ...any) {
	l.Log(ctx, slog.LevelDebug, msg, args...)
}

// Symbol renders a resolved macro as an attribute keyed by its name, with
// "undefined" for absent symbols.
func Symbol(name string, v apicheck.Value) slog.Attr {
	return slog.String(name, v.String())
}

// Outcome is the attribute used for the overall result.
func Outcome(o apicheck.Outcome) slog.Attr {
	return slog.String("outcome", o.String())
}

// Result groups one rule result under the rule's name:
// api_version.status=fail api_version.TLS_API=20200120.
func Result(r apicheck.Result) slog.Attr {
	return slog.Group(r.Rule.Name,
		slog.String("status", r.Status.String()),
		Symbol(r.Rule.Symbol, r.Observed),
	)
}

// Level is the record level for an outcome: a failed check is an error, a
// check with advisories a warning.
func Level(o apicheck.Outcome) slog.Level {
	switch o {
	case apicheck.BuildFail:
		return slog.LevelError
	case apicheck.BuildWarn:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Results logs every rule result at debug level, then the overall outcome at
// Level(rep.Outcome).
func Results(ctx context.Context, l Logger, rep apicheck.Report) {
	if l.Enabled(ctx, slog.LevelDebug) {
		for _, r := range rep.Results {
			l.Log(ctx, slog.LevelDebug, "rule evaluated", Result(r))
		}
	}
	l.Log(ctx, Level(rep.Outcome), "libtls api check finished",
		Outcome(rep.Outcome),
		slog.Int("diagnostics", len(rep.Diagnostics)),
	)
}
