// Package apicheck decides whether an installed libtls exposes the API surface
// the Go bindings were written against.
//
// The check is a fixed, ordered list of rules evaluated against the macro
// values the C toolchain resolved from <tls.h>. Every rule is evaluated in a
// single pass and each failure produces one diagnostic, so an operator sees
// all problems at once instead of fixing them one build at a time.
//
// # Rules
//
// [BaselineRules] returns the rules for API generation 20141031:
//
//	api_version                TLS_API == 20141031        warning
//	poll_in_sentinel_defined   TLS_WANT_POLLIN defined    error
//	poll_in_sentinel_value     TLS_WANT_POLLIN == -2      error
//	poll_out_sentinel_defined  TLS_WANT_POLLOUT defined   error
//	poll_out_sentinel_value    TLS_WANT_POLLOUT == -3     error
//
// A version drift is reported but does not stop the build. The sentinel values
// are returned by tls_read and tls_write in place of a byte count, so any
// other value would be silently read as a length or errno; those rules are
// fatal.
//
// # Usage
//
// The package never reads the environment or the filesystem. Symbol values
// come from a [Resolver] (see internal/libtls, preproc and snapshot) or are
// built by hand:
//
//	syms := apicheck.Symbols{
//	    apicheck.SymbolAPI:         apicheck.Defined(20141031),
//	    apicheck.SymbolWantPollIn:  apicheck.Defined(-2),
//	    apicheck.SymbolWantPollOut: apicheck.Defined(-3),
//	}
//	report := apicheck.NewReport(apicheck.Evaluate(apicheck.BaselineRules(), syms))
//	report.WriteTo(os.Stderr)
//	os.Exit(report.ExitCode())
package apicheck
