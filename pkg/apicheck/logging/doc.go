// Package logging provides a minimal logging facade for the libtls API check.
//
// The check's diagnostics are plain lines on the build's error stream; this
// package carries everything else (which resolver ran, which include path it
// used, per-rule results at debug level) as structured slog records.
//
//	logger := logging.NewText(os.Stderr, verbose)
//	logging.Debug(ctx, logger, "resolving symbols", "resolver", "preproc")
//	logging.Results(ctx, logger, report)
//
// Results picks the record level from the outcome, so a passing build logs
// nothing at the default warn level. Custom Logger implementations may be
// supplied for tests or to forward records into an existing build log.
package logging
