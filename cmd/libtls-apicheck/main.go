// Command libtls-apicheck fails a build when the installed libtls header does
// not match the API the Go bindings were written against.
//
//	libtls-apicheck check                       # cgo resolver if built in, else $CC -E
//	libtls-apicheck check --include /opt/libressl/include
//	libtls-apicheck check --symbols libtls.yaml # replay a recorded header
//	libtls-apicheck resolve --out libtls.yaml
//	libtls-apicheck rules
//
// Exit status is 1 when a fatal rule fails, 0 when every fatal rule passes
// (advisory diagnostics may still be printed), and 2 when the header could
// not be read or the command line is invalid.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

const appName = "libtls-apicheck"

// exitError carries a process status without printing anything further; the
// command has already written its diagnostics.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "%s: %v\n", appName, err)
	return 2
}
