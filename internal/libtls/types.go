package libtls

import "errors"

var (
	// ErrNotBuilt reports that the cgo resolver was not compiled into the
	// current binary. Callers fall back to another resolver.
	ErrNotBuilt = errors.New("libtls: cgo header resolver not built (use -tags libtls with cgo enabled)")

	// ErrUnknownSymbol reports a macro the compiled-in preamble does not read.
	// cgo can only read macros named at build time.
	ErrUnknownSymbol = errors.New("libtls: symbol not compiled into this build")
)

// Resolver resolves libtls macros from the header visible to the C compiler
// when this binary was built.
type Resolver struct{}

// NewResolver returns the cgo-backed resolver.
func NewResolver() Resolver { return Resolver{} }
