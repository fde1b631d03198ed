// Package libtls reads libtls header macros through cgo.
//
// It is the only package in the module that imports "C". The preamble
// includes <tls.h> and wraps every macro in an #ifdef-guarded static helper,
// so the C compiler decides whether a symbol exists and what it expands to.
// Nothing is linked; only the header is needed.
//
// The cgo resolver is compiled with
//
//	CGO_CFLAGS="-I$LIBRESSL_INCLUDE" go build -tags libtls ./...
//
// Without the libtls tag, or without cgo, Resolve returns ErrNotBuilt so the
// rest of the module builds on machines that have no libtls headers.
package libtls
