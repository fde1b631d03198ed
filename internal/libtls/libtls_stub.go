//go:build !cgo || !libtls

package libtls

import (
	"context"

	"github.com/telos-tls/apicheck/pkg/apicheck"
)

// Available reports whether the cgo resolver is compiled in.
func Available() bool { return false }

// Supported returns nil when the cgo resolver is not compiled in.
func Supported() []string { return nil }

// Resolve always fails with ErrNotBuilt in this build.
func (Resolver) Resolve(context.Context, []string) (apicheck.Symbols, error) {
	return nil, ErrNotBuilt
}
