//go:build cgo && libtls

package libtls

/*
#include <tls.h>

static int apicheck_tls_api(long long *v) {
#ifdef TLS_API
	*v = (long long)(TLS_API);
	return 1;
#else
	(void)v;
	return 0;
#endif
}

static int apicheck_tls_want_pollin(long long *v) {
#ifdef TLS_WANT_POLLIN
	*v = (long long)(TLS_WANT_POLLIN);
	return 1;
#else
	(void)v;
	return 0;
#endif
}

static int apicheck_tls_want_pollout(long long *v) {
#ifdef TLS_WANT_POLLOUT
	*v = (long long)(TLS_WANT_POLLOUT);
	return 1;
#else
	(void)v;
	return 0;
#endif
}

static int apicheck_tls_read_again(long long *v) {
#ifdef TLS_READ_AGAIN
	*v = (long long)(TLS_READ_AGAIN);
	return 1;
#else
	(void)v;
	return 0;
#endif
}

static int apicheck_tls_write_again(long long *v) {
#ifdef TLS_WRITE_AGAIN
	*v = (long long)(TLS_WRITE_AGAIN);
	return 1;
#else
	(void)v;
	return 0;
#endif
}
*/
import "C"

import (
	"context"
	"fmt"
	"sort"

	"github.com/telos-tls/apicheck/pkg/apicheck"
)

var readers = map[string]func(*C.longlong) C.int{
	apicheck.SymbolAPI:         func(v *C.longlong) C.int { return C.apicheck_tls_api(v) },
	apicheck.SymbolWantPollIn:  func(v *C.longlong) C.int { return C.apicheck_tls_want_pollin(v) },
	apicheck.SymbolWantPollOut: func(v *C.longlong) C.int { return C.apicheck_tls_want_pollout(v) },
	apicheck.SymbolReadAgain:   func(v *C.longlong) C.int { return C.apicheck_tls_read_again(v) },
	apicheck.SymbolWriteAgain:  func(v *C.longlong) C.int { return C.apicheck_tls_write_again(v) },
}

// Available reports whether the cgo resolver is compiled in.
func Available() bool { return true }

// Supported lists the macros this build can read, sorted.
func Supported() []string {
	names := make([]string, 0, len(readers))
	for name := range readers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve reads each named macro. Undefined macros come back as
// apicheck.Absent; names outside Supported are an error.
func (Resolver) Resolve(ctx context.Context, names []string) (apicheck.Symbols, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	syms := make(apicheck.Symbols, len(names))
	for _, name := range names {
		read, ok := readers[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, name)
		}
		var v C.longlong
		if read(&v) == 0 {
			syms[name] = apicheck.Absent
			continue
		}
		syms[name] = apicheck.Defined(int64(v))
	}
	return syms, nil
}
