// Package preproc resolves libtls macros by running the C preprocessor over a
// generated translation unit that includes <tls.h>.
//
// Each requested macro gets an #ifdef-guarded marker line followed by one
// #if per bit of its value, so the preprocessor both decides whether the macro
// exists and does the integer arithmetic: a macro defined as (-1-1) resolves
// to -2 exactly as the bindings' C compiler would see it. Unlike the cgo
// resolver it can read any macro name and picks up the header at run time, so
// the include directory can be chosen per invocation.
package preproc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/telos-tls/apicheck/pkg/apicheck"
)

const (
	DefaultCC     = "cc"
	DefaultHeader = "tls.h"

	symbolMarker = "apicheck_symbol"
	bitMarker    = "apicheck_bit"

	// #if arithmetic is done in intmax_t/uintmax_t, 64 bits on every
	// toolchain libtls supports.
	valueBits = 64
)

var (
	// ErrCompiler reports that the preprocessor could not be run or rejected
	// the translation unit (typically: header not found).
	ErrCompiler = errors.New("preproc: preprocessor failed")

	// ErrInvalidName reports a requested name that is not a C identifier.
	ErrInvalidName = errors.New("preproc: invalid macro name")

	// ErrOutput reports preprocessor output the resolver did not generate.
	ErrOutput = errors.New("preproc: malformed marker in preprocessor output")
)

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config selects the compiler and header search path.
type Config struct {
	// CC is the compiler driver, possibly with leading words such as
	// "ccache gcc". Empty means DefaultCC.
	CC string

	// IncludeDirs are passed as -I flags ahead of the system search path.
	IncludeDirs []string

	// Header is the file to #include. Empty means DefaultHeader.
	Header string

	// Flags are appended to the compiler command line verbatim.
	Flags []string
}

type runFunc func(ctx context.Context, argv []string, stdin []byte) (stdout []byte, err error)

// Resolver implements apicheck.Resolver on top of the C preprocessor.
type Resolver struct {
	cfg Config
	run runFunc
}

// New returns a Resolver for cfg.
func New(cfg Config) *Resolver {
	if strings.TrimSpace(cfg.CC) == "" {
		cfg.CC = DefaultCC
	}
	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}
	return &Resolver{cfg: cfg, run: runCommand}
}

// Command returns the argv the resolver runs.
func (r *Resolver) Command() []string {
	argv := append([]string{}, strings.Fields(r.cfg.CC)...)
	argv = append(argv, "-E", "-P")
	for _, dir := range r.cfg.IncludeDirs {
		if dir != "" {
			argv = append(argv, "-I"+dir)
		}
	}
	argv = append(argv, r.cfg.Flags...)
	return append(argv, "-x", "c", "-")
}

// Resolve preprocesses the generated source and reads back each macro.
func (r *Resolver) Resolve(ctx context.Context, names []string) (apicheck.Symbols, error) {
	src, err := Source(r.cfg.Header, names)
	if err != nil {
		return nil, err
	}
	out, err := r.run(ctx, r.Command(), src)
	if err != nil {
		return nil, err
	}
	return parse(out, names)
}

// Source renders the translation unit for names. Bits are taken from the
// value converted to uintmax_t, which is two's complement for negatives.
func Source(header string, names []string) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "#include <%s>\n", header)
	for _, name := range names {
		if !identRE.MatchString(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		fmt.Fprintf(&b, "#ifdef %s\n%s \"%s\"\n", name, symbolMarker, name)
		for bit := 0; bit < valueBits; bit++ {
			fmt.Fprintf(&b, "#if ((((%s) + 0u) >> %d) & 1u)\n%s \"%s\" %d\n#endif\n", name, bit, bitMarker, name, bit)
		}
		b.WriteString("#endif\n")
	}
	return b.Bytes(), nil
}

func parse(out []byte, names []string) (apicheck.Symbols, error) {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		want[name] = true
	}
	defined := make(map[string]bool, len(names))
	bits := make(map[string]uint64, len(names))

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || (fields[0] != symbolMarker && fields[0] != bitMarker) {
			continue
		}
		name, err := strconv.Unquote(fields[1])
		if err != nil || !want[name] {
			continue
		}
		switch {
		case fields[0] == symbolMarker && len(fields) == 2:
			defined[name] = true
		case fields[0] == bitMarker && len(fields) == 3:
			bit, err := strconv.Atoi(fields[2])
			if err != nil || bit < 0 || bit >= valueBits {
				return nil, fmt.Errorf("%w: %q", ErrOutput, sc.Text())
			}
			bits[name] |= 1 << uint(bit)
		default:
			return nil, fmt.Errorf("%w: %q", ErrOutput, sc.Text())
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read preprocessor output: %w", err)
	}

	syms := make(apicheck.Symbols, len(names))
	for _, name := range names {
		if !defined[name] {
			syms[name] = apicheck.Absent
			continue
		}
		syms[name] = apicheck.Defined(int64(bits[name]))
	}
	return syms, nil
}

func runCommand(ctx context.Context, argv []string, stdin []byte) ([]byte, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: no compiler configured", ErrCompiler)
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // #nosec G204 -- compiler chosen by the operator
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrCompiler, strings.Join(argv, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
