package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telos-tls/apicheck/internal/libtls"
	"github.com/telos-tls/apicheck/pkg/apicheck"
	"github.com/telos-tls/apicheck/pkg/apicheck/preproc"
	"github.com/telos-tls/apicheck/pkg/apicheck/snapshot"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CC", "LIBRESSL_INCLUDE",
		"APICHECK_RESOLVER", "APICHECK_SYMBOLS", "APICHECK_VERBOSE", "APICHECK_HEADER", "APICHECK_CC",
	} {
		t.Setenv(k, "")
	}
}

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "libtls.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCheckScenarios(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantDiag []string
	}{
		{
			name:     "baseline",
			body:     "symbols:\n  TLS_API: 20141031\n  TLS_WANT_POLLIN: -2\n  TLS_WANT_POLLOUT: -3\n",
			wantCode: 0,
		},
		{
			name:     "newer api",
			body:     "symbols:\n  TLS_API: 20200120\n  TLS_WANT_POLLIN: -2\n  TLS_WANT_POLLOUT: -3\n",
			wantCode: 0,
			wantDiag: []string{"warning: api_version: expected TLS_API == 20141031, observed 20200120 (advisory)"},
		},
		{
			name:     "read sentinel missing",
			body:     "symbols:\n  TLS_API: 20141031\n  TLS_WANT_POLLOUT: -3\n",
			wantCode: 1,
			wantDiag: []string{
				"error: poll_in_sentinel_defined: expected TLS_WANT_POLLIN defined, observed undefined (fatal)",
				"error: poll_in_sentinel_value: expected TLS_WANT_POLLIN == -2, observed undefined (fatal)",
			},
		},
		{
			name:     "read sentinel wrong",
			body:     "symbols:\n  TLS_API: 20141031\n  TLS_WANT_POLLIN: -100\n  TLS_WANT_POLLOUT: -3\n",
			wantCode: 1,
			wantDiag: []string{"error: poll_in_sentinel_value: expected TLS_WANT_POLLIN == -2, observed -100 (fatal)"},
		},
		{
			name:     "write sentinel missing",
			body:     "symbols:\n  TLS_API: 20141031\n  TLS_WANT_POLLIN: -2\n  TLS_WANT_POLLOUT: null\n",
			wantCode: 1,
			wantDiag: []string{
				"error: poll_out_sentinel_defined: expected TLS_WANT_POLLOUT defined, observed undefined (fatal)",
				"error: poll_out_sentinel_value: expected TLS_WANT_POLLOUT == -3, observed undefined (fatal)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSnapshot(t, tt.body)
			code, _, stderr := execute(t, "check", "--symbols", path)
			assert.Equal(t, tt.wantCode, code, stderr)

			var diags []string
			for _, line := range strings.Split(stderr, "\n") {
				if strings.HasPrefix(line, "warning: ") || strings.HasPrefix(line, "error: ") {
					diags = append(diags, line)
				}
			}
			for i := range diags {
				// Hints follow the fixed part of the line.
				diags[i], _, _ = strings.Cut(diags[i], ";")
			}
			assert.Equal(t, tt.wantDiag, diags)
		})
	}
}

func TestCheckSymbolsFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeSnapshot(t, "symbols:\n  TLS_API: 20141031\n")
	t.Setenv("APICHECK_SYMBOLS", path)

	code, _, stderr := execute(t, "check")
	assert.Equal(t, 1, code, stderr)
	assert.Contains(t, stderr, "poll_out_sentinel_value")
}

func TestCheckMissingSnapshot(t *testing.T) {
	clearEnv(t)
	code, _, stderr := execute(t, "check", "--symbols", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "read snapshot")
}

func TestCheckUnknownResolver(t *testing.T) {
	clearEnv(t)
	code, _, stderr := execute(t, "check", "--resolver", "magic")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown --resolver "magic"`)
}

func TestCheckSnapshotResolverNeedsFile(t *testing.T) {
	clearEnv(t)
	code, _, stderr := execute(t, "check", "--resolver", "snapshot")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "--symbols is required")
}

func TestCheckCgoResolverNotBuilt(t *testing.T) {
	if libtls.Available() {
		t.Skip("cgo resolver compiled in")
	}
	clearEnv(t)
	code, _, stderr := execute(t, "check", "--resolver", "cgo")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "cgo header resolver not built")
}

func TestCheckPreprocessorFailure(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "no-such-cc")
	code, _, stderr := execute(t, "check", "--resolver", "preproc", "--cc", missing)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "preprocessor failed")
}

func TestResolveWritesSnapshot(t *testing.T) {
	clearEnv(t)
	in := writeSnapshot(t, "symbols:\n  TLS_API: 20141031\n  TLS_WANT_POLLIN: -2\n  TLS_READ_AGAIN: -2\n")
	out := filepath.Join(t.TempDir(), "out.yaml")

	code, _, stderr := execute(t, "resolve", "--symbols", in, "--legacy", "--out", out)
	require.Equal(t, 0, code, stderr)

	snap, err := snapshot.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "snapshot "+in, snap.Source)
	assert.Equal(t, apicheck.Symbols{
		apicheck.SymbolAPI:         apicheck.Defined(20141031),
		apicheck.SymbolWantPollIn:  apicheck.Defined(-2),
		apicheck.SymbolWantPollOut: apicheck.Absent,
		apicheck.SymbolReadAgain:   apicheck.Defined(-2),
		apicheck.SymbolWriteAgain:  apicheck.Absent,
	}, snap.Symbols)
}

func TestRulesCommand(t *testing.T) {
	clearEnv(t)
	code, stdout, _ := execute(t, "rules")
	require.Equal(t, 0, code)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[1], "api_version")
	assert.Contains(t, lines[1], "warning")
	assert.Contains(t, lines[5], "TLS_WANT_POLLOUT == -3")
}

func TestVersionCommand(t *testing.T) {
	clearEnv(t)
	code, stdout, _ := execute(t, "version")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "TLS_API baseline 20141031")
}

// configure parses args and the environment the way a subcommand would see
// them.
func configure(t *testing.T, args ...string) *app {
	t.Helper()
	a := &app{v: viper.New(), stdout: io.Discard, stderr: io.Discard}
	cmd := &cobra.Command{Use: appName}
	addGlobalFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	require.NoError(t, a.init(cmd))
	return a
}

func TestChooseResolver(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		symbols  string
		header   bool
		cgoBuilt bool
		want     string
		wantErr  bool
	}{
		{"auto/snapshot wins", resolverAuto, "libtls.yaml", true, true, resolverSnapshot, false},
		{"auto/header with cgo built", resolverAuto, "", true, true, resolverPreproc, false},
		{"auto/header without cgo", resolverAuto, "", true, false, resolverPreproc, false},
		{"auto/cgo built", resolverAuto, "", false, true, resolverCgo, false},
		{"auto/nothing built", resolverAuto, "", false, false, resolverPreproc, false},
		{"cgo/plain", resolverCgo, "", false, true, resolverCgo, false},
		{"cgo/with header", resolverCgo, "", true, true, "", true},
		{"preproc/with header", resolverPreproc, "", true, true, resolverPreproc, false},
		{"snapshot", resolverSnapshot, "libtls.yaml", true, true, resolverSnapshot, false},
		{"unknown", "magic", "", false, true, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chooseResolver(tt.kind, tt.symbols, tt.header, tt.cgoBuilt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("chooseResolver() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("chooseResolver() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeaderConfigured(t *testing.T) {
	clearEnv(t)
	assert.False(t, configure(t).headerConfigured())
	assert.False(t, configure(t, "--cc", "clang").headerConfigured())
	assert.True(t, configure(t, "--include", "/opt/libressl/include").headerConfigured())
	assert.True(t, configure(t, "--header", "tls.h").headerConfigured())

	t.Setenv("LIBRESSL_INCLUDE", "/opt/libressl/include")
	assert.True(t, configure(t).headerConfigured())
}

func TestIncludeDirs(t *testing.T) {
	sep := string(filepath.ListSeparator)
	tests := []struct {
		name string
		env  string
		args []string
		want []string
	}{
		{"none", "", nil, nil},
		{"env with spaces", "/opt/my libressl/include", nil, []string{"/opt/my libressl/include"}},
		{"env list", "/opt/a" + sep + "/opt/b c", nil, []string{"/opt/a", "/opt/b c"}},
		{"env empty entries", sep + "/opt/a" + sep, nil, []string{"/opt/a"}},
		{"flags", "", []string{"--include", "/opt/a b", "--include", "/opt/c"}, []string{"/opt/a b", "/opt/c"}},
		{"flag overrides env", "/opt/env", []string{"--include", "/opt/flag"}, []string{"/opt/flag"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LIBRESSL_INCLUDE", tt.env)
			assert.Equal(t, tt.want, configure(t, tt.args...).includeDirs())
		})
	}
}

func TestPreprocessorFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIBRESSL_INCLUDE", "/opt/my libressl/include")
	t.Setenv("CC", "clang-17")

	_, desc, err := configure(t).resolver()
	require.NoError(t, err)
	assert.Equal(t, "clang-17 -E -P -I/opt/my libressl/include -x c -", desc)
}

func TestPreprocessorFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIBRESSL_INCLUDE", "/opt/env")
	t.Setenv("CC", "clang-17")

	_, desc, err := configure(t, "--cc", "gcc", "--include", "/opt/flag").resolver()
	require.NoError(t, err)
	assert.Equal(t, "gcc -E -P -I/opt/flag -x c -", desc)
}

func TestCheckCgoWithHeaderRejected(t *testing.T) {
	tests := []struct {
		name string
		env  string
		args []string
	}{
		{"include flag", "", []string{"--include", "/opt/libressl/include"}},
		{"header flag", "", []string{"--header", "libressl/tls.h"}},
		{"include env", "/opt/libressl/include", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LIBRESSL_INCLUDE", tt.env)
			args := append([]string{"check", "--resolver", "cgo"}, tt.args...)
			code, _, stderr := execute(t, args...)
			assert.Equal(t, 2, code)
			assert.Contains(t, stderr, "cannot be used with --resolver cgo")
		})
	}
}

// A configured include path must reach the preprocessor even in a binary
// with the cgo resolver compiled in.
func TestCheckIncludeUsesPreprocessor(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "no-such-cc")
	code, _, stderr := execute(t, "check", "--include", t.TempDir(), "--cc", missing)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "preprocessor failed")
	assert.Contains(t, stderr, missing)
}

func TestCheckCCFromEnv(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "cross-cc")
	t.Setenv("CC", missing)
	code, _, stderr := execute(t, "check", "--resolver", "preproc")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, missing)
}

func writeHeader(t *testing.T, dir, pollIn string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	header := "#define TLS_API 20141031\n" +
		"#define TLS_WANT_POLLIN " + pollIn + "\n" +
		"#define TLS_WANT_POLLOUT -3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tls.h"), []byte(header), 0o600))
}

func TestCheckAgainstHeader(t *testing.T) {
	if _, err := exec.LookPath(preproc.DefaultCC); err != nil {
		t.Skip("no C compiler on PATH")
	}
	tests := []struct {
		name     string
		pollIn   string
		viaEnv   bool
		wantCode int
		wantDiag string
	}{
		{"flag/diverged sentinel", "-100", false, 1, "observed -100 (fatal)"},
		{"env/diverged sentinel", "-100", true, 1, "observed -100 (fatal)"},
		{"env/matching header", "(-1-1)", true, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := filepath.Join(t.TempDir(), "my libressl", "include")
			writeHeader(t, dir, tt.pollIn)

			args := []string{"check"}
			if tt.viaEnv {
				t.Setenv("LIBRESSL_INCLUDE", dir)
			} else {
				args = append(args, "--include", dir)
			}
			code, _, stderr := execute(t, args...)
			assert.Equal(t, tt.wantCode, code, stderr)
			if tt.wantDiag != "" {
				assert.Contains(t, stderr, tt.wantDiag)
			} else {
				assert.NotContains(t, stderr, "error: ")
			}
		})
	}
}

type failingCloser struct {
	bytes.Buffer
}

func (failingCloser) Close() error { return errors.New("disk full") }

func TestResolveReportsCloseError(t *testing.T) {
	clearEnv(t)
	orig := createFile
	t.Cleanup(func() { createFile = orig })

	var created string
	createFile = func(name string) (io.WriteCloser, error) {
		created = name
		return &failingCloser{}, nil
	}

	in := writeSnapshot(t, "symbols:\n  TLS_API: 20141031\n")
	code, _, stderr := execute(t, "resolve", "--symbols", in, "--out", "libtls.yaml")
	assert.Equal(t, 2, code)
	assert.Equal(t, "libtls.yaml", created)
	assert.Contains(t, stderr, "close snapshot: disk full")
}
