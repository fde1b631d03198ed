package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/telos-tls/apicheck/internal/libtls"
	"github.com/telos-tls/apicheck/pkg/apicheck"
	"github.com/telos-tls/apicheck/pkg/apicheck/logging"
	"github.com/telos-tls/apicheck/pkg/apicheck/preproc"
	"github.com/telos-tls/apicheck/pkg/apicheck/snapshot"
)

const (
	flagResolver = "resolver"
	flagSymbols  = "symbols"
	flagInclude  = "include"
	flagCC       = "cc"
	flagHeader   = "header"
	flagVerbose  = "verbose"

	keyIncludeEnv = "include-env"

	resolverAuto     = "auto"
	resolverCgo      = "cgo"
	resolverPreproc  = "preproc"
	resolverSnapshot = "snapshot"
)

// app holds what every subcommand needs once flags and environment are read.
type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
	log    logging.Logger

	include []string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   appName,
		Short: "Check that the installed libtls header matches the API the bindings expect",
		Long: `
libtls-apicheck reads TLS_API, TLS_WANT_POLLIN and TLS_WANT_POLLOUT from the
libtls header visible to the C toolchain and compares them with the values
the Go bindings were written against. A wrong sentinel value stops the build;
an unexpected TLS_API only prints an advisory.

LIBRESSL_INCLUDE and CC are honoured when --include and --cc are not given.
Naming a header or search path always selects the preprocessor resolver; a
cgo-built binary only ever sees the header it was compiled against.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	addGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		newCheckCmd(a),
		newResolveCmd(a),
		newRulesCmd(a),
		newVersionCmd(a),
	)
	return root
}

func addGlobalFlags(pf *pflag.FlagSet) {
	pf.String(flagResolver, resolverAuto, "symbol source: auto, cgo, preproc or snapshot")
	pf.String(flagSymbols, "", "YAML snapshot to read symbols from (implies --resolver snapshot)")
	pf.StringArray(flagInclude, nil, "header search path for the preprocessor (repeatable; selects the preprocessor in auto mode)")
	pf.String(flagCC, preproc.DefaultCC, "C compiler driver used for preprocessing")
	pf.String(flagHeader, preproc.DefaultHeader, "header to include (selects the preprocessor in auto mode)")
	pf.BoolP(flagVerbose, "v", false, "log every rule result")
}

func (a *app) init(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	a.v.SetEnvPrefix("APICHECK")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	// Names used by the libtls bindings' own build scripts.
	if err := a.v.BindEnv(keyIncludeEnv, "LIBRESSL_INCLUDE"); err != nil {
		return err
	}
	if err := a.v.BindEnv(flagCC, "CC"); err != nil {
		return err
	}

	include, err := cmd.Flags().GetStringArray(flagInclude)
	if err != nil {
		return err
	}
	a.include = include

	a.log = logging.NewText(a.stderr, a.v.GetBool(flagVerbose)).With("component", appName)
	return nil
}

// includeDirs returns the header search path. A value from the environment
// is one path list, split only on the OS list separator, so directories may
// contain spaces. Each --include flag is likewise a path list.
func (a *app) includeDirs() []string {
	var entries []string
	if len(a.include) > 0 {
		entries = a.include
	} else if env := a.v.GetString(keyIncludeEnv); env != "" {
		entries = []string{env}
	}

	var dirs []string
	for _, entry := range entries {
		for _, dir := range filepath.SplitList(entry) {
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// headerConfigured reports whether the operator named a header or search
// path, by flag or environment.
func (a *app) headerConfigured() bool {
	return len(a.include) > 0 || a.v.GetString(keyIncludeEnv) != "" || a.v.IsSet(flagHeader)
}

// chooseResolver settles "auto" and rejects combinations where the cgo
// resolver would silently check a different header than the one requested:
// its header was fixed when the binary was built.
func chooseResolver(kind, symbols string, headerConfigured, cgoBuilt bool) (string, error) {
	switch kind {
	case resolverAuto:
		switch {
		case symbols != "":
			return resolverSnapshot, nil
		case headerConfigured:
			return resolverPreproc, nil
		case cgoBuilt:
			return resolverCgo, nil
		default:
			return resolverPreproc, nil
		}
	case resolverCgo:
		if headerConfigured {
			return "", fmt.Errorf("--%s/--%s (or LIBRESSL_INCLUDE) cannot be used with --%s %s: "+
				"the cgo resolver reads the header it was built against; use --%s %s",
				flagInclude, flagHeader, flagResolver, resolverCgo, flagResolver, resolverPreproc)
		}
		return kind, nil
	case resolverPreproc, resolverSnapshot:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown --%s %q (want %s, %s, %s or %s)",
			flagResolver, kind, resolverAuto, resolverCgo, resolverPreproc, resolverSnapshot)
	}
}

// resolver picks the symbol source. It also returns a short description for
// logs and snapshot headers.
func (a *app) resolver() (apicheck.Resolver, string, error) {
	symbols := a.v.GetString(flagSymbols)
	kind, err := chooseResolver(a.v.GetString(flagResolver), symbols, a.headerConfigured(), libtls.Available())
	if err != nil {
		return nil, "", err
	}

	switch kind {
	case resolverSnapshot:
		if symbols == "" {
			return nil, "", fmt.Errorf("--%s is required with --%s %s", flagSymbols, flagResolver, resolverSnapshot)
		}
		snap, err := snapshot.Load(symbols)
		if err != nil {
			return nil, "", err
		}
		return snapshot.NewResolver(snap), "snapshot " + symbols, nil
	case resolverCgo:
		return libtls.NewResolver(), "cgo <tls.h>", nil
	default:
		r := preproc.New(preproc.Config{
			CC:          a.v.GetString(flagCC),
			IncludeDirs: a.includeDirs(),
			Header:      a.v.GetString(flagHeader),
		})
		return r, strings.Join(r.Command(), " "), nil
	}
}
