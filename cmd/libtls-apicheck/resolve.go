package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/telos-tls/apicheck/pkg/apicheck"
	"github.com/telos-tls/apicheck/pkg/apicheck/logging"
	"github.com/telos-tls/apicheck/pkg/apicheck/snapshot"
)

// createFile opens the snapshot output; tests replace it.
var createFile = func(name string) (io.WriteCloser, error) {
	return os.Create(name) // #nosec G304 -- output path chosen by the operator
}

// writeSnapshotFile reports a failed Close as well, since a short write may
// only surface there.
func writeSnapshotFile(path string, snap snapshot.Snapshot) (err error) {
	f, err := createFile(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close snapshot: %w", cerr)
		}
	}()
	return snapshot.Encode(f, snap)
}

func newResolveCmd(a *app) *cobra.Command {
	var (
		out    string
		legacy bool
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Write the resolved symbol values as a YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			r, desc, err := a.resolver()
			if err != nil {
				return err
			}
			names := apicheck.SymbolNames(apicheck.BaselineRules())
			if legacy {
				names = append(names, apicheck.SymbolReadAgain, apicheck.SymbolWriteAgain)
			}
			syms, err := r.Resolve(ctx, names)
			if err != nil {
				return fmt.Errorf("resolve symbols: %w", err)
			}
			for _, name := range names {
				logging.Debug(ctx, a.log, "resolved", logging.Symbol(name, syms.Lookup(name)))
			}

			snap := snapshot.Snapshot{Source: desc, Symbols: syms}
			if out == "" {
				return snapshot.Encode(a.stdout, snap)
			}
			return writeSnapshotFile(out, snap)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the snapshot to this file instead of stdout")
	cmd.Flags().BoolVar(&legacy, "legacy", false, "also record TLS_READ_AGAIN and TLS_WRITE_AGAIN")
	return cmd
}
