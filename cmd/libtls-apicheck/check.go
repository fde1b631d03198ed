package main

import (
	"github.com/spf13/cobra"

	"github.com/telos-tls/apicheck/pkg/apicheck"
	"github.com/telos-tls/apicheck/pkg/apicheck/logging"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluate the baseline rules and fail on a fatal mismatch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			r, desc, err := a.resolver()
			if err != nil {
				return err
			}
			logging.Debug(ctx, a.log, "resolving symbols", "resolver", desc)

			rep, err := apicheck.Check(ctx, r, apicheck.BaselineRules())
			if err != nil {
				return err
			}
			if _, err := rep.WriteTo(a.stderr); err != nil {
				return err
			}
			logging.Results(ctx, a.log, rep)

			if code := rep.ExitCode(); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
}
