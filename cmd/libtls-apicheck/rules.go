package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/telos-tls/apicheck/internal/libtls"
	"github.com/telos-tls/apicheck/pkg/apicheck"
)

func newRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the baseline rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tEXPECT\tSEVERITY")
			for _, r := range apicheck.BaselineRules() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Expect.Describe(r.Symbol), r.Severity)
			}
			return tw.Flush()
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tool version and the TLS_API baseline",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintf(a.stdout, "%s %s (TLS_API baseline %d, cgo resolver %t)\n",
				appName, apicheck.ToolVersion(), apicheck.BaselineAPI(), libtls.Available())
			return err
		},
	}
}
