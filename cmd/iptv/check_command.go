package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"iptv/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var skipSources bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify paths and source reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{ProbeSources: !skipSources})

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipSources, "skip-sources", false, "Do not probe playlist sources")
	return cmd
}
