package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"iptv/internal/canon"
	"iptv/internal/catalog"
	"iptv/internal/logging"
	"iptv/internal/pipeline"
)

func newCanonCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "canon <name>...",
		Short: "Show how channel names are canonicalized and resolved",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			canonicalizer, err := canon.New()
			if err != nil {
				return err
			}
			resolver := pipeline.NewResolver(aliasMap(cfg), canonicalizer, logging.NewNop())

			// The catalog column is informational; a missing channel file
			// should not stop anyone from checking a name.
			cat, catErr := catalog.Load(cfg.Paths.ChannelFile)

			out := cmd.OutOrStdout()
			style := tableStyleFor(out)
			rows := make([][]string, 0, len(args))
			for _, name := range args {
				tr := canonicalizer.Trace(name)
				resolved := resolver.Resolve(name)
				category := "-"
				if catErr == nil {
					if c, ok := cat.CategoryOf(resolved); ok {
						category = c
					}
				}
				rows = append(rows, []string{name, tr.Family.String(), tr.Output, resolved, category})

				if verbose {
					steps := make([][]string, 0, len(tr.Steps))
					for _, step := range tr.Steps {
						steps = append(steps, []string{step.Stage, step.Output})
					}
					fmt.Fprintf(out, "%s\n", name)
					fmt.Fprintln(out, renderTable([]string{"Stage", "Output"}, steps, nil, style))
				}
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Input", "Family", "Canonical", "Resolved", "Category"},
				rows, nil, style,
			))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every intermediate step")
	return cmd
}
