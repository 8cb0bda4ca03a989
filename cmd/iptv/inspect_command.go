package main

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"iptv/internal/playlist"
	"iptv/internal/registry"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		formatFlag string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "inspect <url|file>",
		Short: "Parse one source and show the channel tuples it yields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			hint, err := playlist.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			eng, err := newEngine(cfg, logger, time.Duration(cfg.Sources.RequestTimeout)*time.Second)
			if err != nil {
				return err
			}

			data, err := eng.fetcher.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			parser := playlist.NewParser(bytes.NewReader(data), hint, logger)

			var (
				rows  [][]string
				total int
				known int
			)
			for entry := range parser.All() {
				total++
				resolved := eng.resolver.Resolve(entry.Name)
				inCatalog := eng.catalog.Has(resolved)
				if inCatalog {
					known++
				}
				if limit > 0 && len(rows) >= limit {
					continue
				}
				uri, _, uriErr := registry.NormalizeURI(entry.URI)
				if uriErr != nil {
					uri = "invalid: " + entry.URI
				}
				rows = append(rows, []string{entry.Category, entry.Name, resolved, yesNo(inCatalog), uri})
			}
			if err := parser.Err(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable(
					[]string{"Category", "Name", "Resolved", "Catalog", "URI"},
					rows, nil, tableStyleFor(out),
				))
			}
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Format", statusInfo, parser.Format().String(), colorize))
			fmt.Fprintln(out, renderStatusLine("Tuples", statusInfo,
				fmt.Sprintf("%d parsed, %d skipped lines", total, parser.Skipped()), colorize))
			kind := statusOK
			if known == 0 {
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("In catalog", kind, strconv.Itoa(known), colorize))
			return nil
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "auto", "Source format: auto, m3u or txt")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to print; 0 prints all")
	return cmd
}
