package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"iptv/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs or show one run's sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("run history is disabled (history.enabled = false)")
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			style := tableStyleFor(out)

			if runID != "" {
				run, err := store.Get(cmd.Context(), runID)
				if err != nil {
					return err
				}
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderStatusLine("Run", statusInfo, run.ID, colorize))
				fmt.Fprintln(out, renderStatusLine("Status", statusForRun(run.Status), string(run.Status), colorize))
				fmt.Fprintln(out, renderStatusLine("Started", statusInfo, run.StartedAt.Local().Format(time.DateTime), colorize))
				fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, formatElapsed(run.Duration()), colorize))
				if run.ErrorMessage != "" {
					fmt.Fprintln(out, renderStatusLine("Error", statusError, run.ErrorMessage, colorize))
				}
				rows := make([][]string, 0, len(run.Sources))
				for _, src := range run.Sources {
					status := "ok"
					if src.Failed() {
						status = src.ErrorMessage
					}
					rows = append(rows, []string{
						strconv.Itoa(src.Position + 1),
						src.URL,
						src.Format,
						strconv.Itoa(src.Entries),
						strconv.Itoa(src.Merged),
						formatElapsed(src.Elapsed),
						status,
					})
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable(
						[]string{"#", "Source", "Format", "Entries", "Merged", "Elapsed", "Status"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
						style,
					))
				}
				return nil
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format(time.DateTime),
					string(run.Status),
					fmt.Sprintf("%d/%d", run.SourcesTotal-run.SourcesFailed, run.SourcesTotal),
					fmt.Sprintf("%d/%d", run.Populated, run.Channels),
					strconv.Itoa(run.Created + run.Updated),
					formatElapsed(run.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Status", "Sources", "Channels", "Merged", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				style,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the sources of one run")
	return cmd
}

func statusForRun(status history.Status) statusKind {
	switch status {
	case history.StatusCompleted:
		return statusOK
	case history.StatusPartial:
		return statusWarn
	case history.StatusFailed:
		return statusError
	default:
		return statusInfo
	}
}
