package main

import (
	"fmt"
	"maps"
	"time"

	"github.com/spf13/cobra"

	"iptv/internal/epg"
	"iptv/internal/logging"
	"iptv/internal/notifications"
)

func newEPGCommand(ctx *commandContext) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "epg",
		Short: "Fetch the program guide and keep only catalog channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			eng, err := newEngine(cfg, logger, time.Duration(cfg.EPG.Timeout)*time.Second)
			if err != nil {
				return err
			}

			nameMap, err := epg.LoadNameMap(cfg.EPG.MapFile)
			if err != nil {
				return err
			}
			// Config entries override the map file.
			maps.Copy(nameMap, cfg.EPG.Aliases)

			if source == "" {
				source = cfg.EPG.Source
			}
			runner := epg.New(eng.fetcher, eng.catalog, eng.resolver, epg.Options{
				Source:  source,
				DistDir: cfg.Paths.DistDir,
				NameMap: nameMap,
				Gzip:    cfg.EPG.Gzip,
				Logger:  logger,
			})
			notifier := notifications.NewService(cfg)
			result, err := runner.Run(cmd.Context())
			if err != nil {
				if notifyErr := notifier.NotifyError(cmd.Context(), err, "epg"); notifyErr != nil {
					logger.Warn("notification failed", logging.Error(notifyErr))
				}
				return err
			}
			if err := notifier.NotifyEPGCompleted(cmd.Context(), result.Channels, result.Programmes); err != nil {
				logger.Warn("notification failed", logging.Error(err))
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Guide channels", statusOK,
				fmt.Sprintf("%d kept, %d dropped", result.Channels, result.Dropped), colorize))
			fmt.Fprintln(out, renderStatusLine("Programmes", statusOK, fmt.Sprint(result.Programmes), colorize))
			if len(result.Missing) > 0 {
				fmt.Fprintln(out, renderStatusLine("Without guide", statusWarn,
					fmt.Sprintf("%d catalog channels", len(result.Missing)), colorize))
			}
			for _, path := range result.Files {
				fmt.Fprintln(out, renderStatusLine("Wrote", statusOK, path, colorize))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Override the configured XMLTV source")
	return cmd
}
