package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"iptv/internal/config"
	"iptv/internal/export"
	"iptv/internal/fetch"
	"iptv/internal/history"
	"iptv/internal/logging"
	"iptv/internal/notifications"
	"iptv/internal/pipeline"
	"iptv/internal/policy"
	"iptv/internal/preflight"
	"iptv/internal/registry"
)

const diagnosticsLogPattern = "iptv-*.debug.log"

type runOptions struct {
	diagnostics bool
	dryRun      bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch every source, merge and export the playlists",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runAggregation(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.diagnostics, "diagnostics", false, "Track raw source names and write source.json plus a debug log")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Merge and report without writing playlist files")
	return cmd
}

func runAggregation(ctx context.Context, cfg *config.Config, opts runOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := history.NewRunID()
	ctx = logging.WithRunID(ctx, runID)
	started := time.Now()

	baseLogger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	diagnostics := opts.diagnostics || cfg.Diagnostics.Enabled
	logDir := cfg.Paths.LogDir
	if logDir == "" {
		logDir = cfg.Paths.TmpDir
	}
	var keep []string
	if diagnostics {
		handler, path, closeLog, err := logging.NewDiagnosticsHandler(logDir, runID)
		if err != nil {
			return err
		}
		defer func() { _ = closeLog() }()
		baseLogger = logging.TeeLogger(baseLogger, handler)
		keep = append(keep, path)
	}
	logger := logging.WithContext(ctx, baseLogger)
	logging.CleanupOldLogs(logger, logDir, diagnosticsLogPattern, cfg.Logging.RetentionDays, keep...)

	notifier := notifications.NewService(cfg)
	fail := func(stage string, err error) error {
		if notifyErr := notifier.NotifyError(ctx, err, stage); notifyErr != nil {
			logger.Warn("notification failed", logging.Error(notifyErr))
		}
		return err
	}

	if failed := preflight.Failed(preflight.RunAll(ctx, cfg, preflight.Options{})); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		return fail("preflight", fmt.Errorf("preflight failed: %s", strings.Join(details, "; ")))
	}

	timeout := time.Duration(cfg.Sources.RequestTimeout) * time.Second
	eng, err := newEngine(cfg, logger, timeout)
	if err != nil {
		return fail("setup", err)
	}

	filter := policy.New(cfg.Policy.Deny, cfg.Policy.Allow, cfg.Policy.AllowBonus)
	reg := registry.New(eng.catalog, filter, registry.WithLogger(logger))
	var diag *registry.Diagnostics
	if diagnostics {
		diag = registry.NewDiagnostics()
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.Int("sources", len(cfg.Sources.URLs)),
		logging.Int("channels", eng.catalog.Len()),
		logging.Bool("diagnostics", diagnostics),
		logging.Bool("dry_run", opts.dryRun),
	)

	p := pipeline.New(pipeline.Deps{
		Registry:    reg,
		Canon:       eng.canon,
		Aliases:     aliasMap(cfg),
		Fetcher:     eng.fetcher,
		Diagnostics: diag,
		Logger:      logger,
		Concurrency: cfg.Sources.Concurrency,
		Timeout:     timeout,
	})
	summary, err := p.Run(ctx, cfg.Sources.URLs)
	if err != nil {
		return err
	}

	view := export.BuildView(eng.catalog, reg, export.ViewOptions{
		Limit:    cfg.Channels.Limit,
		IPv4Only: !cfg.Channels.ExportIPv6,
	})

	var exported export.Result
	if !opts.dryRun {
		var raw *export.RawView
		if diag != nil {
			rv := export.BuildRawView(diag)
			raw = &rv
		}
		exporter := export.New(export.Options{
			DistDir: cfg.Paths.DistDir,
			TmpDir:  cfg.Paths.TmpDir,
			M3U:     cfg.Export.M3U,
			TXT:     cfg.Export.TXT,
			JSON:    cfg.Export.JSON,
			Decorations: export.Decorations{
				LogoURLPrefix: cfg.Export.LogoURLPrefix,
				CategoryLogos: cfg.Export.CategoryLogos,
				EPGURLs:       cfg.Export.EPGURLs,
				DisableInfo:   cfg.Export.DisableInfo,
				InfoURL:       cfg.Export.InfoURL,
				Now:           started,
			},
			Logger: logger,
		})
		exported, err = exporter.Write(ctx, view, raw)
		if err != nil {
			recordRun(ctx, cfg, logger, runID, started, summary, err)
			return fail("export", err)
		}
	}

	if empty := view.Empty(); len(empty) > 0 {
		logger.Info("channels without streams",
			logging.String(logging.FieldEventType, "channels_empty"),
			logging.Int("count", len(empty)),
			logging.String("channels", strings.Join(empty, ", ")),
		)
	}

	recordRun(ctx, cfg, logger, runID, started, summary, nil)

	report := notifications.RunReport{
		Channels:      summary.Channels,
		Populated:     summary.Populated,
		Streams:       view.Streams(),
		SourcesTotal:  len(summary.Sources),
		SourcesFailed: summary.Failed(),
		FailedURLs:    summary.FailedURLs(),
		Duration:      time.Since(started),
		DryRun:        opts.dryRun,
	}
	if err := notifier.NotifyRunCompleted(ctx, report); err != nil {
		logger.Warn("notification failed", logging.Error(err))
	}

	printRunSummary(out, runID, summary, view, exported)
	return nil
}

func runStatus(summary pipeline.Summary, err error) history.Status {
	switch {
	case err != nil:
		return history.StatusFailed
	case len(summary.Sources) > 0 && summary.Succeeded() == 0:
		return history.StatusFailed
	case summary.Failed() > 0:
		return history.StatusPartial
	default:
		return history.StatusCompleted
	}
}

func recordRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, runID string, started time.Time, summary pipeline.Summary, runErr error) {
	if !cfg.History.Enabled {
		return
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the history database if the schema changed"),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
		return
	}
	defer store.Close()

	run := history.Run{
		ID:            runID,
		StartedAt:     started,
		FinishedAt:    time.Now(),
		Status:        runStatus(summary, runErr),
		SourcesTotal:  len(summary.Sources),
		SourcesFailed: summary.Failed(),
		Channels:      summary.Channels,
		Populated:     summary.Populated,
		Created:       summary.Stats.Created,
		Updated:       summary.Stats.Updated,
		Unknown:       summary.Stats.Unknown,
		Denied:        summary.Stats.Denied,
		Invalid:       summary.Stats.Invalid,
	}
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	for i, src := range summary.Sources {
		result := history.SourceResult{
			Position: i,
			URL:      src.URL,
			Entries:  src.Entries,
			Merged:   src.Merged,
			Elapsed:  src.Elapsed,
		}
		if src.OK() {
			result.Format = src.Format.String()
		} else {
			result.ErrorMessage = src.Err.Error()
		}
		run.Sources = append(run.Sources, result)
	}

	// History is best effort; a locked or full disk must not fail the run.
	recordCtx := context.WithoutCancel(ctx)
	if err := store.Record(recordCtx, run); err != nil {
		logger.Warn("history record failed", logging.Error(err))
		return
	}
	if removed, err := store.Prune(recordCtx, cfg.History.KeepRuns); err != nil {
		logger.Warn("history prune failed", logging.Error(err))
	} else if removed > 0 {
		logger.Debug("history pruned", logging.Int64("removed", removed))
	}
}

func printRunSummary(out io.Writer, runID string, summary pipeline.Summary, view export.View, exported export.Result) {
	rows := make([][]string, 0, len(summary.Sources))
	for _, src := range summary.Sources {
		status := "ok"
		format := src.Format.String()
		if !src.OK() {
			status = describeSourceError(src.Err)
			format = "-"
		}
		rows = append(rows, []string{
			src.URL,
			format,
			strconv.Itoa(src.Entries),
			strconv.Itoa(src.Merged),
			formatElapsed(src.Elapsed),
			status,
		})
	}
	style := tableStyleFor(out)
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Source", "Format", "Entries", "Merged", "Elapsed", "Status"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			style,
		))
	}

	colorize := shouldColorize(out)
	stats := summary.Stats
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, runID, colorize))
	channelKind := statusOK
	if summary.Populated < summary.Channels {
		channelKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Channels", channelKind,
		fmt.Sprintf("%d/%d populated, %d streams", summary.Populated, summary.Channels, view.Streams()), colorize))
	fmt.Fprintln(out, renderStatusLine("Merges", statusInfo,
		fmt.Sprintf("%d new, %d repeat, %d unknown, %d denied, %d invalid",
			stats.Created, stats.Updated, stats.Unknown, stats.Denied, stats.Invalid), colorize))
	sourceKind := statusOK
	if summary.Failed() > 0 {
		sourceKind = statusWarn
		if summary.Succeeded() == 0 {
			sourceKind = statusError
		}
	}
	fmt.Fprintln(out, renderStatusLine("Sources", sourceKind,
		fmt.Sprintf("%d ok, %d failed", summary.Succeeded(), summary.Failed()), colorize))
	if len(exported.Files) == 0 {
		fmt.Fprintln(out, renderStatusLine("Export", statusInfo, "skipped", colorize))
		return
	}
	for _, path := range exported.Files {
		fmt.Fprintln(out, renderStatusLine("Wrote", statusOK, path, colorize))
	}
}

func describeSourceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var fetchErr *fetch.SourceFetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		return "HTTP " + strconv.Itoa(fetchErr.StatusCode)
	}
	msg := []rune(err.Error())
	if len(msg) > 60 {
		return string(msg[:57]) + "..."
	}
	return string(msg)
}
