package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"iptv/internal/alias"
	"iptv/internal/canon"
	"iptv/internal/fetch"
	"iptv/internal/logging"
	"iptv/internal/playlist"
	"iptv/internal/registry"
)

const (
	defaultConcurrency = 4
	defaultTimeout     = 10 * time.Second
)

// Deps wires the collaborators of a run.
type Deps struct {
	Registry    *registry.Registry
	Canon       *canon.Canonicalizer
	Aliases     alias.Map
	Fetcher     fetch.Fetcher
	Diagnostics *registry.Diagnostics
	Logger      *slog.Logger
	Concurrency int
	Timeout     time.Duration
}

// SourceResult describes how one source fared.
type SourceResult struct {
	URL     string
	Format  playlist.Format
	Bytes   int
	Entries int
	Skipped int
	Merged  int
	Elapsed time.Duration
	Err     error
}

// OK reports whether the source was fetched and parsed.
func (r SourceResult) OK() bool {
	return r.Err == nil
}

// Summary aggregates a run.
type Summary struct {
	Sources   []SourceResult
	Stats     registry.Stats
	Channels  int
	Populated int
	Elapsed   time.Duration
}

// Succeeded counts sources that were fetched and parsed.
func (s Summary) Succeeded() int {
	n := 0
	for _, r := range s.Sources {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed counts sources that could not be fetched or parsed.
func (s Summary) Failed() int {
	return len(s.Sources) - s.Succeeded()
}

// FailedURLs lists the URLs of failed sources in declaration order.
func (s Summary) FailedURLs() []string {
	var out []string
	for _, r := range s.Sources {
		if !r.OK() {
			out = append(out, r.URL)
		}
	}
	return out
}

// Pipeline is single use per registry.
type Pipeline struct {
	deps     Deps
	logger   *slog.Logger
	resolver *Resolver
}

// New validates defaults on deps.
func New(deps Deps) *Pipeline {
	if deps.Concurrency <= 0 {
		deps.Concurrency = defaultConcurrency
	}
	if deps.Timeout <= 0 {
		deps.Timeout = defaultTimeout
	}
	return &Pipeline{
		deps:     deps,
		logger:   logging.NewComponentLogger(deps.Logger, "pipeline"),
		resolver: NewResolver(deps.Aliases, deps.Canon, deps.Logger),
	}
}

type loaded struct {
	result  SourceResult
	entries []playlist.Entry
}

// Run fetches every source and merges them. Per-source failures are
// reported in the summary; only cancellation of ctx returns an error.
func (p *Pipeline) Run(ctx context.Context, sources []string) (Summary, error) {
	if p.deps.Registry == nil || p.deps.Canon == nil || p.deps.Fetcher == nil {
		return Summary{}, errors.New("pipeline: registry, canonicalizer and fetcher are required")
	}
	start := time.Now()
	p.logger.Info("aggregation started",
		logging.Int("sources", len(sources)),
		logging.Int("concurrency", p.deps.Concurrency),
	)

	results := make([]chan loaded, len(sources))
	for i := range results {
		results[i] = make(chan loaded, 1)
	}

	sem := make(chan struct{}, p.deps.Concurrency)
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(out chan<- loaded, src string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out <- loaded{result: SourceResult{URL: src, Err: ctx.Err()}}
				return
			}
			defer func() { <-sem }()
			out <- p.load(ctx, src)
		}(results[i], src)
	}

	summary := Summary{Sources: make([]SourceResult, 0, len(sources))}
	for i := range sources {
		res := <-results[i]
		if res.result.OK() && ctx.Err() == nil {
			res.result.Merged = p.mergeAll(sources[i], res.entries)
		}
		summary.Sources = append(summary.Sources, res.result)
		p.logResult(res.result)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		summary.Elapsed = time.Since(start)
		return summary, err
	}

	p.deps.Registry.Freeze()
	summary.Stats = p.deps.Registry.Stats()
	summary.Channels, summary.Populated = p.deps.Registry.Channels()
	summary.Elapsed = time.Since(start)

	p.logger.Info("aggregation complete",
		logging.Int("succeeded", summary.Succeeded()),
		logging.Int("failed", summary.Failed()),
		logging.Int("channels", summary.Channels),
		logging.Int("populated", summary.Populated),
		logging.Int("records", summary.Stats.Created),
		logging.Int("unknown", summary.Stats.Unknown),
		logging.Int("denied", summary.Stats.Denied),
		logging.Duration("elapsed", summary.Elapsed),
	)
	if failed := summary.FailedURLs(); len(failed) > 0 {
		logging.WarnWithContext(p.logger, "some sources failed", "sources_failed",
			logging.Any("urls", failed),
			logging.String(logging.FieldErrorHint, "check the URLs in sources.urls or raise sources.request_timeout"),
			logging.String(logging.FieldImpact, "channels from those sources are missing"),
		)
	}
	return summary, nil
}

// load fetches and parses one source. It never touches the registry.
func (p *Pipeline) load(ctx context.Context, src string) loaded {
	start := time.Now()
	res := loaded{result: SourceResult{URL: src}}

	// Rate limiting happens before the per-source timeout starts.
	if pacer, ok := p.deps.Fetcher.(fetch.Pacer); ok {
		paced, err := pacer.Wait(ctx, src)
		if err != nil {
			res.result.Err = err
			res.result.Elapsed = time.Since(start)
			return res
		}
		ctx = paced
	}
	ctx, cancel := context.WithTimeout(ctx, p.deps.Timeout)
	defer cancel()

	data, err := p.deps.Fetcher.Fetch(logging.WithSource(ctx, src), src)
	if err != nil {
		res.result.Err = err
		res.result.Elapsed = time.Since(start)
		return res
	}
	res.result.Bytes = len(data)

	parser := playlist.NewParser(bytes.NewReader(data), playlist.FormatAuto, p.deps.Logger)
	for entry := range parser.All() {
		res.entries = append(res.entries, entry)
	}
	res.result.Format = parser.Format()
	res.result.Entries = len(res.entries)
	res.result.Skipped = parser.Skipped()
	if err := parser.Err(); err != nil {
		res.result.Err = fmt.Errorf("parse %s: %w", src, err)
		res.entries = nil
	}
	res.result.Elapsed = time.Since(start)
	return res
}

func (p *Pipeline) mergeAll(src string, entries []playlist.Entry) int {
	merged := 0
	for _, entry := range entries {
		name := p.Resolve(entry.Name)
		p.deps.Diagnostics.Observe(entry.Name, name, src, entry.URI)

		outcome, err := p.deps.Registry.Merge(name, entry.URI)
		if err != nil {
			if errors.Is(err, registry.ErrFrozen) {
				return merged
			}
			continue
		}
		if outcome == registry.OutcomeCreated || outcome == registry.OutcomeUpdated {
			merged++
		}
	}
	return merged
}

// Resolve maps a raw source name to its catalog key.
func (p *Pipeline) Resolve(raw string) string {
	return p.resolver.Resolve(raw)
}

func (p *Pipeline) logResult(r SourceResult) {
	if r.OK() {
		p.logger.Info("source loaded",
			logging.String(logging.FieldSource, r.URL),
			logging.String("format", r.Format.String()),
			logging.Int("entries", r.Entries),
			logging.Int("merged", r.Merged),
			logging.Duration("elapsed", r.Elapsed),
		)
		return
	}
	logging.WarnWithContext(p.logger, "source skipped", "source_fetch_failed",
		logging.String(logging.FieldSource, r.URL),
		logging.Error(r.Err),
		logging.String(logging.FieldErrorHint, "verify the source is reachable"),
		logging.String(logging.FieldImpact, "this source contributes no channels"),
	)
}
