package preflight

import (
	"context"
	"net/http"

	"iptv/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options tune RunAll.
type Options struct {
	// ProbeSources issues a HEAD request against each configured source.
	ProbeSources bool
	Client       *http.Client
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableFile("Channel file", cfg.Paths.ChannelFile),
		CheckDirectoryAccess("Dist directory", cfg.Paths.DistDir),
		CheckDirectoryAccess("Tmp directory", cfg.Paths.TmpDir),
	}
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.EPG.MapFile != "" {
		results = append(results, CheckOptionalFile("EPG name map", cfg.EPG.MapFile))
	}

	if opts.ProbeSources {
		for _, url := range cfg.Sources.URLs {
			results = append(results, CheckSource(ctx, opts.Client, url, cfg.Sources.UserAgent))
		}
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
