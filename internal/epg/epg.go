package epg

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"iptv/internal/catalog"
	"iptv/internal/fetch"
	"iptv/internal/fileutil"
	"iptv/internal/logging"
)

const (
	XMLFile   = "epg.xml"
	GzipFile  = "epg.xml.gz"
	dateStamp = "20060102150405 -0700"
)

var (
	infoNameKeys = []string{"generator-info-name", "info-name", "source-info-name"}
	infoURLKeys  = []string{"generator-info-url", "info-url", "source-info-url"}
)

// knownSwappedHost publishes its guide with name and url attributes reversed.
const knownSwappedHost = "epg.51zmt.top"

// Resolver maps a guide display name onto a catalog key.
type Resolver interface {
	Resolve(name string) string
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(string) string

func (f ResolverFunc) Resolve(name string) string { return f(name) }

// Options configures a guide run.
type Options struct {
	Source        string
	DistDir       string
	NameMap       map[string]string
	Gzip          bool
	GeneratorName string
	GeneratorURL  string
	Now           func() time.Time
	Logger        *slog.Logger
}

// Result summarizes a guide run.
type Result struct {
	Channels   int
	Programmes int
	Dropped    int
	Missing    []string
	Files      []string
}

// Runner fetches, normalizes and writes the guide.
type Runner struct {
	fetcher  fetch.Fetcher
	cat      *catalog.Catalog
	resolver Resolver
	opts     Options
	logger   *slog.Logger
}

func New(fetcher fetch.Fetcher, cat *catalog.Catalog, resolver Resolver, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.GeneratorName == "" {
		opts.GeneratorName = "iptv"
	}
	return &Runner{
		fetcher:  fetcher,
		cat:      cat,
		resolver: resolver,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "epg"),
	}
}

// Run fetches the configured source and writes epg.xml (and epg.xml.gz).
func (r *Runner) Run(ctx context.Context) (Result, error) {
	data, err := r.fetcher.Fetch(ctx, r.opts.Source)
	if err != nil {
		return Result{}, err
	}
	r.logger.Info("guide fetched",
		logging.String(logging.FieldSource, r.opts.Source),
		logging.Int("bytes", len(data)),
	)
	doc, err := Decode(data)
	if err != nil {
		return Result{}, err
	}

	result := r.Normalize(doc)
	if len(result.Missing) > 0 {
		r.logger.Info("catalog channels without guide",
			logging.Int("count", len(result.Missing)),
			logging.String("channels", strings.Join(result.Missing, ", ")),
		)
	}

	xmlPath := filepath.Join(r.opts.DistDir, XMLFile)
	if err := fileutil.WriteAtomic(xmlPath, 0o644, doc.Encode); err != nil {
		return result, fmt.Errorf("write %s: %w", XMLFile, err)
	}
	result.Files = append(result.Files, xmlPath)

	if r.opts.Gzip {
		gzPath := filepath.Join(r.opts.DistDir, GzipFile)
		err := fileutil.WriteAtomic(gzPath, 0o644, func(w io.Writer) error {
			zw := gzip.NewWriter(w)
			if err := doc.Encode(zw); err != nil {
				return err
			}
			return zw.Close()
		})
		if err != nil {
			return result, fmt.Errorf("write %s: %w", GzipFile, err)
		}
		result.Files = append(result.Files, gzPath)
	}

	r.logger.Info("guide written",
		logging.Int("channels", result.Channels),
		logging.Int("programmes", result.Programmes),
		logging.Int("dropped_channels", result.Dropped),
	)
	return result, nil
}

// Normalize renames channels, drops everything outside the catalog and
// rewrites the root attributes. It mutates doc in place.
func (r *Runner) Normalize(doc *Document) Result {
	var result Result
	kept := make(map[string]struct{})
	named := make(map[string]struct{})

	channels := doc.Channels[:0]
	for _, ch := range doc.Channels {
		name := ch.Name()
		target := r.rename(name)
		if target != name && len(ch.DisplayNames) > 0 {
			r.logger.Debug("guide channel renamed",
				logging.String("from", name),
				logging.String("to", target),
			)
			ch.DisplayNames[0].Value = target
		}
		if !r.cat.Has(target) {
			result.Dropped++
			continue
		}
		kept[ch.ID] = struct{}{}
		named[target] = struct{}{}
		channels = append(channels, ch)
	}
	doc.Channels = channels

	programmes := doc.Programmes[:0]
	for _, p := range doc.Programmes {
		if _, ok := kept[p.Channel]; ok {
			programmes = append(programmes, p)
		}
	}
	doc.Programmes = programmes

	for _, name := range r.cat.Declared() {
		if _, ok := named[name]; !ok {
			result.Missing = append(result.Missing, name)
		}
	}

	r.rewriteRoot(doc)
	result.Channels = len(doc.Channels)
	result.Programmes = len(doc.Programmes)
	return result
}

func (r *Runner) rename(name string) string {
	if to, ok := r.opts.NameMap[name]; ok {
		return to
	}
	if r.resolver == nil {
		return name
	}
	return r.resolver.Resolve(name)
}

func (r *Runner) rewriteRoot(doc *Document) {
	infoName := doc.Attr(infoNameKeys...)
	infoURL := doc.Attr(infoURLKeys...)
	if strings.Contains(infoName, knownSwappedHost) || strings.Contains(infoURL, knownSwappedHost) {
		infoName, infoURL = infoURL, infoName
	}
	if infoURL == "" {
		infoURL = r.opts.Source
	}

	attrs := []xml.Attr{
		{Name: xml.Name{Local: "date"}, Value: r.opts.Now().UTC().Format(dateStamp)},
		{Name: xml.Name{Local: "generator-info-name"}, Value: r.opts.GeneratorName},
	}
	if r.opts.GeneratorURL != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "generator-info-url"}, Value: r.opts.GeneratorURL})
	}
	attrs = append(attrs,
		xml.Attr{Name: xml.Name{Local: "source-info-name"}, Value: infoName},
		xml.Attr{Name: xml.Name{Local: "source-info-url"}, Value: infoURL},
	)
	doc.Attrs = attrs
}
