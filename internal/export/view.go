package export

import (
	"iptv/internal/catalog"
	"iptv/internal/registry"
)

// Stream is one ranked URI of a channel.
type Stream struct {
	URI      string `json:"uri"`
	Index    int    `json:"index"`
	Count    int    `json:"count"`
	Priority int    `json:"priority"`
	IPv6     bool   `json:"ipv6"`
}

// Channel groups the ranked streams of one catalog channel.
type Channel struct {
	Name    string
	Streams []Stream
}

// Category is an ordered block of channels.
type Category struct {
	Name     string
	Channels []Channel
}

// View is the catalog-ordered output of a run.
type View struct {
	Categories []Category
}

// Streams returns the total number of streams in the view.
func (v View) Streams() int {
	n := 0
	for _, c := range v.Categories {
		for _, ch := range c.Channels {
			n += len(ch.Streams)
		}
	}
	return n
}

// Empty lists channels that ended up with no streams, in catalog order.
func (v View) Empty() []string {
	var out []string
	for _, c := range v.Categories {
		for _, ch := range c.Channels {
			if len(ch.Streams) == 0 {
				out = append(out, ch.Name)
			}
		}
	}
	return out
}

// ViewOptions bounds each channel's stream list.
type ViewOptions struct {
	Limit    int
	IPv4Only bool
}

// BuildView walks the catalog in order and attaches the ranked streams of
// each channel.
func BuildView(cat *catalog.Catalog, reg *registry.Registry, opts ViewOptions) View {
	var view View
	for _, name := range cat.Categories() {
		category := Category{Name: name}
		for _, channel := range cat.Channels(name) {
			ranked := reg.Ranked(channel, registry.RankOptions{Limit: opts.Limit, IPv4Only: opts.IPv4Only})
			category.Channels = append(category.Channels, Channel{Name: channel, Streams: toStreams(ranked)})
		}
		view.Categories = append(view.Categories, category)
	}
	return view
}

// RawChannel is the diagnostics aggregate for one raw source name.
type RawChannel struct {
	Name     string
	Resolved []string
	Sources  []string
	Streams  []Stream
}

// RawView lists every raw name observed during a run.
type RawView struct {
	Channels []RawChannel
}

// BuildRawView converts diagnostics into an exportable view. A nil
// diagnostics sink yields an empty view.
func BuildRawView(diag *registry.Diagnostics) RawView {
	var view RawView
	for _, name := range diag.Names() {
		entry, ok := diag.Entry(name)
		if !ok {
			continue
		}
		view.Channels = append(view.Channels, RawChannel{
			Name:     name,
			Resolved: entry.Resolved,
			Sources:  entry.Sources,
			Streams:  toStreams(diag.Ranked(name, registry.RankOptions{})),
		})
	}
	return view
}

func toStreams(ranked []registry.Ranked) []Stream {
	out := make([]Stream, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, Stream{URI: r.URI, Index: r.Index, Count: r.Count, Priority: r.Priority, IPv6: r.IPv6})
	}
	return out
}
