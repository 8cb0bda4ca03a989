package registry

import (
	"slices"
	"sync"
)

// RawEntry aggregates every observation carrying one raw channel name.
type RawEntry struct {
	Name     string
	Resolved []string
	Sources  []string
	URIs     []string
}

type rawChannel struct {
	entry   RawEntry
	records []*Record
	byURI   map[string]*Record
}

// Diagnostics records observations keyed by the raw name as it appeared in
// the source, whether or not the name is in the catalog. Priority equals
// the observation count.
type Diagnostics struct {
	mu      sync.Mutex
	entries map[string]*rawChannel
	order   []string
	seq     int
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{entries: make(map[string]*rawChannel)}
}

// Observe records one tuple. resolved is the final canonical name and
// source the playlist URL the tuple came from.
func (d *Diagnostics) Observe(raw, resolved, source, uri string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	ch, ok := d.entries[raw]
	if !ok {
		ch = &rawChannel{entry: RawEntry{Name: raw}, byURI: make(map[string]*Record)}
		d.entries[raw] = ch
		d.order = append(d.order, raw)
	}
	ch.entry.Resolved = appendUnique(ch.entry.Resolved, resolved)
	ch.entry.Sources = appendUnique(ch.entry.Sources, source)
	ch.entry.URIs = appendUnique(ch.entry.URIs, uri)

	if rec, ok := ch.byURI[uri]; ok {
		rec.Count++
		rec.Priority = rec.Count
		return
	}
	d.seq++
	rec := &Record{URI: uri, Count: 1, Priority: 1, IPv6: IsIPv6(uri), seq: d.seq}
	ch.records = append(ch.records, rec)
	ch.byURI[uri] = rec
}

// Names lists raw names in first-seen order.
func (d *Diagnostics) Names() []string {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.order)
}

// Entry returns a copy of the aggregate for raw.
func (d *Diagnostics) Entry(raw string) (RawEntry, bool) {
	if d == nil {
		return RawEntry{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.entries[raw]
	if !ok {
		return RawEntry{}, false
	}
	e := ch.entry
	e.Resolved = slices.Clone(e.Resolved)
	e.Sources = slices.Clone(e.Sources)
	e.URIs = slices.Clone(e.URIs)
	return e, true
}

// Ranked ranks the records of raw the same way Registry.Ranked does.
func (d *Diagnostics) Ranked(raw string, opts RankOptions) []Ranked {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.entries[raw]
	if !ok {
		return nil
	}
	return rank(ch.records, true, opts)
}

func appendUnique(list []string, v string) []string {
	if v == "" || slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
