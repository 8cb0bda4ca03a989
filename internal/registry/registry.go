package registry

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"iptv/internal/catalog"
	"iptv/internal/logging"
	"iptv/internal/policy"
)

// ErrFrozen is returned by Merge after Freeze.
var ErrFrozen = errors.New("registry is frozen")

// Outcome classifies what a Merge call did.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeUpdated
	OutcomeUnknownChannel
	OutcomeDenied
	OutcomeInvalidURI
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnknownChannel:
		return "unknown_channel"
	case OutcomeDenied:
		return "denied"
	case OutcomeInvalidURI:
		return "invalid_uri"
	default:
		return "unknown"
	}
}

// Record is one distinct stream URI of a channel.
type Record struct {
	URI      string
	Count    int
	Priority int
	IPv6     bool
	seq      int
}

// Stats counts merge outcomes.
type Stats struct {
	Created int
	Updated int
	Unknown int
	Denied  int
	Invalid int
}

// Accepted is the number of observations that landed in a record.
func (s Stats) Accepted() int {
	return s.Created + s.Updated
}

type channel struct {
	records []*Record
	byURI   map[string]*Record
}

// Registry maps declared channel names to their merged records.
type Registry struct {
	filter   *policy.Filter
	logger   *slog.Logger
	channels map[string]*channel
	seq      int
	frozen   bool
	stats    Stats
}

// Option customizes a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for merge debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logging.NewComponentLogger(logger, "registry")
	}
}

// New creates an entry for every channel declared in cat. A nil filter
// accepts every URI without bonus.
func New(cat *catalog.Catalog, filter *policy.Filter, opts ...Option) *Registry {
	r := &Registry{
		filter:   filter,
		logger:   logging.NewNop(),
		channels: make(map[string]*channel),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if cat != nil {
		for _, name := range cat.Declared() {
			r.channels[name] = &channel{byURI: make(map[string]*Record)}
		}
	}
	return r
}

// Has reports whether name is a registry entry.
func (r *Registry) Has(name string) bool {
	_, ok := r.channels[name]
	return ok
}

// Merge folds one (canonical name, uri) observation into the registry.
// Policy substrings are matched against both the URI as observed and its
// normalized form. The bonus applies to this observation only: the record
// priority becomes count plus the bonus of the latest merge.
func (r *Registry) Merge(name, rawURI string) (Outcome, error) {
	if r.frozen {
		return 0, ErrFrozen
	}
	ch, ok := r.channels[name]
	if !ok {
		r.stats.Unknown++
		return OutcomeUnknownChannel, nil
	}

	uri, ipv6, err := NormalizeURI(rawURI)
	if err != nil {
		r.stats.Invalid++
		r.logger.Debug("stream uri rejected",
			logging.String(logging.FieldChannel, name),
			logging.String("uri", rawURI),
			logging.Error(err),
		)
		return OutcomeInvalidURI, err
	}
	observed := strings.TrimSpace(rawURI)
	if r.filter.Denied(uri) || r.filter.Denied(observed) {
		r.stats.Denied++
		r.logger.Debug("stream uri denied by policy",
			logging.String(logging.FieldChannel, name),
			logging.String("uri", uri),
		)
		return OutcomeDenied, nil
	}
	bonus := max(r.filter.Bonus(uri), r.filter.Bonus(observed))

	if rec, ok := ch.byURI[uri]; ok {
		rec.Count++
		rec.Priority = rec.Count + bonus
		r.stats.Updated++
		return OutcomeUpdated, nil
	}

	r.seq++
	rec := &Record{URI: uri, Count: 1, Priority: 1 + bonus, IPv6: ipv6, seq: r.seq}
	ch.records = append(ch.records, rec)
	ch.byURI[uri] = rec
	r.stats.Created++
	return OutcomeCreated, nil
}

// Records returns a copy of the records of name. Before Freeze they are in
// creation order; afterwards in rank order.
func (r *Registry) Records(name string) []Record {
	ch, ok := r.channels[name]
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(ch.records))
	for _, rec := range ch.records {
		out = append(out, *rec)
	}
	return out
}

// Stats returns merge outcome counters.
func (r *Registry) Stats() Stats {
	return r.stats
}

// Channels returns the number of entries and the number of entries with at
// least one record.
func (r *Registry) Channels() (total, populated int) {
	for _, ch := range r.channels {
		total++
		if len(ch.records) > 0 {
			populated++
		}
	}
	return total, populated
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen
}

// Freeze orders every channel by priority and stops further merges.
func (r *Registry) Freeze() {
	if r.frozen {
		return
	}
	for _, ch := range r.channels {
		sortRecords(ch.records)
	}
	r.frozen = true
}

func sortRecords(records []*Record) {
	slices.SortStableFunc(records, func(a, b *Record) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		return a.seq - b.seq
	})
}
