package pipeline

import (
	"log/slog"

	"iptv/internal/alias"
	"iptv/internal/canon"
	"iptv/internal/logging"
)

// Resolver maps raw source names onto catalog keys: alias lookup,
// canonicalization, then a second alias lookup since canonicalization can
// reveal a new alias key. Results are memoized; a Resolver is not safe for
// concurrent use.
type Resolver struct {
	aliases alias.Map
	canon   *canon.Canonicalizer
	logger  *slog.Logger
	cache   map[string]string
}

func NewResolver(aliases alias.Map, c *canon.Canonicalizer, logger *slog.Logger) *Resolver {
	return &Resolver{
		aliases: aliases,
		canon:   c,
		logger:  logging.NewComponentLogger(logger, "resolve"),
		cache:   make(map[string]string),
	}
}

// Resolve returns the catalog key for raw.
func (r *Resolver) Resolve(raw string) string {
	if name, ok := r.cache[raw]; ok {
		return name
	}
	name, _ := r.aliases.Resolve(raw)
	canonical := r.canon.Canonicalize(name)
	name, _ = r.aliases.Resolve(canonical)
	if name != canonical {
		r.logger.Debug("channel alias applied",
			logging.String("from", canonical),
			logging.String("to", name),
		)
	}
	r.cache[raw] = name
	return name
}
