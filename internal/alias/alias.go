// Package alias maps raw or canonical channel names onto the names declared in
// the channel catalog.
//
// Resolution is a single lookup: a Map never follows a chain of aliases. A
// target that is itself an alias key is a configuration error reported by
// Chains, not something Resolve walks.
package alias

import (
	"fmt"
	"sort"
	"strings"
)

// Map is an immutable name -> name lookup table.
type Map struct {
	entries map[string]string
}

// New copies entries into a Map, skipping blank keys and targets.
func New(entries map[string]string) Map {
	m := Map{entries: make(map[string]string, len(entries))}
	for from, to := range entries {
		from = strings.TrimSpace(from)
		to = strings.TrimSpace(to)
		if from == "" || to == "" {
			continue
		}
		m.entries[from] = to
	}
	return m
}

// Resolve returns the alias target for name. The second result reports
// whether a substitution happened.
func (m Map) Resolve(name string) (string, bool) {
	if to, ok := m.entries[name]; ok {
		return to, true
	}
	return name, false
}

// Len returns the number of entries.
func (m Map) Len() int {
	return len(m.entries)
}

// Chains lists entries that would need more than one hop to reach a final
// name, formatted as "a -> b -> c" and sorted.
func (m Map) Chains() []string {
	var chains []string
	for from, to := range m.entries {
		if to == from {
			continue
		}
		if next, ok := m.entries[to]; ok && next != to {
			chains = append(chains, fmt.Sprintf("%s -> %s -> %s", from, to, next))
		}
	}
	sort.Strings(chains)
	return chains
}
