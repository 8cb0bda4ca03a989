// Package policy decides whether a stream URI is rejected outright or
// promoted in the ranking.
package policy

import "strings"

// Filter holds deny and allow substrings. Matching is plain substring
// containment on the normalized URI.
type Filter struct {
	deny  []string
	allow []string
	bonus int
}

// New builds a filter. Blank patterns are ignored so they cannot match
// every URI.
func New(deny, allow []string, bonus int) *Filter {
	return &Filter{deny: compact(deny), allow: compact(allow), bonus: bonus}
}

// Denied reports whether uri contains any deny substring.
func (f *Filter) Denied(uri string) bool {
	if f == nil {
		return false
	}
	return containsAny(uri, f.deny)
}

// Bonus returns the configured bonus when uri contains any allow substring
// and zero otherwise.
func (f *Filter) Bonus(uri string) int {
	if f == nil || !containsAny(uri, f.allow) {
		return 0
	}
	return f.bonus
}

// Rules exposes the effective lists for diagnostics output.
func (f *Filter) Rules() (deny, allow []string, bonus int) {
	if f == nil {
		return nil, nil, 0
	}
	return append([]string(nil), f.deny...), append([]string(nil), f.allow...), f.bonus
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
