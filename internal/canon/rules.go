package canon

import (
	"regexp"
	"strings"
)

// Family tags the prefix group a rule belongs to.
type Family int

const (
	FamilyNone Family = iota
	FamilyCCTV
	FamilyCETV
	FamilyBrand
)

func (f Family) String() string {
	switch f {
	case FamilyCCTV:
		return "cctv"
	case FamilyCETV:
		return "cetv"
	case FamilyBrand:
		return "brand"
	default:
		return "none"
	}
}

// Step is one substitution in a rule chain. Limit caps the number of
// replaced occurrences; zero replaces every occurrence.
type Step struct {
	Label       string
	Pattern     *regexp.Regexp
	Replacement string
	Limit       int
}

// Apply runs the substitution against s.
func (s Step) Apply(in string) string {
	return replaceN(s.Pattern, in, s.Replacement, s.Limit)
}

// Rule binds a name prefix to its ordered substitution chain.
type Rule struct {
	Family Family
	Prefix string
	Steps  []Step
}

// Matches reports whether name starts with the rule prefix.
func (r Rule) Matches(name string) bool {
	return strings.HasPrefix(name, r.Prefix)
}

var (
	reDash         = regexp.MustCompile(`-`)
	reFirstToken   = regexp.MustCompile(`^(\S*)\s.*$`)
	reCCTVZeroPad  = regexp.MustCompile(`^CCTV0+([1-9])`)
	reCCTVNumbered = regexp.MustCompile(`^(CCTV[0-9]+) .*$`)
	reCCTVToken    = regexp.MustCompile(`^(CCTV[0-9+K]+).*$`)
	reCETVToken    = regexp.MustCompile(`^(CETV[0-9]+).*$`)
)

func brandRule(prefix string) Rule {
	return Rule{
		Family: FamilyBrand,
		Prefix: prefix,
		Steps: []Step{
			{Label: "join-prefix", Pattern: regexp.MustCompile(regexp.QuoteMeta(prefix + " ")), Replacement: prefix},
			{Label: "first-token", Pattern: reFirstToken, Replacement: "$1"},
		},
	}
}

// DefaultRules returns the built-in rule set: the CCTV numbered family, the
// CETV educational family and the NewTV and CHC brands.
func DefaultRules() []Rule {
	return []Rule{
		{
			Family: FamilyCCTV,
			Prefix: "CCTV",
			Steps: []Step{
				{Label: "drop-dash", Pattern: reDash, Replacement: ""},
				{Label: "zero-pad", Pattern: reCCTVZeroPad, Replacement: "CCTV$1", Limit: 1},
				{Label: "numbered", Pattern: reCCTVNumbered, Replacement: "$1", Limit: 1},
				{Label: "first-token", Pattern: reFirstToken, Replacement: "$1", Limit: 1},
				{Label: "channel-token", Pattern: reCCTVToken, Replacement: "$1", Limit: 1},
			},
		},
		{
			Family: FamilyCETV,
			Prefix: "CETV",
			Steps: []Step{
				{Label: "drop-dash", Pattern: reDash, Replacement: ""},
				{Label: "channel-token", Pattern: reCETVToken, Replacement: "$1", Limit: 1},
			},
		},
		brandRule("NewTV"),
		brandRule("CHC"),
	}
}

// replaceN replaces at most limit matches of re in s, expanding $n
// references in repl. A limit of zero or less replaces all matches.
func replaceN(re *regexp.Regexp, s, repl string, limit int) string {
	if limit <= 0 {
		return re.ReplaceAllString(s, repl)
	}
	matches := re.FindAllStringSubmatchIndex(s, limit)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		b.Write(re.ExpandString(nil, repl, s, m))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
