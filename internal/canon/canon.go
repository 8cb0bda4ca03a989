package canon

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/longbridgeapp/opencc"
	"golang.org/x/text/unicode/norm"

	"iptv/internal/logging"
)

// Converter rewrites Han text from traditional to simplified characters.
type Converter interface {
	Convert(string) (string, error)
}

// Canonicalizer is safe for concurrent use once constructed.
type Canonicalizer struct {
	rules     []Rule
	converter Converter
	logger    *slog.Logger
}

// Option customizes a Canonicalizer.
type Option func(*Canonicalizer)

// WithLogger sets the logger used for debug output of renamed channels.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Canonicalizer) {
		c.logger = logging.NewComponentLogger(logger, "canon")
	}
}

// WithRules replaces the built-in rule set.
func WithRules(rules []Rule) Option {
	return func(c *Canonicalizer) {
		c.rules = append([]Rule(nil), rules...)
	}
}

// WithConverter replaces the OpenCC t2s converter.
func WithConverter(conv Converter) Option {
	return func(c *Canonicalizer) {
		c.converter = conv
	}
}

// New builds a Canonicalizer with the default rules and an OpenCC t2s
// converter unless options override them.
func New(opts ...Option) (*Canonicalizer, error) {
	c := &Canonicalizer{rules: DefaultRules(), logger: logging.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.converter == nil {
		cc, err := opencc.New("t2s")
		if err != nil {
			return nil, fmt.Errorf("load t2s dictionaries: %w", err)
		}
		c.converter = cc
	}
	return c, nil
}

// Canonicalize returns the canonical key for name.
func (c *Canonicalizer) Canonicalize(name string) string {
	out := c.Trace(name).Output
	if out != name {
		c.logger.Debug("channel name canonicalized",
			logging.String("before", name),
			logging.String("after", out),
		)
	}
	return out
}

// TraceStep records the value produced by one stage.
type TraceStep struct {
	Stage  string
	Output string
}

// Trace describes how a name travelled through the canonicalizer.
type Trace struct {
	Input  string
	Family Family
	Prefix string
	Steps  []TraceStep
	Output string
}

// Trace runs the canonicalizer and keeps every intermediate value.
func (c *Canonicalizer) Trace(name string) Trace {
	tr := Trace{Input: name}

	value := norm.NFC.String(strings.TrimSpace(name))
	tr.Steps = append(tr.Steps, TraceStep{Stage: "nfc", Output: value})

	simplified := !hasKanaOrHangul(value)
	if simplified {
		value = c.simplify(value)
		tr.Steps = append(tr.Steps, TraceStep{Stage: "t2s", Output: value})
	}

	for _, rule := range c.rules {
		if !rule.Matches(value) {
			continue
		}
		tr.Family = rule.Family
		tr.Prefix = rule.Prefix
		for _, step := range rule.Steps {
			value = step.Apply(value)
			tr.Steps = append(tr.Steps, TraceStep{Stage: rule.Prefix + ":" + step.Label, Output: value})
		}
		break
	}

	// A chain can cut away the only kana in a name; convert what is left so
	// a second pass has nothing more to do.
	if !simplified && !hasKanaOrHangul(value) {
		value = c.simplify(value)
		tr.Steps = append(tr.Steps, TraceStep{Stage: "t2s", Output: value})
	}

	tr.Output = strings.TrimSpace(value)
	return tr
}

// simplify converts each segment between 「 and 」 independently so the
// corner brackets survive untouched.
func (c *Canonicalizer) simplify(s string) string {
	if !containsHan(s) {
		return s
	}
	var b strings.Builder
	start := 0
	for i, r := range s {
		if r != '「' && r != '」' {
			continue
		}
		b.WriteString(c.convert(s[start:i]))
		b.WriteRune(r)
		start = i + utf8.RuneLen(r)
	}
	b.WriteString(c.convert(s[start:]))
	return b.String()
}

func (c *Canonicalizer) convert(segment string) string {
	if segment == "" || !containsHan(segment) {
		return segment
	}
	out, err := c.converter.Convert(segment)
	if err != nil {
		c.logger.Debug("t2s conversion failed; keeping original text",
			logging.String("segment", segment),
			logging.Error(err),
		)
		return segment
	}
	return out
}

func hasKanaOrHangul(s string) bool {
	for _, r := range s {
		switch {
		case r >= 0x3040 && r <= 0x309F:
			return true
		case r >= 0x30A0 && r <= 0x30FF:
			return true
		case r >= 0xAC00 && r <= 0xD7A3:
			return true
		}
	}
	return false
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
