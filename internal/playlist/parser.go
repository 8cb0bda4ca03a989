package playlist

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"regexp"
	"strings"

	"iptv/internal/logging"
)

// Format identifies a playlist dialect.
type Format int

const (
	FormatAuto Format = iota
	FormatM3U
	FormatTXT
)

func (f Format) String() string {
	switch f {
	case FormatM3U:
		return "M3U"
	case FormatTXT:
		return "TXT"
	default:
		return "auto"
	}
}

// ParseFormat maps "m3u", "txt" or "auto" onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "m3u", "m3u8":
		return FormatM3U, nil
	case "txt":
		return FormatTXT, nil
	default:
		return FormatAuto, fmt.Errorf("unknown playlist format %q", s)
	}
}

// Entry is one channel observation from a playlist.
type Entry struct {
	Category string
	Name     string
	URI      string
}

const (
	detectLines  = 15
	maxLineBytes = 1 << 20
	genreMarker  = "#genre#"
	extinfPrefix = "#EXTINF"
)

var (
	reExtinf    = regexp.MustCompile(`group-title="(.*?)",(.*)`)
	reURISuffix = regexp.MustCompile(`\$.*$`)
)

// Parser reads one playlist document.
type Parser struct {
	scanner *bufio.Scanner
	hint    Format
	format  Format
	head    []string
	logger  *slog.Logger
	err     error
	started bool
	dropped int
	skipped int
}

// NewParser prepares a parser over r. FormatAuto sniffs the first non-empty
// lines for #EXTINF markers.
func NewParser(r io.Reader, hint Format, logger *slog.Logger) *Parser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Parser{
		scanner: scanner,
		hint:    hint,
		format:  hint,
		logger:  logging.NewComponentLogger(logger, "playlist"),
	}
}

// Format reports the detected (or hinted) format. Before detection has run
// it returns the hint.
func (p *Parser) Format() Format {
	if p.format == FormatAuto {
		p.detect()
	}
	return p.format
}

// Err returns the first read error encountered.
func (p *Parser) Err() error {
	return p.err
}

// Skipped returns the number of malformed lines ignored so far.
func (p *Parser) Skipped() int {
	return p.skipped
}

// All yields every entry in document order. The sequence can be consumed
// once.
func (p *Parser) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if p.started {
			return
		}
		p.started = true
		switch p.Format() {
		case FormatM3U:
			p.parseM3U(yield)
		default:
			p.parseTXT(yield)
		}
		if p.dropped > 0 {
			logging.WarnWithContext(p.logger, "entries before first category dropped", "playlist_uncategorized",
				logging.Int("dropped", p.dropped),
				logging.String(logging.FieldErrorHint, "source lists channels before any \"<category>,#genre#\" line"),
				logging.String(logging.FieldImpact, "those channels are ignored"),
			)
		}
	}
}

// detect buffers up to detectLines non-empty lines.
func (p *Parser) detect() {
	first := true
	for len(p.head) < detectLines {
		line, ok := p.readLine(first)
		if !ok {
			break
		}
		first = false
		if line == "" {
			continue
		}
		p.head = append(p.head, line)
	}
	p.format = FormatTXT
	for _, line := range p.head {
		if strings.Contains(line, extinfPrefix) {
			p.format = FormatM3U
			break
		}
	}
}

func (p *Parser) readLine(first bool) (string, bool) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil && p.err == nil {
			p.err = fmt.Errorf("read playlist: %w", err)
		}
		return "", false
	}
	line := p.scanner.Text()
	if first {
		line = strings.TrimPrefix(line, "\ufeff")
	}
	return strings.TrimSpace(line), true
}

// lines replays buffered detection lines before reading the rest.
func (p *Parser) lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		head := p.head
		p.head = nil
		first := p.hint != FormatAuto
		for _, line := range head {
			if !yield(line) {
				return
			}
		}
		for {
			line, ok := p.readLine(first)
			if !ok {
				return
			}
			first = false
			if !yield(line) {
				return
			}
		}
	}
}

func (p *Parser) parseM3U(yield func(Entry) bool) {
	var pending *Entry
	for line := range p.lines() {
		switch {
		case line == "":
		case strings.HasPrefix(line, extinfPrefix):
			m := reExtinf.FindStringSubmatch(line)
			if m == nil {
				pending = nil
				p.skip(line, "extinf without group-title")
				continue
			}
			pending = &Entry{Category: strings.TrimSpace(m[1]), Name: strings.TrimSpace(m[2])}
		case strings.HasPrefix(line, "#"):
		default:
			if pending == nil {
				p.skip(line, "uri without extinf")
				continue
			}
			entry := *pending
			pending = nil
			entry.URI = CleanURI(line)
			if entry.Name == "" || entry.URI == "" {
				p.skip(line, "empty name or uri")
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}

func (p *Parser) parseTXT(yield func(Entry) bool) {
	category := ""
	for line := range p.lines() {
		if line == "" {
			continue
		}
		if strings.Contains(line, genreMarker) {
			category, _, _ = strings.Cut(line, ",")
			category = strings.TrimSpace(category)
			continue
		}
		if category == "" {
			p.dropped++
			continue
		}
		name, uri, ok := strings.Cut(line, ",")
		name = strings.TrimSpace(name)
		uri = CleanURI(uri)
		if !ok || name == "" || uri == "" {
			p.skip(line, "expected name,uri")
			continue
		}
		if !yield(Entry{Category: category, Name: name, URI: uri}) {
			return
		}
	}
}

func (p *Parser) skip(line, reason string) {
	p.skipped++
	p.logger.Debug("playlist line skipped",
		logging.String("reason", reason),
		logging.String("line", line),
	)
}

// CleanURI trims whitespace and strips a trailing "$annotation".
func CleanURI(raw string) string {
	return strings.TrimSpace(reURISuffix.ReplaceAllString(strings.TrimSpace(raw), ""))
}

// Parse is a convenience wrapper collecting every entry of r.
func Parse(r io.Reader, hint Format, logger *slog.Logger) ([]Entry, Format, error) {
	p := NewParser(r, hint, logger)
	var entries []Entry
	for e := range p.All() {
		entries = append(entries, e)
	}
	return entries, p.Format(), p.Err()
}
