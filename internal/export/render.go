package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"iptv/internal/textutil"
)

const infoCategory = "更新信息"

// Decorations carries the cosmetic settings of the playlist formats.
type Decorations struct {
	LogoURLPrefix string
	CategoryLogos map[string]string
	EPGURLs       []string
	DisableInfo   bool
	InfoURL       string
	Now           time.Time
}

func (d Decorations) logo(category, channel string) string {
	name := d.CategoryLogos[category]
	if name == "" {
		name = textutil.LogoFileName(channel)
	}
	prefix := strings.TrimRight(strings.TrimSpace(d.LogoURLPrefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/" + name
}

func (d Decorations) day() string {
	now := d.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.Format(time.DateOnly)
}

func (d Decorations) info() bool {
	return !d.DisableInfo && strings.TrimSpace(d.InfoURL) != ""
}

func streamLine(s Stream) string {
	family := "IPv4"
	if s.IPv6 {
		family = "IPv6"
	}
	return fmt.Sprintf("%s$%s『线路%d』", s.URI, family, s.Index)
}

func extinf(id int, name, logo, category string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `#EXTINF:-1 tvg-id="%d" tvg-name="%s"`, id, name)
	if logo != "" {
		fmt.Fprintf(&b, ` tvg-logo="%s"`, logo)
	}
	fmt.Fprintf(&b, ` group-title="%s",%s`, category, name)
	return b.String()
}

// RenderM3U writes the extended M3U playlist.
func RenderM3U(w io.Writer, view View, d Decorations) error {
	bw := bufio.NewWriter(w)
	header := "#EXTM3U"
	if urls := nonEmpty(d.EPGURLs); len(urls) > 0 {
		header += fmt.Sprintf(` x-tvg-url="%s"`, strings.Join(urls, ","))
	}
	fmt.Fprintln(bw, header)

	for _, category := range view.Categories {
		for _, channel := range category.Channels {
			logo := d.logo(category.Name, channel.Name)
			for _, s := range channel.Streams {
				fmt.Fprintln(bw, extinf(s.Index, channel.Name, logo, category.Name))
				fmt.Fprintln(bw, streamLine(s))
			}
		}
	}
	if d.info() {
		day := d.day()
		logo := ""
		if prefix := strings.TrimRight(strings.TrimSpace(d.LogoURLPrefix), "/"); prefix != "" {
			logo = prefix + "/default.png"
		}
		fmt.Fprintln(bw, extinf(1, day, logo, infoCategory))
		fmt.Fprintln(bw, d.InfoURL)
	}
	return bw.Flush()
}

// RenderTXT writes the "category,#genre#" text playlist.
func RenderTXT(w io.Writer, view View, d Decorations) error {
	bw := bufio.NewWriter(w)
	for _, category := range view.Categories {
		fmt.Fprintf(bw, "%s,#genre#\n", category.Name)
		for _, channel := range category.Channels {
			for _, s := range channel.Streams {
				fmt.Fprintf(bw, "%s,%s\n", channel.Name, streamLine(s))
			}
		}
		bw.WriteString("\n\n")
	}
	if d.info() {
		fmt.Fprintf(bw, "%s,#genre#\n", infoCategory)
		fmt.Fprintf(bw, "%s,%s\n", d.day(), d.InfoURL)
	}
	return bw.Flush()
}

// RenderJSON writes category → channel → streams with catalog order kept.
func RenderJSON(w io.Writer, view View) error {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, category := range view.Categories {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeKey(&b, category.Name); err != nil {
			return err
		}
		b.WriteByte('{')
		for j, channel := range category.Channels {
			if j > 0 {
				b.WriteByte(',')
			}
			if err := writeKey(&b, channel.Name); err != nil {
				return err
			}
			if err := writeValue(&b, channel.Streams); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	}
	b.WriteByte('}')
	return indentTo(w, b.Bytes())
}

type rawRecord struct {
	Resolved []string `json:"resolved"`
	Sources  []string `json:"sources"`
	Streams  []Stream `json:"streams"`
}

// RenderRawJSON writes the diagnostics view keyed by raw name in first-seen
// order.
func RenderRawJSON(w io.Writer, view RawView) error {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, ch := range view.Channels {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeKey(&b, ch.Name); err != nil {
			return err
		}
		rec := rawRecord{Resolved: ch.Resolved, Sources: ch.Sources, Streams: ch.Streams}
		if rec.Resolved == nil {
			rec.Resolved = []string{}
		}
		if rec.Sources == nil {
			rec.Sources = []string{}
		}
		if err := writeValue(&b, rec); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return indentTo(w, b.Bytes())
}

func writeKey(b *bytes.Buffer, key string) error {
	if err := writeValue(b, key); err != nil {
		return err
	}
	b.WriteByte(':')
	return nil
}

func writeValue(b *bytes.Buffer, v any) error {
	enc := json.NewEncoder(b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	b.Truncate(b.Len() - 1)
	return nil
}

func indentTo(w io.Writer, compact []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "    "); err != nil {
		return fmt.Errorf("indent json: %w", err)
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
