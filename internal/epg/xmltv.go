package epg

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Document is an XMLTV <tv> root. Unknown attributes and child elements are
// carried through untouched.
type Document struct {
	XMLName    xml.Name    `xml:"tv"`
	Attrs      []xml.Attr  `xml:",any,attr"`
	Channels   []Channel   `xml:"channel"`
	Programmes []Programme `xml:"programme"`
}

// Channel is a guide channel definition.
type Channel struct {
	ID           string        `xml:"id,attr"`
	DisplayNames []DisplayName `xml:"display-name"`
	Extra        []Element     `xml:",any"`
}

// Name returns the first display name.
func (c Channel) Name() string {
	if len(c.DisplayNames) == 0 {
		return ""
	}
	return strings.TrimSpace(c.DisplayNames[0].Value)
}

// DisplayName is a possibly localized channel label.
type DisplayName struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Programme is one guide entry; only its channel reference is interpreted.
type Programme struct {
	Channel string     `xml:"channel,attr"`
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// Element is an opaque child element.
type Element struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// Decode parses an XMLTV document, transparently gunzipping it.
func Decode(data []byte) (*Document, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip guide: %w", err)
		}
		defer zr.Close()
		plain, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompress guide: %w", err)
		}
		data = plain
	}
	var doc Document
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode xmltv: %w", err)
	}
	return &doc, nil
}

// Encode renders doc with an XML declaration.
func (d *Document) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode xmltv: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Attr returns the first non-empty root attribute among keys.
func (d *Document) Attr(keys ...string) string {
	for _, key := range keys {
		for _, a := range d.Attrs {
			if a.Name.Local == key && strings.TrimSpace(a.Value) != "" {
				return a.Value
			}
		}
	}
	return ""
}
