// Package catalog loads the ordered category → channel declaration that
// decides which channels are collected and how they are grouped on export.
//
// File format, one item per line:
//
//	# comment
//	CATE:央视频道
//	CCTV1
//	-CCTV2
//
// A name line adds the channel to the current category; "-name" removes it.
// A channel belongs to at most one category and the last assignment wins.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

const categoryPrefix = "CATE:"

// Catalog is immutable once loaded by Parse or Load.
type Catalog struct {
	categories []string
	members    map[string][]string
	owner      map[string]string
	declared   []string
	known      map[string]struct{}
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		members: make(map[string][]string),
		owner:   make(map[string]string),
		known:   make(map[string]struct{}),
	}
}

// Load reads a catalog file from disk.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open channel file: %w", err)
	}
	defer f.Close()
	cat, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse channel file %s: %w", path, err)
	}
	return cat, nil
}

// Parse reads catalog lines from r. Channel lines that appear before the
// first category are ignored.
func Parse(r io.Reader) (*Catalog, error) {
	cat := New()
	scanner := bufio.NewScanner(r)
	current := ""
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
		case strings.HasPrefix(line, categoryPrefix):
			current = strings.TrimSpace(strings.TrimPrefix(line, categoryPrefix))
			if current != "" {
				cat.AddCategory(current)
			}
		case current == "":
		case strings.HasPrefix(line, "-"):
			if name := strings.TrimSpace(line[1:]); name != "" {
				cat.Remove(current, name)
			}
		default:
			cat.Add(current, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cat, nil
}

// AddCategory registers an empty category, keeping first-seen order.
func (c *Catalog) AddCategory(category string) {
	if _, ok := c.members[category]; ok {
		return
	}
	c.categories = append(c.categories, category)
	c.members[category] = nil
}

// Add declares name under category, moving it out of any other category.
func (c *Catalog) Add(category, name string) {
	c.AddCategory(category)
	if prev, ok := c.owner[name]; ok {
		if prev == category {
			return
		}
		c.members[prev] = slices.DeleteFunc(c.members[prev], func(n string) bool { return n == name })
	}
	c.owner[name] = category
	c.members[category] = append(c.members[category], name)
	if _, ok := c.known[name]; !ok {
		c.known[name] = struct{}{}
		c.declared = append(c.declared, name)
	}
}

// Remove drops name from category. The channel stays declared.
func (c *Catalog) Remove(category, name string) {
	if c.owner[name] != category {
		return
	}
	delete(c.owner, name)
	c.members[category] = slices.DeleteFunc(c.members[category], func(n string) bool { return n == name })
}

// Categories lists category labels in declaration order.
func (c *Catalog) Categories() []string {
	return slices.Clone(c.categories)
}

// Channels lists the channels of category in declaration order.
func (c *Catalog) Channels(category string) []string {
	return slices.Clone(c.members[category])
}

// Declared lists every channel name ever declared, in first-seen order.
func (c *Catalog) Declared() []string {
	return slices.Clone(c.declared)
}

// Has reports whether name was declared.
func (c *Catalog) Has(name string) bool {
	_, ok := c.known[name]
	return ok
}

// CategoryOf returns the category currently holding name.
func (c *Catalog) CategoryOf(name string) (string, bool) {
	cat, ok := c.owner[name]
	return cat, ok
}

// Len returns the number of channels currently assigned to a category.
func (c *Catalog) Len() int {
	return len(c.owner)
}
