// Package catalog is the read-only product lookup the assistant prices and
// validates against. Prices are integer cents.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Entry struct {
	Name      string   `json:"name"`
	UnitPrice int64    `json:"unit_price"`
	Sizes     []string `json:"sizes"`
}

// HasSize reports whether size (already upper-cased) is offered.
func (e Entry) HasSize(size string) bool {
	for _, s := range e.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

type Catalog struct {
	entries []Entry
	byName  map[string]int
}

func New(entries []Entry) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(entries))}
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, errors.New("catalog: entry without name")
		}
		if e.UnitPrice <= 0 {
			return nil, fmt.Errorf("catalog: %s has no price", name)
		}
		if len(e.Sizes) == 0 {
			return nil, fmt.Errorf("catalog: %s has no sizes", name)
		}
		key := strings.ToLower(name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate entry %s", name)
		}
		sizes := make([]string, 0, len(e.Sizes))
		for _, s := range e.Sizes {
			sizes = append(sizes, strings.ToUpper(strings.TrimSpace(s)))
		}
		c.byName[key] = len(c.entries)
		c.entries = append(c.entries, Entry{Name: name, UnitPrice: e.UnitPrice, Sizes: sizes})
	}
	if len(c.entries) == 0 {
		return nil, errors.New("catalog: empty")
	}
	return c, nil
}

func Default() *Catalog {
	c, err := New(defaultEntries)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultEntries = []Entry{
	{Name: "TrainTech Performance Tee", UnitPrice: 3499, Sizes: []string{"XS", "S", "M", "L", "XL", "XXL"}},
	{Name: "FlexFit training shorts", UnitPrice: 3999, Sizes: []string{"XS", "S", "M", "L", "XL", "XXL"}},
	{Name: "Aeroflow sports bra", UnitPrice: 4999, Sizes: []string{"XS", "S", "M", "L", "XL"}},
	{Name: "StrideFlex Running shoe", UnitPrice: 12999, Sizes: []string{"5", "6", "7", "8", "9", "10", "11", "12"}},
}

// LoadFile reads a JSON array of entries.
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return New(entries)
}

// List returns a copy of every entry in catalog order.
func (c *Catalog) List() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Name)
	}
	return out
}

// Lookup is an exact, case-insensitive name lookup.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// minFragment keeps one or two letter fragments ("a", "te") from matching
// every product name.
const minFragment = 3

// Match resolves loosely typed text to an entry: exact name first, then a
// name containing the text, then text containing a name. First entry in
// catalog order wins within each tier.
func (c *Catalog) Match(text string) (Entry, bool) {
	q := strings.ToLower(strings.TrimSpace(text))
	if q == "" {
		return Entry{}, false
	}
	if e, ok := c.Lookup(q); ok {
		return e, true
	}
	if len(q) >= minFragment {
		for _, e := range c.entries {
			if strings.Contains(strings.ToLower(e.Name), q) {
				return e, true
			}
		}
	}
	for _, e := range c.entries {
		if strings.Contains(q, strings.ToLower(e.Name)) {
			return e, true
		}
	}
	return Entry{}, false
}

// MentionsAny reports whether text contains any catalog product name.
func (c *Catalog) MentionsAny(text string) bool {
	q := strings.ToLower(text)
	for _, e := range c.entries {
		if strings.Contains(q, strings.ToLower(e.Name)) {
			return true
		}
	}
	return false
}

// FormatPrice renders cents as "34.99".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
