// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ircam

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"
)

// Template is a frame template with zeroed checksum placeholders.
// In JSON it is an array of numbers, e.g. [16, 2, 244, 0, 16, 3, 0, 0].
type Template []byte

// UnmarshalJSON decodes an array of byte values
func (t *Template) UnmarshalJSON(data []byte) error {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("template must be an array of bytes: %w", err)
	}
	out := make(Template, len(values))
	for i, v := range values {
		if v < 0 || v > 0xFF {
			return fmt.Errorf("template byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*t = out
	return nil
}

// MarshalJSON encodes the template as an array of numbers rather than base64
func (t Template) MarshalJSON() ([]byte, error) {
	values := make([]int, len(t))
	for i, b := range t {
		values[i] = int(b)
	}
	return json.Marshal(values)
}

// Entry is one named command definition
type Entry struct {
	ID    string   `json:"id" cbor:"id"`
	Label string   `json:"label" cbor:"label"`
	Data  Template `json:"data" cbor:"data"`
}

// Catalog maps command names to frame templates. It is immutable once built.
type Catalog struct {
	entries []Entry
	byID    map[string]int
}

// NewCatalog builds a catalog, rejecting duplicate ids and short templates
func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %q has no id", e.Label)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.ID)
		}
		if len(e.Data) < MinFrameSize {
			return nil, fmt.Errorf("catalog entry %q: %w", e.ID, ErrFrameTooShort)
		}
		data := make(Template, len(e.Data))
		copy(data, e.Data)
		c.byID[e.ID] = len(c.entries)
		c.entries = append(c.entries, Entry{ID: e.ID, Label: e.Label, Data: data})
	}
	return c, nil
}

// EmptyCatalog returns a catalog with no entries
func EmptyCatalog() *Catalog {
	return &Catalog{byID: map[string]int{}}
}

// Get returns a copy of the template registered under name
func (c *Catalog) Get(name string) ([]byte, bool) {
	i, ok := c.byID[name]
	if !ok {
		return nil, false
	}
	data := c.entries[i].Data
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

// Entry returns the entry registered under name
func (c *Catalog) Entry(name string) (Entry, bool) {
	i, ok := c.byID[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Entries returns the entries in definition order
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries
func (c *Catalog) Len() int {
	return len(c.entries)
}

// LoadCatalog reads command definitions from a .json or .cbor file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var entries []Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor":
		err = cbor.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", path, err)
	}

	return NewCatalog(entries)
}

// LoadCatalogSoft is LoadCatalog that logs failures and returns an empty
// catalog instead of an error.
func LoadCatalogSoft(path string) *Catalog {
	c, err := LoadCatalog(path)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Error("Failed to load command configuration")
		return EmptyCatalog()
	}
	logrus.WithFields(logrus.Fields{"path": path, "commands": c.Len()}).Debug("Loaded command catalog")
	return c
}
