package billing

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Entry is one billing code's description and wRVU weight.
type Entry struct {
	Code        string  `json:"-" toml:"code"`
	Description string  `json:"description" toml:"description"`
	WRVU        float64 `json:"wrvu" toml:"wrvu"`
}

// Catalog is an immutable billing-code lookup table.
type Catalog struct {
	entries map[string]Entry
}

var defaultEntries = []Entry{
	{Code: "99202", Description: "Level 2 new", WRVU: 0.93},
	{Code: "99203", Description: "Level 3 new", WRVU: 1.6},
	{Code: "99204", Description: "Level 4 new", WRVU: 2.6},
	{Code: "99205", Description: "Level 5 new", WRVU: 3.5},
	{Code: "99212", Description: "Level 2 established", WRVU: 0.7},
	{Code: "99213", Description: "Level 3 established", WRVU: 1.3},
	{Code: "99214", Description: "Level 4 established", WRVU: 1.92},
	{Code: "99215", Description: "Level 5 established", WRVU: 2.8},
	{Code: "99381", Description: "< 1 year, new", WRVU: 1.5},
	{Code: "99382", Description: "1-4 years, new", WRVU: 1.6},
	{Code: "99383", Description: "5-11 years, new", WRVU: 1.7},
	{Code: "99384", Description: "12-17 years, new", WRVU: 2.0},
	{Code: "99385", Description: "18-39 years, new", WRVU: 1.92},
	{Code: "99391", Description: "< 1 year, established", WRVU: 1.37},
	{Code: "99392", Description: "1-4 years, established", WRVU: 1.5},
	{Code: "99393", Description: "5-11 years, established", WRVU: 1.5},
	{Code: "99394", Description: "12-17 years, established", WRVU: 1.7},
	{Code: "99395", Description: "18-39 years, established", WRVU: 1.75},
	{Code: "25", Description: "25 Modifier", WRVU: 0.0},
}

// DefaultCatalog returns the built-in evaluation and management code table.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultEntries)
}

// NewCatalog builds a catalog from entries. Later entries win on duplicate codes.
func NewCatalog(entries []Entry) *Catalog {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Code] = e
	}
	return &Catalog{entries: m}
}

// Lookup returns the entry for code. Unknown codes report false.
func (c *Catalog) Lookup(code string) (Entry, bool) {
	e, ok := c.entries[code]
	return e, ok
}

// Len returns the number of codes in the catalog.
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns all entries sorted by code.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

type catalogFile struct {
	Codes []Entry `toml:"code"`
}

// LoadCatalogFile reads [[code]] tables from a TOML file and layers them over
// base. The returned catalog is a new value; base is not modified.
//
//	[[code]]
//	code = "99401"
//	description = "Preventive counseling, 15 min"
//	wrvu = 0.48
func LoadCatalogFile(path string, base *Catalog) (*Catalog, error) {
	var f catalogFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode billing catalog %s: %w", path, err)
	}

	merged := make([]Entry, 0, base.Len()+len(f.Codes))
	merged = append(merged, base.Entries()...)
	for i, e := range f.Codes {
		e.Code = strings.TrimSpace(e.Code)
		if e.Code == "" {
			return nil, fmt.Errorf("billing catalog %s: entry %d has no code", path, i+1)
		}
		if e.WRVU < 0 || math.IsNaN(e.WRVU) || math.IsInf(e.WRVU, 0) {
			return nil, fmt.Errorf("billing catalog %s: code %s has invalid wrvu %v", path, e.Code, e.WRVU)
		}
		merged = append(merged, e)
	}
	return NewCatalog(merged), nil
}

// CatalogFromConfig returns the default catalog, extended by path when set.
func CatalogFromConfig(path string) (*Catalog, error) {
	base := DefaultCatalog()
	if path == "" {
		return base, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("billing catalog: %w", err)
	}
	return LoadCatalogFile(path, base)
}
