// Package catalog holds the read-only list of pre-validated stock numbers used
// by the material search modal and stock-number autocomplete.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/matthewbaird/stationcu/internal/types"
)

// DefaultLimit caps search results.
const DefaultLimit = 50

//go:embed catalog.json
var embeddedCatalog []byte

// Catalog is immutable after construction and safe for concurrent reads.
type Catalog struct {
	entries []types.CatalogEntry
	limit   int
}

// New creates a catalog over entries. A non-positive limit uses DefaultLimit.
func New(entries []types.CatalogEntry, limit int) *Catalog {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Catalog{
		entries: append([]types.CatalogEntry(nil), entries...),
		limit:   limit,
	}
}

// Default returns the catalog embedded in the binary.
func Default(limit int) (*Catalog, error) {
	entries, err := DecodeJSON(strings.NewReader(string(embeddedCatalog)))
	if err != nil {
		return nil, fmt.Errorf("decoding embedded catalog: %w", err)
	}
	return New(entries, limit), nil
}

// DecodeJSON reads a JSON array of {stock_number, description} objects.
func DecodeJSON(r io.Reader) ([]types.CatalogEntry, error) {
	var entries []types.CatalogEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Limit returns the result cap.
func (c *Catalog) Limit() int { return c.limit }

// Entries returns a copy of all entries in catalog order.
func (c *Catalog) Entries() []types.CatalogEntry {
	return append([]types.CatalogEntry(nil), c.entries...)
}

// Search returns entries whose stock number contains stockQuery and whose
// description contains every whitespace-separated token of descQuery. Both
// predicates are case-insensitive; empty queries match everything. Results
// keep catalog order and are capped at the catalog limit.
func (c *Catalog) Search(stockQuery, descQuery string) []types.CatalogEntry {
	stock := strings.ToLower(strings.TrimSpace(stockQuery))
	tokens := strings.Fields(strings.ToLower(descQuery))

	out := make([]types.CatalogEntry, 0, min(c.limit, len(c.entries)))
	for _, e := range c.entries {
		if len(out) >= c.limit {
			break
		}
		if stock != "" && !strings.Contains(strings.ToLower(e.StockNumber), stock) {
			continue
		}
		if !containsAll(strings.ToLower(e.Description), tokens) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Lookup finds an entry by exact stock number.
func (c *Catalog) Lookup(stockNumber string) (types.CatalogEntry, bool) {
	want := strings.TrimSpace(stockNumber)
	for _, e := range c.entries {
		if strings.EqualFold(e.StockNumber, want) {
			return e, true
		}
	}
	return types.CatalogEntry{}, false
}

// Suggest returns stock-number completions for a typed prefix, sorted by
// stock number and capped at limit (catalog limit when non-positive).
func (c *Catalog) Suggest(prefix string, limit int) []types.CatalogEntry {
	if limit <= 0 || limit > c.limit {
		limit = c.limit
	}
	p := strings.ToLower(strings.TrimSpace(prefix))
	if p == "" {
		return nil
	}
	var matched []types.CatalogEntry
	for _, e := range c.entries {
		if strings.HasPrefix(strings.ToLower(e.StockNumber), p) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].StockNumber < matched[j].StockNumber
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func containsAll(s string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(s, tok) {
			return false
		}
	}
	return true
}
