// Package catalog builds and holds an immutable snapshot of the spatial
// database schema: tables, their geometry kinds, real column names, and
// sampled values from filterable text columns. Everything downstream
// (normalization, synthesis prompts, repair) reads from a snapshot, so
// table and column names are never invented.
package catalog

import (
	"sort"
	"strings"

	"github.com/geoatlas/geoquery-engine/pkg/spatialdb"
)

// Table is one discovered table with its columns and sampled values.
type Table struct {
	Name           string
	GeometryKind   spatialdb.GeometryKind
	GeometryColumn string
	SRID           int
	RowCount       int64
	Columns        []Column
	// ValueSamples maps column name to a bounded sample of distinct values,
	// used in the synthesis prompt and for strategy selection.
	ValueSamples map[string][]string
}

// Column is one discovered column.
type Column struct {
	Name     string
	DataType string
	Nullable bool
}

// Catalog is an immutable schema snapshot. Build a new one with
// Loader.Load; never mutate a snapshot after it is published.
type Catalog struct {
	tables   map[string]*Table
	synonyms SynonymMap
}

// Tables returns table names in sorted order.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns the table with the given name, or nil.
func (c *Catalog) Table(name string) *Table {
	return c.tables[strings.ToLower(name)]
}

// HasTable reports whether a table exists in the snapshot.
func (c *Catalog) HasTable(name string) bool {
	return c.Table(name) != nil
}

// HasColumn reports whether the named table has the named column.
func (c *Catalog) HasColumn(tableName, columnName string) bool {
	t := c.Table(tableName)
	if t == nil {
		return false
	}
	columnName = strings.ToLower(columnName)
	for _, col := range t.Columns {
		if strings.ToLower(col.Name) == columnName {
			return true
		}
	}
	return false
}

// ColumnNames returns the column names of a table in discovery order.
func (c *Catalog) ColumnNames(tableName string) []string {
	t := c.Table(tableName)
	if t == nil {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Synonyms returns the derived synonym map.
func (c *Catalog) Synonyms() SynonymMap {
	return c.synonyms
}

// HasValue reports whether value appears (case-insensitively) in any
// sampled column of any table. Used by strategy selection to decide
// whether a name token is verifiable.
func (c *Catalog) HasValue(value string) bool {
	value = strings.ToLower(value)
	for _, t := range c.tables {
		for _, samples := range t.ValueSamples {
			for _, v := range samples {
				if strings.ToLower(v) == value {
					return true
				}
			}
		}
	}
	return false
}

// TableForKeywords returns the table whose name shares the most keywords
// with candidate, split on underscores. Returns "" when nothing overlaps.
// The repair engine uses this as a fallback for hallucinated table names.
func (c *Catalog) TableForKeywords(candidate string) string {
	candidateWords := splitWords(candidate)
	best := ""
	bestScore := 0
	bestExtra := 0
	for _, name := range c.Tables() {
		score := 0
		tableWords := splitWords(name)
		for _, cw := range candidateWords {
			for _, tw := range tableWords {
				if cw == tw || strings.Contains(tw, cw) || strings.Contains(cw, tw) {
					score++
				}
			}
		}
		// ties go to the table with fewer unmatched name words
		extra := len(tableWords) - score
		if score > bestScore || (score == bestScore && score > 0 && extra < bestExtra) {
			bestScore = score
			bestExtra = extra
			best = name
		}
	}
	return best
}

func splitWords(name string) []string {
	parts := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == ' ' || r == '-'
	})
	out := parts[:0]
	for _, p := range parts {
		if len(p) > 2 {
			out = append(out, p)
		}
	}
	return out
}
