package catalog

import (
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
)

// SynonymMap maps a lowercase natural-language term to the real column
// name it refers to.
type SynonymMap map[string]string

// Resolve returns the column a term maps to, or "" when unmapped.
func (m SynonymMap) Resolve(term string) string {
	return m[strings.ToLower(term)]
}

// fixedSynonyms are curated term-to-column mappings for the geology domain.
// Entries whose target column does not exist in the catalog are dropped at
// build time, so this list can stay ahead of any one database.
var fixedSynonyms = map[string]string{
	// area / terrane
	"area":    "terrane",
	"zone":    "terrane",
	"terrain": "terrane",
	"region":  "region",

	// geology
	"formation":        "unit_name",
	"rock type":        "main_litho",
	"lithology":        "main_litho",
	"lithology family": "litho_fmly",
	"rock family":      "litho_fmly",
	"volcanic":         "litho_fmly",
	"volcano":          "litho_fmly",

	// commodity
	"mineral":   "major_comm",
	"commodity": "major_comm",
	"ore":       "major_comm",

	// names
	"name":         "eng_name",
	"english name": "eng_name",
	"arabic name":  "arb_name",

	// projects and samples
	"project":      "project_na",
	"project name": "project_na",
	"sample":       "sampleid",
	"sample id":    "sampleid",
	"sample type":  "sampletype",
}

// buildSynonyms derives the synonym map for a set of tables. It combines
// the curated list with mechanical variants of every real column name:
// the name itself, underscores replaced by spaces, the last underscore
// segment, and singular/plural forms of single-word terms.
func buildSynonyms(tables map[string]*Table) SynonymMap {
	columnExists := func(name string) bool {
		for _, t := range tables {
			for _, col := range t.Columns {
				if strings.EqualFold(col.Name, name) {
					return true
				}
			}
		}
		return false
	}

	synonyms := make(SynonymMap)
	add := func(term, column string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || term == "geom" || term == "gid" {
			return
		}
		if _, taken := synonyms[term]; taken {
			return
		}
		synonyms[term] = column
	}

	tableNames := make([]string, 0, len(tables))
	for name := range tables {
		tableNames = append(tableNames, name)
	}
	sort.Strings(tableNames)

	for _, name := range tableNames {
		for _, col := range tables[name].Columns {
			colName := strings.ToLower(col.Name)
			add(colName, col.Name)

			parts := strings.Split(colName, "_")
			if len(parts) > 1 {
				add(strings.Join(parts, " "), col.Name)
				add(parts[len(parts)-1], col.Name)
			}
		}
	}

	fixedTerms := make([]string, 0, len(fixedSynonyms))
	for term := range fixedSynonyms {
		fixedTerms = append(fixedTerms, term)
	}
	sort.Strings(fixedTerms)

	for _, term := range fixedTerms {
		column := fixedSynonyms[term]
		if !columnExists(column) {
			continue
		}
		add(term, column)
		if !strings.Contains(term, " ") {
			add(inflection.Plural(term), column)
			add(inflection.Singular(term), column)
		}
	}

	return synonyms
}
