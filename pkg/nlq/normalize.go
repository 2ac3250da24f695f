// Package nlq turns natural-language geospatial questions into executed
// PostGIS SQL: normalization, strategy selection, LLM synthesis, repair,
// and a bounded retry loop that feeds each failure back into regeneration.
package nlq

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/geoatlas/geoquery-engine/pkg/catalog"
)

// annotationMarker is how column hints are written into the query text.
// Its presence means the text is already normalized.
const annotationMarker = "(column: "

// Annotation is one synonym hit: the user's term and the real column it
// refers to.
type Annotation struct {
	Term   string
	Column string
}

// NormalizedQuery is the preprocessed form of a user question.
type NormalizedQuery struct {
	Original    string
	Text        string // misspellings fixed, synonym annotations inline
	Annotations []Annotation
	Hints       []string // region and semantic hints appended to the prompt
}

// PromptText returns the text handed to the synthesizer, hints included.
func (q NormalizedQuery) PromptText() string {
	if len(q.Hints) == 0 {
		return q.Text
	}
	return q.Text + " [" + strings.Join(q.Hints, " | ") + "]"
}

// misspellings is the fixed correction dictionary, applied with word
// boundaries so partial-word corruption cannot occur.
var misspellings = map[string]string{
	"volcanos":  "volcanic",
	"volcanoes": "volcanic",
	"volcano":   "volcanic",
	"terrain":   "terrane",
	"terrains":  "terranes",
}

// saudiRegions maps city names to the canonical region values stored in the
// database, for queries that name a city without saying "region".
var saudiRegions = map[string]string{
	"riyadh": "Riyadh Region", "makkah": "Makkah Region", "mecca": "Makkah Region",
	"madinah": "Madinah Region", "medina": "Madinah Region", "eastern": "Eastern Region",
	"asir": "Asir Region", "tabuk": "Tabuk Region", "hail": "Hail Region",
	"jazan": "Jazan Region", "najran": "Najran Region", "qassim": "Qassim Region",
}

var commodityWords = []string{"gold", "copper", "silver", "zinc", "iron", "lead", "nickel"}
var mineWords = []string{"mines", "deposits", "sites", "occurrences"}

// Normalize corrects misspellings and annotates synonym hits with the real
// column name, preserving the user's phrasing. Normalizing an already
// normalized text is a no-op.
func Normalize(raw string, cat *catalog.Catalog) NormalizedQuery {
	if strings.Contains(raw, annotationMarker) {
		return NormalizedQuery{Original: raw, Text: raw}
	}

	text := applyMisspellings(raw)

	nq := NormalizedQuery{Original: raw}
	text, nq.Annotations = annotateSynonyms(text, cat.Synonyms())
	nq.Text = text
	nq.Hints = buildHints(raw)
	return nq
}

func applyMisspellings(text string) string {
	for wrong, right := range misspellings {
		pattern := regexp.MustCompile(`(?i)\b` + wrong + `\b`)
		text = pattern.ReplaceAllString(text, right)
	}
	return text
}

// annotateSynonyms appends "(column: X)" after the first whole-word
// occurrence of each synonym term. Longer terms are matched first so
// "sample type" wins over "sample". Terms that already name their target
// column carry no information and are skipped.
func annotateSynonyms(text string, synonyms catalog.SynonymMap) (string, []Annotation) {
	terms := make([]string, 0, len(synonyms))
	for term := range synonyms {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})

	var annotations []Annotation
	for _, term := range terms {
		column := synonyms[term]
		if selfReferential(term, column) {
			continue
		}
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
		loc := pattern.FindStringIndex(text)
		if loc == nil || insideAnnotation(text, loc[0]) || alreadyAnnotated(text, loc[1]) {
			continue
		}
		annotation := fmt.Sprintf(" %s%s)", annotationMarker, column)
		text = text[:loc[1]] + annotation + text[loc[1]:]
		annotations = append(annotations, Annotation{Term: text[loc[0]:loc[1]], Column: column})
	}
	return text, annotations
}

// selfReferential reports whether annotating term with column would just
// restate the term ("regions (column: region)").
func selfReferential(term, column string) bool {
	term = strings.ToLower(strings.ReplaceAll(term, " ", "_"))
	column = strings.ToLower(column)
	return term == column || inflection.Singular(term) == column || inflection.Plural(column) == term
}

// insideAnnotation reports whether position idx falls inside a previously
// inserted "(column: ...)" marker.
func insideAnnotation(text string, idx int) bool {
	open := strings.LastIndex(text[:idx], annotationMarker)
	if open < 0 {
		return false
	}
	return !strings.Contains(text[open:idx], ")")
}

// alreadyAnnotated reports whether an annotation directly follows end.
func alreadyAnnotated(text string, end int) bool {
	return strings.HasPrefix(strings.TrimLeft(text[end:], " "), annotationMarker)
}

// buildHints derives region and semantic hints from the raw text, matching
// what the database actually stores.
func buildHints(raw string) []string {
	lower := strings.ToLower(raw)
	var hints []string

	if !strings.Contains(lower, "region") {
		cities := make([]string, 0, len(saudiRegions))
		for city := range saudiRegions {
			cities = append(cities, city)
		}
		sort.Strings(cities)
		for _, city := range cities {
			if containsWord(lower, city) {
				hints = append(hints, fmt.Sprintf("REGION: %s -> %s", city, saudiRegions[city]))
			}
		}
	}

	hasCommodity := false
	for _, c := range commodityWords {
		if containsWord(lower, c) {
			hasCommodity = true
			break
		}
	}
	hasMineWord := false
	for _, w := range mineWords {
		if containsWord(lower, w) {
			hasMineWord = true
			break
		}
	}
	if hasMineWord && !hasCommodity {
		hints = append(hints, "SEMANTIC: 'mines/deposits' without commodity -> NO commodity filter")
	}
	return hints
}

func containsWord(text, word string) bool {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`).MatchString(text)
}
