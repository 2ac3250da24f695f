package nlq

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/geoatlas/geoquery-engine/pkg/catalog"
)

// MatchStrategy tells the synthesizer how to compare uncertain name values.
type MatchStrategy string

const (
	// StrategyExact uses plain case-insensitive comparisons.
	StrategyExact MatchStrategy = "EXACT"
	// StrategyFuzzy uses similarity matching within an edit-distance threshold.
	StrategyFuzzy MatchStrategy = "FUZZY"
	// StrategyCombined is exact OR fuzzy-within-threshold. Preferred over
	// pure fuzzy since it never loses exact recall.
	StrategyCombined MatchStrategy = "COMBINED"
)

// StrategyDecision is the selected strategy plus the token and threshold
// that motivated it.
type StrategyDecision struct {
	Strategy  MatchStrategy
	Token     string // the uncertain token, empty for EXACT
	Threshold int    // edit distance budget for fuzzy matching
}

// hedgingPhrases signal the user is unsure of the exact stored value.
var hedgingPhrases = []string{"similar to", "like", "close to", "around", "something like", "resembling"}

// queryStopwords are common query and domain words that are never treated
// as uncertain name tokens.
var queryStopwords = map[string]bool{
	"show": true, "list": true, "find": true, "give": true, "display": true,
	"get": true, "me": true, "all": true, "the": true, "that": true, "with": true,
	"and": true, "or": true, "not": true, "in": true, "of": true, "on": true,
	"near": true, "within": true, "inside": true, "from": true, "where": true,
	"what": true, "which": true, "how": true, "many": true, "are": true, "is": true,
	"top": true, "first": true, "nearest": true, "closest": true, "consider": true,
	"mines": true, "mine": true, "deposits": true, "deposit": true, "sites": true,
	"site": true, "occurrences": true, "areas": true, "area": true, "zones": true,
	"zone": true, "faults": true, "fault": true, "lines": true, "geology": true,
	"samples": true, "sample": true, "boreholes": true, "drilling": true,
	"regions": true, "region": true, "map": true, "data": true,
}

var (
	wordPattern       = regexp.MustCompile(`[A-Za-z][A-Za-z_]+`)
	annotationPattern = regexp.MustCompile(`\(column: [^)]*\)`)
)

// SelectStrategy picks the match strategy for a normalized query. Hedging
// language or a name-like token that cannot be verified against the catalog
// value samples selects COMBINED; otherwise EXACT. The fuzzy threshold
// scales with the uncertain token's length.
func SelectStrategy(nq NormalizedQuery, cat *catalog.Catalog) StrategyDecision {
	lower := strings.ToLower(annotationPattern.ReplaceAllString(nq.Text, ""))

	for _, phrase := range hedgingPhrases {
		if containsWord(lower, phrase) {
			token := tokenAfterPhrase(lower, phrase)
			return StrategyDecision{
				Strategy:  StrategyCombined,
				Token:     token,
				Threshold: fuzzyThreshold(token),
			}
		}
	}

	synonyms := cat.Synonyms()
	for _, word := range wordPattern.FindAllString(lower, -1) {
		if len(word) <= 3 || queryStopwords[word] {
			continue
		}
		if synonyms.Resolve(word) != "" {
			continue
		}
		if knownRegionWord(word) {
			continue
		}
		if !cat.HasValue(word) && !valueContainsWord(cat, word) {
			return StrategyDecision{
				Strategy:  StrategyCombined,
				Token:     word,
				Threshold: fuzzyThreshold(word),
			}
		}
	}

	return StrategyDecision{Strategy: StrategyExact}
}

// fuzzyThreshold derives the edit-distance budget from token length.
func fuzzyThreshold(token string) int {
	switch n := len(token); {
	case n < 10:
		return 2
	case n <= 30:
		return 3
	default:
		return 5
	}
}

// tokenAfterPhrase returns the first word after a hedging phrase, which is
// usually the uncertain name itself.
func tokenAfterPhrase(text, phrase string) string {
	idx := strings.Index(text, phrase)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(phrase):]
	words := wordPattern.FindAllString(rest, -1)
	for _, w := range words {
		if !queryStopwords[w] {
			return w
		}
	}
	return ""
}

// valueContainsWord reports whether any sampled catalog value contains the
// word, so multi-word stored values like "Riyadh Region" verify "riyadh".
func valueContainsWord(cat *catalog.Catalog, word string) bool {
	for _, table := range cat.Tables() {
		t := cat.Table(table)
		for _, samples := range t.ValueSamples {
			for _, v := range samples {
				if containsWord(strings.ToLower(v), word) {
					return true
				}
			}
		}
	}
	return false
}

func knownRegionWord(word string) bool {
	_, ok := saudiRegions[word]
	return ok
}

// Directive renders the decision as an explicit instruction line for the
// synthesis prompt.
func (d StrategyDecision) Directive() string {
	switch d.Strategy {
	case StrategyCombined:
		return fmt.Sprintf(
			"MATCH STRATEGY: COMBINED - for the uncertain value '%s', match with exact ILIKE OR a wildcarded partial match (edit distance budget %d); never rely on exact equality alone.",
			d.Token, d.Threshold)
	case StrategyFuzzy:
		return fmt.Sprintf(
			"MATCH STRATEGY: FUZZY - match '%s' with wildcarded partial comparisons (edit distance budget %d).",
			d.Token, d.Threshold)
	default:
		return "MATCH STRATEGY: EXACT - filter with case-insensitive ILIKE comparisons against the known values."
	}
}
