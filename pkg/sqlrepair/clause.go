package sqlrepair

import (
	"regexp"
	"strings"
)

// tableRef is one FROM/JOIN target with its optional alias.
type tableRef struct {
	Table string
	Alias string
}

var tableRefPattern = regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+(\w+)(?:\s+(?:AS\s+)?(\w+))?`)

// reservedAfterTable are keywords that must not be mistaken for aliases.
var reservedAfterTable = map[string]bool{
	"where": true, "on": true, "join": true, "inner": true, "left": true,
	"right": true, "full": true, "cross": true, "group": true, "order": true,
	"limit": true, "having": true, "union": true, "as": true, "using": true,
	"offset": true, "natural": true,
}

// parseTableRefs extracts FROM/JOIN targets and their aliases.
func parseTableRefs(sql string) []tableRef {
	var refs []tableRef
	for _, m := range tableRefPattern.FindAllStringSubmatch(sql, -1) {
		ref := tableRef{Table: m[2]}
		if m[3] != "" && !reservedAfterTable[strings.ToLower(m[3])] {
			ref.Alias = m[3]
		}
		refs = append(refs, ref)
	}
	return refs
}

// whereClause returns the span [start, end) of the WHERE clause body within
// sql, not including the WHERE keyword, stopping before trailing GROUP BY /
// ORDER BY / LIMIT. ok is false when there is no WHERE clause.
func whereClause(sql string) (start, end int, ok bool) {
	upper := strings.ToUpper(sql)
	idx := indexOutsideQuotes(upper, " WHERE ")
	if idx < 0 {
		return 0, 0, false
	}
	start = idx + len(" WHERE ")

	end = len(sql)
	for _, kw := range []string{" GROUP BY ", " ORDER BY ", " LIMIT ", " HAVING ", " OFFSET "} {
		if i := indexOutsideQuotes(upper[start:], kw); i >= 0 && start+i < end {
			end = start + i
		}
	}
	return start, end, true
}

// indexOutsideQuotes finds the first occurrence of needle in s that is not
// inside a single-quoted string.
func indexOutsideQuotes(s, needle string) int {
	inQuote := false
	for i := 0; i+len(needle) <= len(s); i++ {
		if s[i] == '\'' {
			inQuote = !inQuote
			continue
		}
		if !inQuote && s[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// splitTopLevel splits expr on the given connector (e.g. "AND") at paren
// depth zero and outside quotes. The connector match is case-insensitive and
// must be word-bounded. Returns the segments; connectors themselves are
// implied between consecutive segments.
func splitTopLevel(expr, connector string) []string {
	var segments []string
	depth := 0
	inQuote := false
	upper := strings.ToUpper(expr)
	connUpper := " " + strings.ToUpper(connector) + " "
	last := 0

	for i := 0; i < len(expr); i++ {
		switch {
		case expr[i] == '\'':
			inQuote = !inQuote
		case inQuote:
		case expr[i] == '(':
			depth++
		case expr[i] == ')':
			depth--
		case depth == 0 && i+len(connUpper) <= len(expr) && upper[i:i+len(connUpper)] == connUpper:
			segments = append(segments, expr[last:i])
			last = i + len(connUpper)
			i += len(connUpper) - 1
		}
	}
	segments = append(segments, expr[last:])
	return segments
}

// containsTopLevel reports whether connector occurs in expr at paren depth
// zero outside quotes.
func containsTopLevel(expr, connector string) bool {
	return len(splitTopLevel(expr, connector)) > 1
}
