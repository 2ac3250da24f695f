package nlq

import (
	"regexp"
	"strconv"
	"strings"
)

// limitPatterns capture an explicitly requested row count.
var limitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`top\s+(\d+)`),
	regexp.MustCompile(`first\s+(\d+)`),
	regexp.MustCompile(`give\s+me\s+(\d+)`),
	regexp.MustCompile(`show\s+(\d+)`),
	regexp.MustCompile(`get\s+(\d+)`),
	regexp.MustCompile(`nearest\s+(\d+)`),
	regexp.MustCompile(`(\d+)\s+(?:nearest|closest|top|first)`),
	regexp.MustCompile(`limit\s+(?:to\s+)?(\d+)`),
}

// ExtractLimit returns the row count the user explicitly asked for
// ("top 10", "first 5"), or 0 when no limit was requested.
func ExtractLimit(query string) int {
	lower := strings.ToLower(query)
	for _, pattern := range limitPatterns {
		if m := pattern.FindStringSubmatch(lower); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}
