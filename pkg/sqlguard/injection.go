package sqlguard

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionResult describes an injection pattern found inside a string
// literal of the generated SQL. It implements error so a detection can flow
// through the pipeline's error handling.
type InjectionResult struct {
	Fingerprint string // libinjection fingerprint of the detected pattern
	Literal     string // the literal that triggered detection
}

func (r *InjectionResult) Error() string {
	return fmt.Sprintf("injection pattern detected in SQL literal (fingerprint %s)", r.Fingerprint)
}

// CheckLiteralsForInjection scans each single-quoted string literal of the
// SQL with libinjection. The statement structure itself is model-generated
// and validated elsewhere; the literals are where user-influenced text ends
// up, so that is what gets scanned.
//
// Returns nil when all literals are clean.
func CheckLiteralsForInjection(sqlQuery string) *InjectionResult {
	for _, literal := range extractLiterals(sqlQuery) {
		if literal == "" {
			continue
		}
		isSQLi, fingerprint := libinjection.IsSQLi(literal)
		if isSQLi {
			return &InjectionResult{
				Fingerprint: string(fingerprint),
				Literal:     literal,
			}
		}
	}
	return nil
}

// extractLiterals returns the contents of single-quoted string literals,
// honoring the SQL doubled-quote escape.
func extractLiterals(sqlQuery string) []string {
	var literals []string
	var current []rune
	inLiteral := false

	runes := []rune(sqlQuery)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if !inLiteral {
			if ch == '\'' {
				inLiteral = true
				current = current[:0]
			}
			continue
		}
		if ch == '\'' {
			// doubled quote is an escaped quote inside the literal
			if i+1 < len(runes) && runes[i+1] == '\'' {
				current = append(current, '\'')
				i++
				continue
			}
			inLiteral = false
			literals = append(literals, string(current))
			continue
		}
		current = append(current, ch)
	}
	return literals
}
