package nlq

import (
	"fmt"
	"strings"
)

// SqlCandidate is one synthesized query before or after repair.
type SqlCandidate struct {
	SQL          string
	QueryType    string // "point", "polygon", "line" or "table"
	PrimaryTable string
	Description  string
	TablesUsed   []string
	Reasoning    string
	Attempt      int
}

// AttemptRecord is one failed attempt: the SQL that was tried and the exact
// error text it produced.
type AttemptRecord struct {
	Attempt int    `json:"attempt"`
	SQL     string `json:"sql"`
	Error   string `json:"error"`
}

// AttemptHistory accumulates failed attempts across the retry loop. It is
// threaded back into every regeneration prompt so the model never repeats
// an already-falsified hypothesis.
type AttemptHistory []AttemptRecord

// Record appends a failed attempt.
func (h *AttemptHistory) Record(attempt int, sql string, err error) {
	if sql == "" {
		sql = "N/A"
	}
	*h = append(*h, AttemptRecord{Attempt: attempt, SQL: sql, Error: err.Error()})
}

// PromptText renders the history for inclusion in a retry prompt.
func (h AttemptHistory) PromptText() string {
	var b strings.Builder
	for _, rec := range h {
		fmt.Fprintf(&b, "Attempt %d: %s\nError: %s\n", rec.Attempt, rec.SQL, rec.Error)
	}
	return strings.TrimRight(b.String(), "\n")
}
