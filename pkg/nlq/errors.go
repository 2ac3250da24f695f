package nlq

import (
	"fmt"
	"strings"
)

// FormatError indicates the model's output could not be parsed into the
// expected structured result. It is retryable: the next attempt gets the
// failure in its history.
type FormatError struct {
	Reason string
	Raw    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("synthesis output not parseable: %s", e.Reason)
}

// ExecutionError carries the database's message verbatim so the retry
// prompt can show the model exactly what the database said.
type ExecutionError struct {
	SQL     string
	Message string
}

func (e *ExecutionError) Error() string {
	return e.Message
}

// RetriesExhaustedError is the terminal failure after every attempt
// errored. It keeps the full attempt history for diagnostics and for the
// user-facing summary.
type RetriesExhaustedError struct {
	Attempts int
	History  AttemptHistory
	LastErr  error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.LastErr
}

// Summary returns a short human-readable account of what was tried.
func (e *RetriesExhaustedError) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Could not produce a working query after %d attempts.", e.Attempts)
	if len(e.History) > 0 {
		last := e.History[len(e.History)-1]
		fmt.Fprintf(&b, " Last error: %s", last.Error)
	}
	return b.String()
}
