package apperrors

import "errors"

var (
	// ErrSchemaUnavailable indicates the spatial database catalog could not be
	// enumerated. This is fatal for the whole process, not per-request.
	ErrSchemaUnavailable = errors.New("schema unavailable")

	// ErrEmptyQuery indicates a request with no query text.
	ErrEmptyQuery = errors.New("empty query")

	// ErrUnknownProvider indicates an unrecognized LLM provider name in config.
	ErrUnknownProvider = errors.New("unknown llm provider")
)
