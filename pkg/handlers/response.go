package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/geoatlas/geoquery-engine/pkg/nlq"
)

// errorBody is the flat JSON shape for plain request errors.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// QueryFailureResponse reports a terminal pipeline failure with the
// per-attempt history for diagnostics.
type QueryFailureResponse struct {
	Success  bool               `json:"success"`
	Error    string             `json:"error"`
	Attempts int                `json:"attempts,omitempty"`
	History  nlq.AttemptHistory `json:"failed_attempts,omitempty"`
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, errorBody{Error: errorCode, Message: message})
}

// WriteQueryFailure writes the terminal-failure payload for an exhausted
// retry loop, carrying the human-readable summary and the attempt history.
func WriteQueryFailure(w http.ResponseWriter, e *nlq.RetriesExhaustedError) error {
	return WriteJSON(w, http.StatusUnprocessableEntity, QueryFailureResponse{
		Success:  false,
		Error:    e.Summary(),
		Attempts: e.Attempts,
		History:  e.History,
	})
}
