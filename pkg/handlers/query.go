package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/geoatlas/geoquery-engine/pkg/apperrors"
	"github.com/geoatlas/geoquery-engine/pkg/catalog"
	"github.com/geoatlas/geoquery-engine/pkg/middleware"
	"github.com/geoatlas/geoquery-engine/pkg/nlq"
	"github.com/geoatlas/geoquery-engine/pkg/shape"
)

// QueryRequest is the POST /api/query body.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the successful query result plus its map payload.
type QueryResponse struct {
	Success bool `json:"success"`
	*nlq.Result
	Visualization *shape.Visualization `json:"visualization,omitempty"`
}

// ReloadResponse is the POST /api/schema/reload result.
type ReloadResponse struct {
	Success bool `json:"success"`
	Tables  int  `json:"tables"`
}

// QueryHandler exposes the synthesis pipeline over HTTP.
type QueryHandler struct {
	pipeline nlq.Pipeline
	loader   *catalog.Loader
	logger   *zap.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(pipeline nlq.Pipeline, loader *catalog.Loader, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		pipeline: pipeline,
		loader:   loader,
		logger:   logger,
	}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.Query)
	mux.HandleFunc("POST /api/schema/reload", h.Reload)
}

// Query handles POST /api/query requests. The body carries the natural
// language question; the response carries rows, the generated SQL, and a
// GeoJSON payload for the map layer.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFrom(r.Context())

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a query field")
		return
	}

	result, err := h.pipeline.Execute(r.Context(), req.Query)
	if err != nil {
		h.writeQueryError(w, requestID, req.Query, err)
		return
	}

	h.logger.Info("Query handled",
		zap.String("request_id", requestID),
		zap.Int("rows", result.RowCount),
		zap.Int("attempts", result.Attempts))

	response := QueryResponse{
		Success:       true,
		Result:        result,
		Visualization: shape.Build(result.Rows, result.QueryType),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

func (h *QueryHandler) writeQueryError(w http.ResponseWriter, requestID, query string, err error) {
	h.logger.Warn("Query failed",
		zap.String("request_id", requestID),
		zap.String("query", query),
		zap.Error(err))

	switch {
	case errors.Is(err, apperrors.ErrEmptyQuery):
		_ = ErrorResponse(w, http.StatusBadRequest, "empty_query", "query must not be empty")
	case errors.Is(err, apperrors.ErrSchemaUnavailable):
		_ = ErrorResponse(w, http.StatusServiceUnavailable, "schema_unavailable", "spatial database schema is not loaded")
	default:
		var exhausted *nlq.RetriesExhaustedError
		if errors.As(err, &exhausted) {
			_ = WriteQueryFailure(w, exhausted)
			return
		}
		_ = ErrorResponse(w, http.StatusInternalServerError, "query_failed", "query processing failed")
	}
}

// Reload handles POST /api/schema/reload requests. It re-discovers the
// spatial schema and swaps the catalog snapshot.
func (h *QueryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.loader.Reload(r.Context()); err != nil {
		h.logger.Error("Schema reload failed",
			zap.String("request_id", middleware.RequestIDFrom(r.Context())),
			zap.Error(err))
		_ = ErrorResponse(w, http.StatusServiceUnavailable, "reload_failed", "could not reload the spatial schema")
		return
	}

	cat := h.loader.Snapshot()
	response := ReloadResponse{
		Success: true,
		Tables:  len(cat.Tables()),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode reload response", zap.Error(err))
	}
}
