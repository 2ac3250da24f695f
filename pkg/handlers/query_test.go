package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geoatlas/geoquery-engine/pkg/apperrors"
	"github.com/geoatlas/geoquery-engine/pkg/catalog"
	"github.com/geoatlas/geoquery-engine/pkg/nlq"
	"github.com/geoatlas/geoquery-engine/pkg/testhelpers"
)

func loadedLoader(t *testing.T) *catalog.Loader {
	t.Helper()
	loader := catalog.NewLoader(testhelpers.GeologySchemaSource(), nil)
	require.NoError(t, loader.Load(context.Background()))
	return loader
}

func postQuery(t *testing.T, h *QueryHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Query(rec, req)
	return rec
}

func TestQuery_Success(t *testing.T) {
	pipeline := &mockPipeline{
		ExecuteFunc: func(ctx context.Context, rawQuery string) (*nlq.Result, error) {
			return &nlq.Result{
				NaturalQuery: rawQuery,
				SQLQuery:     "SELECT gid FROM mods",
				QueryType:    "point",
				Rows: []map[string]any{
					{"gid": 1, "latitude": 23.5, "longitude": 40.8},
				},
				RowCount: 1,
				Attempts: 1,
			}, nil
		},
	}
	h := NewQueryHandler(pipeline, loadedLoader(t), zap.NewNop())

	rec := postQuery(t, h, `{"query": "show gold deposits"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success       bool             `json:"success"`
		SQLQuery      string           `json:"sql_query"`
		Data          []map[string]any `json:"data"`
		RowCount      int              `json:"row_count"`
		Visualization struct {
			FeatureCount int    `json:"feature_count"`
			LayerType    string `json:"layer_type"`
		} `json:"visualization"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "SELECT gid FROM mods", resp.SQLQuery)
	assert.Equal(t, 1, resp.RowCount)
	assert.Equal(t, 1, resp.Visualization.FeatureCount)
	assert.Equal(t, "point", resp.Visualization.LayerType)
	assert.Equal(t, []string{"show gold deposits"}, pipeline.Queries)
}

func TestQuery_BadBody(t *testing.T) {
	h := NewQueryHandler(&mockPipeline{}, loadedLoader(t), zap.NewNop())
	rec := postQuery(t, h, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery_EmptyQuery(t *testing.T) {
	pipeline := &mockPipeline{
		ExecuteFunc: func(ctx context.Context, rawQuery string) (*nlq.Result, error) {
			return nil, apperrors.ErrEmptyQuery
		},
	}
	h := NewQueryHandler(pipeline, loadedLoader(t), zap.NewNop())
	rec := postQuery(t, h, `{"query": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery_SchemaUnavailable(t *testing.T) {
	pipeline := &mockPipeline{
		ExecuteFunc: func(ctx context.Context, rawQuery string) (*nlq.Result, error) {
			return nil, apperrors.ErrSchemaUnavailable
		},
	}
	h := NewQueryHandler(pipeline, loadedLoader(t), zap.NewNop())
	rec := postQuery(t, h, `{"query": "show mines"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestQuery_RetriesExhausted(t *testing.T) {
	var history nlq.AttemptHistory
	history.Record(1, "SELECT gid FROM deposit_registry", errors.New(`relation "deposit_registry" does not exist`))

	pipeline := &mockPipeline{
		ExecuteFunc: func(ctx context.Context, rawQuery string) (*nlq.Result, error) {
			return nil, &nlq.RetriesExhaustedError{
				Attempts: 4,
				History:  history,
				LastErr:  errors.New("syntax error"),
			}
		},
	}
	h := NewQueryHandler(pipeline, loadedLoader(t), zap.NewNop())

	rec := postQuery(t, h, `{"query": "show deposits"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp QueryFailureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, 4, resp.Attempts)
	assert.Len(t, resp.History, 1)
	assert.Contains(t, resp.Error, "4 attempts")
}

func TestReload(t *testing.T) {
	loader := loadedLoader(t)
	h := NewQueryHandler(&mockPipeline{}, loader, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/schema/reload", nil)
	rec := httptest.NewRecorder()
	h.Reload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ReloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Tables)
}
