package nlq

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoatlas/geoquery-engine/pkg/llm"
	"github.com/geoatlas/geoquery-engine/pkg/testhelpers"
)

func TestSynthesize_StructuredOutput(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResponseResult, error) {
		assert.Contains(t, system, "TABLE: mods (POINT)")
		assert.Contains(t, system, "MATCH STRATEGY: EXACT")
		assert.Zero(t, temperature)
		return &llm.GenerateResponseResult{
			Content: `{"reasoning": "commodity filter", "sql_query": "SELECT gid FROM mods WHERE (major_comm ILIKE '%gold%' OR minor_comm ILIKE '%gold%')", "query_type": "point", "description": "Gold deposits", "tables_used": ["mods"]}`,
		}, nil
	}

	synth := NewSynthesizer(mock, nil)
	cand, err := synth.Synthesize(context.Background(), SynthesisRequest{
		Catalog:  cat,
		Query:    Normalize("show gold deposits", cat),
		Decision: StrategyDecision{Strategy: StrategyExact},
		Attempt:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, "point", cand.QueryType)
	assert.Equal(t, "mods", cand.PrimaryTable)
	assert.Equal(t, "Gold deposits", cand.Description)
	assert.Equal(t, 1, cand.Attempt)
}

func TestSynthesize_RecoversBareSQL(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{
			Content: "Here is the query you asked for:\nSELECT gid FROM mods WHERE region ILIKE '%Asir%';\nHope that helps!",
		}, nil
	}

	synth := NewSynthesizer(mock, nil)
	cand, err := synth.Synthesize(context.Background(), SynthesisRequest{
		Catalog: cat,
		Query:   Normalize("deposits in asir", cat),
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT gid FROM mods WHERE region ILIKE '%Asir%'", cand.SQL)
}

func TestSynthesize_FormatError(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: "I cannot answer that."}, nil
	}

	synth := NewSynthesizer(mock, nil)
	_, err := synth.Synthesize(context.Background(), SynthesisRequest{
		Catalog: cat,
		Query:   Normalize("show mines", cat),
	})
	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestSynthesize_PropagatesLLMError(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)
	mock := llm.NewMockLLMClient()
	boom := errors.New("connection refused")
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResponseResult, error) {
		return nil, boom
	}

	synth := NewSynthesizer(mock, nil)
	_, err := synth.Synthesize(context.Background(), SynthesisRequest{
		Catalog: cat,
		Query:   Normalize("show mines", cat),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestDeriveQueryType(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)

	tests := []struct {
		name     string
		sql      string
		declared string
		want     string
	}{
		{
			"latitude longitude wins",
			"SELECT gid, ST_Y(g) AS latitude, ST_X(g) AS longitude FROM mods",
			"polygon",
			"point",
		},
		{
			"line table only",
			"SELECT gid, newtype FROM geology_faults_contacts_master",
			"",
			"line",
		},
		{
			"polygon table only",
			"SELECT gid, unit_name FROM geology_master",
			"",
			"polygon",
		},
		{
			"geojson from line alias in mixed query",
			"SELECT f.gid, ST_AsGeoJSON(ST_Transform(ST_SetSRID(f.geom, 3857), 4326)) AS geojson_geom FROM geology_faults_contacts_master f JOIN mods m ON ST_Intersects(ST_SetSRID(f.geom, 3857), ST_SetSRID(m.geom, 3857))",
			"",
			"line",
		},
		{
			"point table fallback",
			"SELECT gid, eng_name FROM mods",
			"",
			"point",
		},
		{
			"declared fallback",
			"SELECT 1",
			"polygon",
			"polygon",
		},
		{
			"declared table for non-spatial sql",
			"SELECT COUNT(*) AS n FROM pg_stat_activity",
			"table",
			"table",
		},
		{
			"aggregate on point table stays point",
			"SELECT COUNT(*) AS n FROM mods",
			"table",
			"point",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveQueryType(cat, tt.sql, tt.declared); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildUserPrompt_History(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)
	nq := Normalize("show gold deposits", cat)

	first := BuildUserPrompt(nq, nil)
	assert.Contains(t, first, "show gold deposits")
	assert.NotContains(t, first, "PREVIOUS FAILURES")

	var history AttemptHistory
	history.Record(1, "SELECT gid FROM deposits", errors.New(`relation "deposits" does not exist`))
	retry := BuildUserPrompt(nq, history)
	assert.Contains(t, retry, "PREVIOUS FAILURES")
	assert.Contains(t, retry, "SELECT gid FROM deposits")
	assert.Contains(t, retry, `relation "deposits" does not exist`)
}

func TestBuildSystemPrompt(t *testing.T) {
	cat := testhelpers.GeologyCatalog(t)
	system := BuildSystemPrompt(cat, StrategyDecision{Strategy: StrategyExact})

	for _, want := range []string{
		"TABLE: mods (POINT)",
		"TABLE: geology_master (POLYGON)",
		"TABLE: geology_faults_contacts_master (LINE)",
		"never SELECT *",
		"major_comm ILIKE '%X%' OR minor_comm ILIKE '%X%'",
		"MATCH STRATEGY: EXACT",
		`"sql_query"`,
		"EXAMPLES",
		"ST_DWithin",
	} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}
