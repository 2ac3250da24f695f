package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoatlas/geoquery-engine/pkg/apperrors"
	"github.com/geoatlas/geoquery-engine/pkg/spatialdb"
)

func testSchemaSource() *spatialdb.MockSchemaSource {
	tables := []spatialdb.TableMetadata{
		{TableName: "mods", GeometryKind: spatialdb.GeometryPoint, GeometryColumn: "geom", SRID: 3857, RowCount: 5000},
		{TableName: "geology_master", GeometryKind: spatialdb.GeometryPolygon, GeometryColumn: "geom", SRID: 3857, RowCount: 1200},
		{TableName: "geology_faults_contacts_master", GeometryKind: spatialdb.GeometryLine, GeometryColumn: "geom", SRID: 3857, RowCount: 800},
	}
	columns := map[string][]spatialdb.ColumnMetadata{
		"mods": {
			{ColumnName: "gid", DataType: "integer", OrdinalPosition: 1},
			{ColumnName: "eng_name", DataType: "character varying", OrdinalPosition: 2},
			{ColumnName: "major_comm", DataType: "character varying", OrdinalPosition: 3},
			{ColumnName: "minor_comm", DataType: "character varying", OrdinalPosition: 4},
			{ColumnName: "region", DataType: "character varying", OrdinalPosition: 5},
			{ColumnName: "geom", DataType: "USER-DEFINED", OrdinalPosition: 6},
		},
		"geology_master": {
			{ColumnName: "gid", DataType: "integer", OrdinalPosition: 1},
			{ColumnName: "unit_name", DataType: "character varying", OrdinalPosition: 2},
			{ColumnName: "main_litho", DataType: "character varying", OrdinalPosition: 3},
			{ColumnName: "litho_fmly", DataType: "character varying", OrdinalPosition: 4},
			{ColumnName: "terrane", DataType: "character varying", OrdinalPosition: 5},
			{ColumnName: "geom", DataType: "USER-DEFINED", OrdinalPosition: 6},
		},
		"geology_faults_contacts_master": {
			{ColumnName: "gid", DataType: "integer", OrdinalPosition: 1},
			{ColumnName: "newtype", DataType: "character varying", OrdinalPosition: 2},
			{ColumnName: "geom", DataType: "USER-DEFINED", OrdinalPosition: 3},
		},
	}
	samples := map[string]map[string][]string{
		"mods": {
			"major_comm": {"Gold", "Copper", "Silver", "Zinc"},
			"region":     {"Riyadh Region", "Makkah Region", "Asir Region"},
		},
		"geology_master": {
			"terrane":    {"Afif Terrane", "Midyan Terrane"},
			"litho_fmly": {"volcanic", "sedimentary"},
		},
	}

	return &spatialdb.MockSchemaSource{
		DiscoverTablesFunc: func(ctx context.Context) ([]spatialdb.TableMetadata, error) {
			return tables, nil
		},
		DiscoverColumnsFunc: func(ctx context.Context, tableName string) ([]spatialdb.ColumnMetadata, error) {
			return columns[tableName], nil
		},
		GetDistinctValuesFunc: func(ctx context.Context, tableName, columnName string, limit int) ([]string, error) {
			return samples[tableName][columnName], nil
		},
	}
}

// LoadTestCatalog builds a catalog snapshot of the geology schema for use in
// tests across packages.
func LoadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	loader := NewLoader(testSchemaSource(), nil)
	require.NoError(t, loader.Load(context.Background()))
	return loader.Snapshot()
}

func TestLoader_Load(t *testing.T) {
	cat := LoadTestCatalog(t)

	assert.Equal(t, []string{"geology_faults_contacts_master", "geology_master", "mods"}, cat.Tables())
	assert.True(t, cat.HasTable("mods"))
	assert.True(t, cat.HasTable("MODS"))
	assert.False(t, cat.HasTable("gold_deposits"))

	assert.True(t, cat.HasColumn("mods", "major_comm"))
	assert.False(t, cat.HasColumn("mods", "commodity"))
	assert.Equal(t, spatialdb.GeometryPolygon, cat.Table("geology_master").GeometryKind)

	assert.True(t, cat.HasValue("gold"))
	assert.True(t, cat.HasValue("Afif Terrane"))
	assert.False(t, cat.HasValue("Atlantis"))
}

func TestLoader_SchemaUnavailable(t *testing.T) {
	source := &spatialdb.MockSchemaSource{
		DiscoverTablesFunc: func(ctx context.Context) ([]spatialdb.TableMetadata, error) {
			return nil, errors.New("connection refused")
		},
	}
	loader := NewLoader(source, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := loader.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSchemaUnavailable))
	assert.Nil(t, loader.Snapshot())
}

func TestLoader_ReloadSwapsSnapshot(t *testing.T) {
	source := testSchemaSource()
	loader := NewLoader(source, nil)
	require.NoError(t, loader.Load(context.Background()))
	first := loader.Snapshot()

	require.NoError(t, loader.Reload(context.Background()))
	second := loader.Snapshot()

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Tables(), second.Tables())
}

func TestSynonyms(t *testing.T) {
	cat := LoadTestCatalog(t)
	syn := cat.Synonyms()

	tests := []struct {
		term string
		want string
	}{
		{"area", "terrane"},
		{"areas", "terrane"},
		{"zone", "terrane"},
		{"formation", "unit_name"},
		{"mineral", "major_comm"},
		{"minerals", "major_comm"},
		{"ore", "major_comm"},
		{"volcanic", "litho_fmly"},
		{"lithology", "main_litho"},
		{"terrain", "terrane"},
		// mechanical variants of real column names
		{"major_comm", "major_comm"},
		{"major comm", "major_comm"},
		{"unit name", "unit_name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, syn.Resolve(tt.term), "term %q", tt.term)
	}

	// targets absent from the catalog are dropped
	assert.Empty(t, syn.Resolve("project"))
	assert.Empty(t, syn.Resolve("sample type"))
	// identifier-ish names never become synonyms
	assert.Empty(t, syn.Resolve("geom"))
}

func TestSynonyms_EveryTargetExists(t *testing.T) {
	cat := LoadTestCatalog(t)

	for term, column := range cat.Synonyms() {
		found := false
		for _, table := range cat.Tables() {
			if cat.HasColumn(table, column) {
				found = true
				break
			}
		}
		assert.True(t, found, "synonym %q maps to missing column %q", term, column)
	}
}

func TestTableForKeywords(t *testing.T) {
	cat := LoadTestCatalog(t)

	assert.Equal(t, "geology_master", cat.TableForKeywords("geology_areas"))
	assert.Equal(t, "geology_faults_contacts_master", cat.TableForKeywords("fault_lines"))
	assert.Equal(t, "", cat.TableForKeywords("customers"))
}

func TestPromptDescription(t *testing.T) {
	cat := LoadTestCatalog(t)
	desc := cat.PromptDescription()

	assert.Contains(t, desc, "TABLE: mods (POINT)")
	assert.Contains(t, desc, "TABLE: geology_master (POLYGON)")
	assert.Contains(t, desc, "gid, eng_name, major_comm, minor_comm, region, geom")
	assert.Contains(t, desc, "ST_Y(ST_Transform(ST_SetSRID(geom, 3857), 4326)) AS latitude")
	assert.Contains(t, desc, "ST_AsGeoJSON(ST_Transform(ST_SetSRID(geom, 3857), 4326)) AS geojson_geom")
	assert.Contains(t, desc, "Sample major_comm: Gold, Copper, Silver, Zinc")
	assert.Contains(t, desc, `query_type: "line"`)
}

func TestQueryType(t *testing.T) {
	assert.Equal(t, "point", QueryType(spatialdb.GeometryPoint))
	assert.Equal(t, "polygon", QueryType(spatialdb.GeometryPolygon))
	assert.Equal(t, "line", QueryType(spatialdb.GeometryLine))
	assert.Equal(t, "table", QueryType(spatialdb.GeometryNone))
}
