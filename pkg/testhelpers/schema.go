// Package testhelpers provides shared fixtures for tests: a mock schema
// source describing the geology reference schema and a loaded catalog
// snapshot built from it.
package testhelpers

import (
	"context"
	"testing"

	"github.com/geoatlas/geoquery-engine/pkg/catalog"
	"github.com/geoatlas/geoquery-engine/pkg/spatialdb"
)

// GeologySchemaSource returns a mock SchemaSource describing the reference
// geology schema: mods (points), geology_master (polygons) and
// geology_faults_contacts_master (lines), with sampled values for the
// filterable columns.
func GeologySchemaSource() *spatialdb.MockSchemaSource {
	tables := []spatialdb.TableMetadata{
		{TableName: "mods", GeometryKind: spatialdb.GeometryPoint, GeometryColumn: "geom", SRID: 3857, RowCount: 5000},
		{TableName: "geology_master", GeometryKind: spatialdb.GeometryPolygon, GeometryColumn: "geom", SRID: 3857, RowCount: 1200},
		{TableName: "geology_faults_contacts_master", GeometryKind: spatialdb.GeometryLine, GeometryColumn: "geom", SRID: 3857, RowCount: 800},
	}
	columns := map[string][]spatialdb.ColumnMetadata{
		"mods": {
			{ColumnName: "gid", DataType: "integer", OrdinalPosition: 1},
			{ColumnName: "eng_name", DataType: "character varying", OrdinalPosition: 2},
			{ColumnName: "arb_name", DataType: "character varying", OrdinalPosition: 3},
			{ColumnName: "major_comm", DataType: "character varying", OrdinalPosition: 4},
			{ColumnName: "minor_comm", DataType: "character varying", OrdinalPosition: 5},
			{ColumnName: "region", DataType: "character varying", OrdinalPosition: 6},
			{ColumnName: "occ_imp", DataType: "character varying", OrdinalPosition: 7},
			{ColumnName: "occ_type", DataType: "character varying", OrdinalPosition: 8},
			{ColumnName: "geom", DataType: "USER-DEFINED", OrdinalPosition: 9},
		},
		"geology_master": {
			{ColumnName: "gid", DataType: "integer", OrdinalPosition: 1},
			{ColumnName: "unit_name", DataType: "character varying", OrdinalPosition: 2},
			{ColumnName: "main_litho", DataType: "character varying", OrdinalPosition: 3},
			{ColumnName: "litho_fmly", DataType: "character varying", OrdinalPosition: 4},
			{ColumnName: "terrane", DataType: "character varying", OrdinalPosition: 5},
			{ColumnName: "era", DataType: "character varying", OrdinalPosition: 6},
			{ColumnName: "geom", DataType: "USER-DEFINED", OrdinalPosition: 7},
		},
		"geology_faults_contacts_master": {
			{ColumnName: "gid", DataType: "integer", OrdinalPosition: 1},
			{ColumnName: "newtype", DataType: "character varying", OrdinalPosition: 2},
			{ColumnName: "shape_leng", DataType: "double precision", OrdinalPosition: 3},
			{ColumnName: "geom", DataType: "USER-DEFINED", OrdinalPosition: 4},
		},
	}
	samples := map[string]map[string][]string{
		"mods": {
			"major_comm": {"Gold", "Copper", "Silver", "Zinc", "Iron"},
			"region":     {"Riyadh Region", "Makkah Region", "Asir Region", "Najran Region"},
			"occ_imp":    {"Mine", "Occurrence", "Prospect"},
		},
		"geology_master": {
			"terrane":    {"Afif Terrane", "Midyan Terrane", "Asir Terrane"},
			"litho_fmly": {"volcanic", "sedimentary", "plutonic"},
			"main_litho": {"basalt", "granite", "sandstone"},
		},
		"geology_faults_contacts_master": {
			"newtype": {"fault", "contact"},
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

// GeologyCatalog loads a catalog snapshot from GeologySchemaSource.
func GeologyCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	loader := catalog.NewLoader(GeologySchemaSource(), nil)
	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("load test catalog: %v", err)
	}
	return loader.Snapshot()
}
