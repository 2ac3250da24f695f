// Package spatialdb provides access to the PostGIS spatial database:
// schema discovery (tables, columns, geometry kinds, sample values) and
// read-only query execution.
package spatialdb

import "context"

// GeometryKind classifies a table's geometry column.
type GeometryKind string

const (
	GeometryPoint   GeometryKind = "point"
	GeometryPolygon GeometryKind = "polygon"
	GeometryLine    GeometryKind = "line"
	GeometryNone    GeometryKind = "none"
)

// TableMetadata describes a discovered table.
type TableMetadata struct {
	TableName      string
	GeometryKind   GeometryKind
	GeometryColumn string // empty when GeometryKind is GeometryNone
	SRID           int
	RowCount       int64
}

// ColumnMetadata describes a discovered column.
type ColumnMetadata struct {
	ColumnName      string
	DataType        string
	IsNullable      bool
	OrdinalPosition int
}

// ColumnInfo describes a result-set column.
type ColumnInfo struct {
	Name string
	Type string
}

// QueryResult holds rows returned from a query execution.
type QueryResult struct {
	Columns  []ColumnInfo
	Rows     []map[string]any
	RowCount int
}

// SchemaSource enumerates the live database's tables, columns and value samples.
// The catalog is built exclusively from what this interface reports, so table
// and column names are never invented.
type SchemaSource interface {
	DiscoverTables(ctx context.Context) ([]TableMetadata, error)
	DiscoverColumns(ctx context.Context, tableName string) ([]ColumnMetadata, error)
	GetDistinctValues(ctx context.Context, tableName, columnName string, limit int) ([]string, error)
}

// QueryExecutor runs read-only SQL against the spatial database.
type QueryExecutor interface {
	// ExecuteQuery runs sqlQuery with a bounded row limit (0 = unlimited).
	ExecuteQuery(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error)

	// ValidateQuery checks a query with EXPLAIN without executing it.
	ValidateQuery(ctx context.Context, sqlQuery string) error
}
