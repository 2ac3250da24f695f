package spatialdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DiscoverTables returns all user tables in the public schema with their
// geometry kind resolved from the PostGIS geometry_columns view.
func (a *Adapter) DiscoverTables(ctx context.Context) ([]TableMetadata, error) {
	const query = `
		SELECT
			t.table_name,
			COALESCE(g.type, '') AS geometry_type,
			COALESCE(g.f_geometry_column, '') AS geometry_column,
			COALESCE(g.srid, 0) AS srid,
			COALESCE(c.reltuples::bigint, 0) AS row_count
		FROM information_schema.tables t
		LEFT JOIN geometry_columns g ON g.f_table_name = t.table_name
		LEFT JOIN pg_class c ON c.relname = t.table_name
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema = 'public'
		  AND t.table_name NOT IN ('spatial_ref_sys')
		ORDER BY t.table_name
	`

	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []TableMetadata
	for rows.Next() {
		var t TableMetadata
		var geometryType string
		if err := rows.Scan(&t.TableName, &geometryType, &t.GeometryColumn, &t.SRID, &t.RowCount); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		t.GeometryKind = geometryKindFromType(geometryType)
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	a.logger.Debug("Discovered tables", zap.Int("count", len(tables)))
	return tables, nil
}

// geometryKindFromType maps a PostGIS geometry type name to a GeometryKind.
func geometryKindFromType(geometryType string) GeometryKind {
	switch strings.ToUpper(geometryType) {
	case "POINT", "MULTIPOINT":
		return GeometryPoint
	case "POLYGON", "MULTIPOLYGON":
		return GeometryPolygon
	case "LINESTRING", "MULTILINESTRING", "MULTICURVE", "COMPOUNDCURVE":
		return GeometryLine
	default:
		return GeometryNone
	}
}

// DiscoverColumns returns columns for a table in ordinal order.
func (a *Adapter) DiscoverColumns(ctx context.Context, tableName string) ([]ColumnMetadata, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS is_nullable,
			c.ordinal_position
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position
	`

	rows, err := a.pool.Query(ctx, query, tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []ColumnMetadata
	for rows.Next() {
		var c ColumnMetadata
		if err := rows.Scan(&c.ColumnName, &c.DataType, &c.IsNullable, &c.OrdinalPosition); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// GetDistinctValues returns up to limit distinct non-null values from a column.
// Identifiers are quoted to prevent injection through discovered names.
func (a *Adapter) GetDistinctValues(ctx context.Context, tableName, columnName string, limit int) ([]string, error) {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	quotedCol := pgx.Identifier{columnName}.Sanitize()

	query := fmt.Sprintf(`
		SELECT DISTINCT %s::text
		FROM %s
		WHERE %s IS NOT NULL AND %s::text <> ''
		ORDER BY 1
		LIMIT $1
	`, quotedCol, quotedTable, quotedCol, quotedCol)

	rows, err := a.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get distinct values for %s.%s: %w", tableName, columnName, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, val)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct values: %w", err)
	}

	return values, nil
}
