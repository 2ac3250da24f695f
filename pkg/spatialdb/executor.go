package spatialdb

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ExecuteQuery runs a read-only query and returns rows as maps keyed by
// column name. When limit > 0 the query is wrapped in a bounding subselect
// so LLM-produced SQL can never return an unbounded result set.
func (a *Adapter) ExecuteQuery(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error) {
	query := strings.TrimRight(strings.TrimSpace(sqlQuery), ";")
	if limit > 0 {
		query = fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", query, limit)
	}

	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = ColumnInfo{
			Name: fd.Name,
			Type: pgTypeName(fd.DataTypeOID),
		}
	}

	var resultRows []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col.Name] = values[i]
		}
		resultRows = append(resultRows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	a.logger.Debug("Executed query",
		zap.Int("rows", len(resultRows)),
		zap.Int("columns", len(columns)))

	return &QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// ValidateQuery asks the planner to check the query without running it.
func (a *Adapter) ValidateQuery(ctx context.Context, sqlQuery string) error {
	query := strings.TrimRight(strings.TrimSpace(sqlQuery), ";")
	rows, err := a.pool.Query(ctx, "EXPLAIN "+query)
	if err != nil {
		return fmt.Errorf("validate query: %w", err)
	}
	rows.Close()
	return rows.Err()
}

// pgTypeName maps common PostgreSQL type OIDs to readable names. Unknown
// OIDs fall back to the numeric form.
func pgTypeName(oid uint32) string {
	switch oid {
	case 16:
		return "boolean"
	case 20:
		return "bigint"
	case 21:
		return "smallint"
	case 23:
		return "integer"
	case 25:
		return "text"
	case 700:
		return "real"
	case 701:
		return "double precision"
	case 1043:
		return "varchar"
	case 1082:
		return "date"
	case 1114:
		return "timestamp"
	case 1184:
		return "timestamptz"
	case 1700:
		return "numeric"
	case 2950:
		return "uuid"
	case 114, 3802:
		return "json"
	default:
		return fmt.Sprintf("oid:%d", oid)
	}
}
