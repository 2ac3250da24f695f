package spatialdb

import "context"

// MockSchemaSource is a test double for SchemaSource.
type MockSchemaSource struct {
	DiscoverTablesFunc    func(ctx context.Context) ([]TableMetadata, error)
	DiscoverColumnsFunc   func(ctx context.Context, tableName string) ([]ColumnMetadata, error)
	GetDistinctValuesFunc func(ctx context.Context, tableName, columnName string, limit int) ([]string, error)
}

func (m *MockSchemaSource) DiscoverTables(ctx context.Context) ([]TableMetadata, error) {
	if m.DiscoverTablesFunc != nil {
		return m.DiscoverTablesFunc(ctx)
	}
	return nil, nil
}

func (m *MockSchemaSource) DiscoverColumns(ctx context.Context, tableName string) ([]ColumnMetadata, error) {
	if m.DiscoverColumnsFunc != nil {
		return m.DiscoverColumnsFunc(ctx, tableName)
	}
	return nil, nil
}

func (m *MockSchemaSource) GetDistinctValues(ctx context.Context, tableName, columnName string, limit int) ([]string, error) {
	if m.GetDistinctValuesFunc != nil {
		return m.GetDistinctValuesFunc(ctx, tableName, columnName, limit)
	}
	return nil, nil
}

// MockQueryExecutor is a test double for QueryExecutor. It records executed
// queries so tests can assert on repaired SQL.
type MockQueryExecutor struct {
	ExecuteQueryFunc  func(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error)
	ValidateQueryFunc func(ctx context.Context, sqlQuery string) error

	ExecutedQueries  []string
	ValidatedQueries []string
}

func (m *MockQueryExecutor) ExecuteQuery(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error) {
	m.ExecutedQueries = append(m.ExecutedQueries, sqlQuery)
	if m.ExecuteQueryFunc != nil {
		return m.ExecuteQueryFunc(ctx, sqlQuery, limit)
	}
	return &QueryResult{}, nil
}

func (m *MockQueryExecutor) ValidateQuery(ctx context.Context, sqlQuery string) error {
	m.ValidatedQueries = append(m.ValidatedQueries, sqlQuery)
	if m.ValidateQueryFunc != nil {
		return m.ValidateQueryFunc(ctx, sqlQuery)
	}
	return nil
}

var (
	_ SchemaSource  = (*MockSchemaSource)(nil)
	_ QueryExecutor = (*MockQueryExecutor)(nil)
)
