package nlq

import "github.com/geoatlas/geoquery-engine/pkg/spatialdb"

// Result is the outcome of one successful pipeline run.
type Result struct {
	NaturalQuery    string                   `json:"natural_query"`
	NormalizedQuery string                   `json:"normalized_query"`
	SQLQuery        string                   `json:"sql_query"`
	QueryType       string                   `json:"query_type"`
	Description     string                   `json:"description,omitempty"`
	TablesUsed      []string                 `json:"tables_used,omitempty"`
	Strategy        MatchStrategy            `json:"strategy"`
	Columns         []spatialdb.ColumnInfo   `json:"-"`
	Rows            []map[string]any         `json:"data"`
	RowCount        int                      `json:"row_count"`
	Attempts        int                      `json:"attempts"`
	RepairRules     []string                 `json:"repair_rules,omitempty"`
	FailedAttempts  AttemptHistory           `json:"failed_attempts,omitempty"`
}
