package nlq

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/geoatlas/geoquery-engine/pkg/catalog"
	"github.com/geoatlas/geoquery-engine/pkg/llm"
	"github.com/geoatlas/geoquery-engine/pkg/spatialdb"
)

// SynthesisRequest carries everything one synthesis call needs. The
// synthesizer is stateless; no conversation memory is assumed between
// attempts.
type SynthesisRequest struct {
	Catalog  *catalog.Catalog
	Query    NormalizedQuery
	Decision StrategyDecision
	History  AttemptHistory
	Attempt  int
}

// Synthesizer turns a normalized query into a SQL candidate via the LLM.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SqlCandidate, error)
}

type synthesizer struct {
	client llm.LLMClient
	logger *zap.Logger
}

// NewSynthesizer creates a Synthesizer backed by an LLM client.
func NewSynthesizer(client llm.LLMClient, logger *zap.Logger) Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &synthesizer{
		client: client,
		logger: logger.Named("synthesizer"),
	}
}

var _ Synthesizer = (*synthesizer)(nil)

// synthesisResponse is the structured output contract with the model.
type synthesisResponse struct {
	Reasoning   string   `json:"reasoning"`
	SQLQuery    string   `json:"sql_query"`
	QueryType   string   `json:"query_type"`
	Description string   `json:"description"`
	TablesUsed  []string `json:"tables_used"`
}

func (s *synthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (*SqlCandidate, error) {
	system := BuildSystemPrompt(req.Catalog, req.Decision)
	prompt := BuildUserPrompt(req.Query, req.History)

	resp, err := s.client.GenerateResponse(ctx, prompt, system, 0.0)
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}

	parsed, perr := llm.ParseJSONResponse[synthesisResponse](resp.Content)
	if perr != nil || strings.TrimSpace(parsed.SQLQuery) == "" {
		// best effort: the model sometimes answers with prose around a
		// perfectly good statement
		if sql, ok := extractSQLStatement(resp.Content); ok {
			s.logger.Warn("Recovered bare SQL from unstructured output")
			parsed = synthesisResponse{SQLQuery: sql}
		} else {
			reason := "no sql_query in response"
			if perr != nil {
				reason = perr.Error()
			}
			return nil, &FormatError{Reason: reason, Raw: resp.Content}
		}
	}

	sql := strings.TrimSpace(parsed.SQLQuery)
	candidate := &SqlCandidate{
		SQL:          sql,
		QueryType:    DeriveQueryType(req.Catalog, sql, parsed.QueryType),
		PrimaryTable: primaryTable(sql),
		Description:  parsed.Description,
		TablesUsed:   parsed.TablesUsed,
		Reasoning:    parsed.Reasoning,
		Attempt:      req.Attempt,
	}

	s.logger.Debug("Synthesized candidate",
		zap.Int("attempt", req.Attempt),
		zap.String("query_type", candidate.QueryType),
		zap.String("sql", candidate.SQL))
	return candidate, nil
}

var selectStatementPattern = regexp.MustCompile(`(?is)\b(?:SELECT|WITH)\b.+?(?:;|$)`)

// extractSQLStatement pulls an embedded SELECT/WITH statement out of prose.
func extractSQLStatement(content string) (string, bool) {
	m := selectStatementPattern.FindString(content)
	if m == "" {
		return "", false
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m), ";")), true
}

var fromJoinPattern = regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+(\w+)(?:\s+(?:AS\s+)?(\w+))?`)

// primaryTable returns the first FROM target.
func primaryTable(sql string) string {
	for _, m := range fromJoinPattern.FindAllStringSubmatch(sql, -1) {
		if strings.EqualFold(m[1], "FROM") {
			return strings.ToLower(m[2])
		}
	}
	return ""
}

// DeriveQueryType determines the geometry output kind from the SQL itself
// rather than trusting the model's declaration: output columns first, then
// referenced tables, then the declared type.
func DeriveQueryType(cat *catalog.Catalog, sql, declared string) string {
	lower := strings.ToLower(sql)

	if strings.Contains(lower, " as latitude") && strings.Contains(lower, " as longitude") {
		return "point"
	}

	aliasToTable := map[string]string{}
	var lineSeen, polygonSeen, pointSeen bool
	var pointPrimary bool
	for i, m := range fromJoinPattern.FindAllStringSubmatch(sql, -1) {
		t := cat.Table(m[2])
		if t == nil {
			continue
		}
		aliasToTable[strings.ToLower(m[2])] = t.Name
		if m[3] != "" {
			aliasToTable[strings.ToLower(m[3])] = t.Name
		}
		switch t.GeometryKind {
		case spatialdb.GeometryLine:
			lineSeen = true
		case spatialdb.GeometryPolygon:
			polygonSeen = true
		case spatialdb.GeometryPoint:
			pointSeen = true
			if i == 0 {
				pointPrimary = true
			}
		}
	}

	if lineSeen && !polygonSeen && !pointSeen {
		return "line"
	}
	if polygonSeen && !lineSeen && !pointSeen {
		return "polygon"
	}

	if strings.Contains(lower, "geojson_geom") {
		if m := regexp.MustCompile(`(?i)st_asgeojson\s*\([^)]*?\b(\w+)\.geom`).FindStringSubmatch(sql); m != nil {
			if table, ok := aliasToTable[strings.ToLower(m[1])]; ok {
				switch cat.Table(table).GeometryKind {
				case spatialdb.GeometryLine:
					return "line"
				case spatialdb.GeometryPolygon:
					return "polygon"
				}
			}
		}
		if declared == "line" || declared == "polygon" {
			return declared
		}
		return "polygon"
	}

	if pointPrimary || pointSeen {
		return "point"
	}
	if declared != "" {
		return declared
	}
	return "point"
}

// BuildUserPrompt renders the per-attempt prompt. Retries carry every prior
// SQL and its exact error so the model never repeats a falsified hypothesis.
func BuildUserPrompt(nq NormalizedQuery, history AttemptHistory) string {
	if len(history) == 0 {
		return fmt.Sprintf("Generate SQL for: %q", nq.PromptText())
	}
	return fmt.Sprintf(`Original: %q

PREVIOUS FAILURES:
%s

Fix ALL errors. Common issues:
- Wrong table/column names
- Missing ST_SetSRID on geometries
- SELECT * (list columns explicitly)
- Missing geojson_geom for polygon/line
- AND instead of OR for commodity search

Generate corrected SQL.`, nq.PromptText(), history.PromptText())
}

// BuildSystemPrompt renders the synthesis contract: the real schema, the
// correctness rules, the match strategy directive, the output format, and
// worked examples.
func BuildSystemPrompt(cat *catalog.Catalog, decision StrategyDecision) string {
	var b strings.Builder

	b.WriteString("You are a PostGIS SQL generator for geospatial mining and geology data.\n\n")

	b.WriteString("SCHEMA REFERENCE (USE EXACTLY THESE NAMES)\n\n")
	b.WriteString(cat.PromptDescription())
	b.WriteString("\n\n")

	b.WriteString(`CRITICAL RULES

DO:
- List columns explicitly (never SELECT *)
- Use ILIKE for text matching (case-insensitive)
- Use OR for commodity search: (major_comm ILIKE '%X%' OR minor_comm ILIKE '%X%')
- Parenthesize OR groups that are AND-combined with other conditions
- Wrap ALL geometries with ST_SetSRID(..., 3857) in spatial operations
- Include the geometry output columns shown above for each table

DON'T:
- Invent table names (no "gold_deposits", "copper_mines")
- Invent column names (no "deposit_id", "mine_name", "fault_type")
- Use "id" instead of "gid"
- Add LIMIT unless the user explicitly requests a number
- Filter by commodity when the user just says "mines" or "deposits"

SPATIAL OPERATIONS:
"in", "within", "inside"  -> ST_Intersects(ST_SetSRID(a.geom, 3857), ST_SetSRID(b.geom, 3857))
"near", "close to"        -> ST_DWithin(ST_SetSRID(a.geom, 3857), ST_SetSRID(b.geom, 3857), meters)

`)

	b.WriteString(decision.Directive())
	b.WriteString("\n\n")

	b.WriteString(`OUTPUT FORMAT (JSON only, no markdown)

{
  "reasoning": "step-by-step thought process",
  "sql_query": "complete SQL",
  "query_type": "point|polygon|line",
  "description": "brief description",
  "tables_used": ["table1", "table2"]
}

`)

	b.WriteString(workedExamples(cat))
	return b.String()
}

// workedExamples renders example queries against the catalog's canonical
// point/polygon/line tables.
func workedExamples(cat *catalog.Catalog) string {
	point, polygon, line := canonicalTables(cat)
	var b strings.Builder
	b.WriteString("EXAMPLES\n")

	if point != nil {
		fmt.Fprintf(&b, `
Query: "show mines"
{"reasoning": "'mines' without commodity means ALL rows, no filter", "sql_query": "SELECT %s FROM %s", "query_type": "point", "description": "All mines", "tables_used": ["%s"]}
`, exampleSelectList(point, ""), point.Name, point.Name)

		if hasColumns(point, "major_comm", "minor_comm") {
			fmt.Fprintf(&b, `
Query: "show gold deposits"
{"reasoning": "'gold' filters commodity using OR across both columns", "sql_query": "SELECT %s FROM %s WHERE (major_comm ILIKE '%%gold%%' OR minor_comm ILIKE '%%gold%%')", "query_type": "point", "description": "Gold deposits", "tables_used": ["%s"]}
`, exampleSelectList(point, ""), point.Name, point.Name)
		}
	}

	if polygon != nil {
		fmt.Fprintf(&b, `
Query: "show volcanic areas"
{"reasoning": "volcanic filters the polygon table's lithology; polygon output needs geojson_geom", "sql_query": "SELECT %s FROM %s WHERE litho_fmly ILIKE '%%volcanic%%'", "query_type": "polygon", "description": "Volcanic geological areas", "tables_used": ["%s"]}
`, exampleSelectList(polygon, ""), polygon.Name, polygon.Name)
	}

	if line != nil && point != nil {
		fmt.Fprintf(&b, `
Query: "show faults in makkah region"
{"reasoning": "the line table has no region column; join with the point table which has one", "sql_query": "SELECT DISTINCT %s FROM %s f JOIN %s m ON ST_Intersects(ST_SetSRID(f.geom, 3857), ST_SetSRID(m.geom, 3857)) WHERE m.region ILIKE '%%Makkah%%'", "query_type": "line", "description": "Faults in Makkah region", "tables_used": ["%s", "%s"]}
`, exampleSelectList(line, "f"), line.Name, point.Name, line.Name, point.Name)
	}

	return strings.TrimRight(b.String(), "\n")
}

// canonicalTables picks the representative table per geometry kind, largest
// row count first.
func canonicalTables(cat *catalog.Catalog) (point, polygon, line *catalog.Table) {
	for _, name := range cat.Tables() {
		t := cat.Table(name)
		switch t.GeometryKind {
		case spatialdb.GeometryPoint:
			if point == nil || t.RowCount > point.RowCount {
				point = t
			}
		case spatialdb.GeometryPolygon:
			if polygon == nil || t.RowCount > polygon.RowCount {
				polygon = t
			}
		case spatialdb.GeometryLine:
			if line == nil || t.RowCount > line.RowCount {
				line = t
			}
		}
	}
	return point, polygon, line
}

// exampleSelectList builds the SELECT list for a worked example: the real
// columns with the geometry column replaced by the required output
// expression.
func exampleSelectList(t *catalog.Table, alias string) string {
	var cols []string
	for _, col := range t.Columns {
		if strings.EqualFold(col.Name, t.GeometryColumn) {
			continue
		}
		if alias != "" {
			cols = append(cols, alias+"."+col.Name)
		} else {
			cols = append(cols, col.Name)
		}
	}
	geomCol := t.GeometryColumn
	if geomCol == "" {
		geomCol = "geom"
	}
	if alias != "" {
		geomCol = alias + "." + geomCol
	}
	if out := catalog.GeometryOutput(t.GeometryKind, geomCol, t.SRID); out != "" {
		cols = append(cols, out)
	}
	return strings.Join(cols, ", ")
}

func hasColumns(t *catalog.Table, names ...string) bool {
	for _, want := range names {
		found := false
		for _, col := range t.Columns {
			if strings.EqualFold(col.Name, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
