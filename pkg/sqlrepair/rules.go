package sqlrepair

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/geoatlas/geoquery-engine/pkg/catalog"
	"github.com/geoatlas/geoquery-engine/pkg/spatialdb"
)

// --- rule 1: table names ---

var compoundTablePattern = regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+\w+_(deposits|mines|sites|occurrences)\b`)

// simpleTableAliases maps common wrong table names to a geometry kind; the
// pipeline resolves the kind to the canonical real table at apply time.
var simpleTableAliases = map[string]spatialdb.GeometryKind{
	"deposits":    spatialdb.GeometryPoint,
	"mines":       spatialdb.GeometryPoint,
	"sites":       spatialdb.GeometryPoint,
	"occurrences": spatialdb.GeometryPoint,
	"faults":      spatialdb.GeometryLine,
	"lines":       spatialdb.GeometryLine,
	"areas":       spatialdb.GeometryPolygon,
	"zones":       spatialdb.GeometryPolygon,
	"terranes":    spatialdb.GeometryPolygon,
}

func (p *Pipeline) tableForKind(kind spatialdb.GeometryKind) string {
	switch kind {
	case spatialdb.GeometryPoint:
		return p.pointTable
	case spatialdb.GeometryPolygon:
		return p.polygonTable
	case spatialdb.GeometryLine:
		return p.lineTable
	}
	return ""
}

// fixTableNames replaces hallucinated FROM/JOIN targets: compound names
// like gold_deposits, known wrong names like "faults", and finally a
// keyword-overlap match against the real table set. Unknown names with no
// reasonable match are left alone so execution fails with an honest error.
func (p *Pipeline) fixTableNames(sql string) string {
	if p.pointTable != "" {
		sql = compoundTablePattern.ReplaceAllString(sql, "${1} "+p.pointTable)
	}

	for _, ref := range parseTableRefs(sql) {
		if p.cat.HasTable(ref.Table) {
			continue
		}
		replacement := ""
		if kind, ok := simpleTableAliases[strings.ToLower(ref.Table)]; ok {
			replacement = p.tableForKind(kind)
		}
		if replacement == "" {
			replacement = p.cat.TableForKeywords(ref.Table)
		}
		if replacement == "" {
			continue
		}
		pattern := regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+` + regexp.QuoteMeta(ref.Table) + `\b`)
		sql = pattern.ReplaceAllString(sql, "${1} "+replacement)
	}
	return sql
}

// --- rule 2: column names ---

var columnFixes = []struct {
	pattern *regexp.Regexp
	target  string
}{
	{regexp.MustCompile(`(?i)\b(?:deposit|mine|site|area|fault)_id\b`), "gid"},
	{regexp.MustCompile(`(?i)\b(?:deposit|mine|site)_name\b`), "eng_name"},
	{regexp.MustCompile(`(?i)\barea_name\b`), "unit_name"},
	{regexp.MustCompile(`(?i)\bfault_(?:name|type)\b`), "newtype"},
	{regexp.MustCompile(`(?i)\bcommodity\b`), "major_comm"},
	{regexp.MustCompile(`(?i)\bimportance\b`), "occ_imp"},
	{regexp.MustCompile(`(?i)\b(?:rock_type|lithology)\b`), "main_litho"},
}

var (
	qualifiedIDPattern = regexp.MustCompile(`(?i)\b([A-Za-z_]\w*)\.id\b`)
	selectIDPattern    = regexp.MustCompile(`(?i)\bSELECT\s+id\s*,`)
	trailingIDPattern  = regexp.MustCompile(`(?i),\s*id\s+FROM\b`)
)

// fixColumnNames rewrites invented column names to the real ones, but only
// when the real column actually exists in the catalog.
func (p *Pipeline) fixColumnNames(sql string) string {
	for _, fix := range columnFixes {
		if p.columnExists(fix.target) {
			sql = fix.pattern.ReplaceAllString(sql, fix.target)
		}
	}
	if p.columnExists("gid") {
		sql = qualifiedIDPattern.ReplaceAllString(sql, "${1}.gid")
		sql = selectIDPattern.ReplaceAllString(sql, "SELECT gid,")
		sql = trailingIDPattern.ReplaceAllString(sql, ", gid FROM")
	}
	return sql
}

func (p *Pipeline) columnExists(name string) bool {
	for _, table := range p.cat.Tables() {
		if p.cat.HasColumn(table, name) {
			return true
		}
	}
	return false
}

// --- rule 3: select star ---

var selectStarPattern = regexp.MustCompile(`(?i)\bSELECT\s+\*\s+FROM\s+(\w+)`)

// fixSelectStar expands SELECT * into the table's real columns with the
// geometry column replaced by the standard output expression.
func (p *Pipeline) fixSelectStar(sql string) string {
	return selectStarPattern.ReplaceAllStringFunc(sql, func(match string) string {
		tableName := selectStarPattern.FindStringSubmatch(match)[1]
		t := p.cat.Table(tableName)
		if t == nil {
			return match
		}
		var cols []string
		for _, col := range t.Columns {
			if strings.EqualFold(col.Name, t.GeometryColumn) {
				continue
			}
			cols = append(cols, col.Name)
		}
		if out := catalog.GeometryOutput(t.GeometryKind, t.GeometryColumn, t.SRID); out != "" {
			cols = append(cols, out)
		}
		return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), t.Name)
	})
}

// --- rule 4: spatial SRID ---

const spatialOps = `ST_Intersects|ST_DWithin|ST_Within|ST_Contains|ST_Crosses|ST_Touches|ST_Overlaps`

var (
	bothBareGeoms  = regexp.MustCompile(`(?i)\b(` + spatialOps + `)\s*\(\s*((?:\w+\.)?geom)\s*,\s*((?:\w+\.)?geom)\b`)
	secondBareGeom = regexp.MustCompile(`(?i)\b(` + spatialOps + `)\s*\(\s*(ST_SetSRID\s*\([^)]+\))\s*,\s*((?:\w+\.)?geom)\b`)
	firstBareGeom  = regexp.MustCompile(`(?i)\b(` + spatialOps + `)\s*\(\s*((?:\w+\.)?geom)\s*,\s*(ST_SetSRID)`)
)

// fixSpatialSRID wraps bare geom arguments of spatial predicates in
// ST_SetSRID so comparisons between the web-mercator tables are valid.
func (p *Pipeline) fixSpatialSRID(sql string) string {
	sql = bothBareGeoms.ReplaceAllString(sql, "${1}(ST_SetSRID(${2}, 3857), ST_SetSRID(${3}, 3857)")
	sql = secondBareGeom.ReplaceAllString(sql, "${1}(${2}, ST_SetSRID(${3}, 3857)")
	sql = firstBareGeom.ReplaceAllString(sql, "${1}(ST_SetSRID(${2}, 3857), ${3}")
	return sql
}

// --- rule 5: geometry output ---

var (
	latOutputPattern  = regexp.MustCompile(`(?i),?\s*ST_Y\s*\(.*?\)\s*AS\s+latitude`)
	lonOutputPattern  = regexp.MustCompile(`(?i),?\s*ST_X\s*\(.*?\)\s*AS\s+longitude`)
	doubleCommaFix    = regexp.MustCompile(`,\s*,`)
	selectCommaFix    = regexp.MustCompile(`(?i)\bSELECT\s*,`)
	aggregatePattern  = regexp.MustCompile(`(?i)\b(COUNT|SUM|AVG|MIN|MAX)\s*\(`)
	selectStartsQuery = regexp.MustCompile(`(?i)^\s*SELECT\b`)
)

// ensureGeometryOutput guarantees the SELECT list carries the geometry
// output the map layer needs: geojson_geom for polygon/line primary tables
// (removing wrong ST_X/ST_Y first), latitude/longitude for point tables.
// Aggregate queries are left alone.
func (p *Pipeline) ensureGeometryOutput(sql string) string {
	if !selectStartsQuery.MatchString(sql) {
		return sql
	}
	refs := parseTableRefs(sql)
	if len(refs) == 0 {
		return sql
	}

	pointInQuery := false
	for _, ref := range refs {
		if t := p.cat.Table(ref.Table); t != nil && t.GeometryKind == spatialdb.GeometryPoint {
			pointInQuery = true
		}
	}

	selectEnd := strings.Index(strings.ToUpper(sql), " FROM ")
	if selectEnd < 0 {
		return sql
	}
	if aggregatePattern.MatchString(sql[:selectEnd]) {
		return sql
	}

	for _, ref := range refs {
		t := p.cat.Table(ref.Table)
		if t == nil {
			continue
		}
		switch t.GeometryKind {
		case spatialdb.GeometryPolygon, spatialdb.GeometryLine:
			if !pointInQuery {
				sql = latOutputPattern.ReplaceAllString(sql, "")
				sql = lonOutputPattern.ReplaceAllString(sql, "")
				sql = doubleCommaFix.ReplaceAllString(sql, ",")
				sql = selectCommaFix.ReplaceAllString(sql, "SELECT ")
			}
			if !strings.Contains(strings.ToUpper(sql), "GEOJSON_GEOM") {
				sql = p.injectGeometryOutput(sql, t, ref.Alias)
			}
		case spatialdb.GeometryPoint:
			upper := strings.ToUpper(sql)
			if ref == refs[0] && !strings.Contains(upper, "LATITUDE") && !strings.Contains(upper, "GEOJSON_GEOM") {
				sql = p.injectGeometryOutput(sql, t, ref.Alias)
			}
		}
	}
	return sql
}

// injectGeometryOutput appends the table's geometry output expression to the
// SELECT list, just before its FROM clause.
func (p *Pipeline) injectGeometryOutput(sql string, t *catalog.Table, alias string) string {
	fromPattern := regexp.MustCompile(`(?i)\bFROM\s+` + regexp.QuoteMeta(t.Name) + `\b`)
	loc := fromPattern.FindStringIndex(sql)
	if loc == nil {
		return sql
	}

	geomCol := t.GeometryColumn
	if geomCol == "" {
		geomCol = "geom"
	}
	if alias != "" {
		geomCol = alias + "." + geomCol
	}
	expr := catalog.GeometryOutput(t.GeometryKind, geomCol, t.SRID)
	if expr == "" {
		return sql
	}

	before := strings.TrimRight(strings.TrimRight(sql[:loc[0]], " \t\n"), ",")
	return before + ", " + expr + " " + sql[loc[0]:]
}

// --- rule 6: commodity OR ---

var commodityAndPattern = regexp.MustCompile(`(?i)\bmajor_comm\s+(ILIKE|=)\s+('[^']*')\s+AND\s+minor_comm\s+(?:ILIKE|=)\s+('[^']*')`)

// fixCommodityLogic rewrites the classic generation bug where a commodity
// search requires the value in BOTH commodity columns instead of either.
func (p *Pipeline) fixCommodityLogic(sql string) string {
	if !p.columnExists("major_comm") || !p.columnExists("minor_comm") {
		return sql
	}
	return commodityAndPattern.ReplaceAllStringFunc(sql, func(match string) string {
		m := commodityAndPattern.FindStringSubmatch(match)
		op, left, right := m[1], m[2], m[3]
		if !strings.EqualFold(left, right) {
			return match
		}
		return fmt.Sprintf("(major_comm %s %s OR minor_comm %s %s)", op, left, op, left)
	})
}

// --- rule 7: OR precedence ---

// fixOrPrecedence parenthesizes an un-parenthesized OR group in the first
// top-level AND segment of the WHERE clause, so the OR binds tighter than
// the following ANDs.
func (p *Pipeline) fixOrPrecedence(sql string) string {
	start, end, ok := whereClause(sql)
	if !ok {
		return sql
	}
	body := sql[start:end]

	segments := splitTopLevel(body, "AND")
	if len(segments) < 2 {
		return sql
	}
	first := segments[0]
	if !containsTopLevel(first, "OR") {
		return sql
	}

	rest := body[len(first):]
	newBody := "(" + strings.TrimSpace(first) + ")" + rest
	return sql[:start] + newBody + sql[end:]
}

// --- rule 8: case-insensitive comparisons ---

var stringEqualityPattern = regexp.MustCompile(`(?i)\b([A-Za-z_]\w*(?:\.\w+)?)\s*=\s*('[^']*')`)

// fixCaseInsensitive rewrites exact string equality to ILIKE so stored
// casing never hides a match.
func (p *Pipeline) fixCaseInsensitive(sql string) string {
	return stringEqualityPattern.ReplaceAllString(sql, "${1} ILIKE ${2}")
}

// --- rule 9: wildcards ---

var ilikeValuePattern = regexp.MustCompile(`(?i)\b([A-Za-z_]\w*(?:\.\w+)?)\s+ILIKE\s+'([^']*)'`)

// addWildcards wraps single-word free-text ILIKE values in %...% so partial
// names still match (a region stored as "Riyadh Region" matches 'riyadh').
// Identifier-like columns and configured exclusions keep exact values.
func (p *Pipeline) addWildcards(sql string) string {
	return ilikeValuePattern.ReplaceAllStringFunc(sql, func(match string) string {
		m := ilikeValuePattern.FindStringSubmatch(match)
		colRef, value := m[1], m[2]

		col := colRef
		if i := strings.LastIndex(col, "."); i >= 0 {
			col = col[i+1:]
		}
		col = strings.ToLower(col)

		if p.noWildcard[col] || strings.HasSuffix(col, "id") {
			return match
		}
		if value == "" || strings.ContainsAny(value, "% ") {
			return match
		}
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return match
		}
		return fmt.Sprintf("%s ILIKE '%%%s%%'", colRef, value)
	})
}

// --- rule 10: invalid columns ---

var (
	qualifiedColPattern = regexp.MustCompile(`\b([A-Za-z_]\w*)\.([A-Za-z_]\w*)`)
	bareComparePattern  = regexp.MustCompile(`(?i)\b([A-Za-z_]\w*)\s*(?:=|<>|!=|>=|<=|>|<|\bILIKE\b|\bLIKE\b|\bIN\b|\bIS\b|\bBETWEEN\b)`)
	quotedLiteral       = regexp.MustCompile(`'[^']*'`)
)

// stripInvalidColumns removes WHERE predicates that reference columns the
// referenced tables do not have, then collapses the dangling AND/OR chain.
// A query whose every predicate is invalid loses its WHERE clause entirely.
func (p *Pipeline) stripInvalidColumns(sql string) string {
	refs := parseTableRefs(sql)
	if len(refs) == 0 {
		return sql
	}
	aliasToTable := make(map[string]string)
	for _, ref := range refs {
		aliasToTable[strings.ToLower(ref.Table)] = ref.Table
		if ref.Alias != "" {
			aliasToTable[strings.ToLower(ref.Alias)] = ref.Table
		}
	}

	start, end, ok := whereClause(sql)
	if !ok {
		return sql
	}
	body := sql[start:end]

	var kept []string
	dropped := false
	for _, seg := range splitTopLevel(body, "AND") {
		orParts := splitTopLevel(seg, "OR")
		var keptOr []string
		for _, part := range orParts {
			if p.segmentValid(part, refs, aliasToTable) {
				keptOr = append(keptOr, strings.TrimSpace(part))
			} else {
				dropped = true
			}
		}
		if len(keptOr) > 0 {
			kept = append(kept, strings.Join(keptOr, " OR "))
		}
	}
	if !dropped {
		return sql
	}

	if len(kept) == 0 {
		// whole WHERE clause gone; also drop the keyword
		trimmed := strings.TrimRight(sql[:start], " \t\n")
		if strings.HasSuffix(strings.ToUpper(trimmed), "WHERE") {
			trimmed = trimmed[:len(trimmed)-len("WHERE")]
		}
		rest := strings.TrimLeft(sql[end:], " \t\n")
		if rest == "" {
			return strings.TrimRight(trimmed, " \t\n")
		}
		return strings.TrimRight(trimmed, " \t\n") + " " + rest
	}
	return sql[:start] + strings.Join(kept, " AND ") + sql[end:]
}

// segmentValid reports whether every column referenced in one predicate
// segment exists on the tables in scope.
func (p *Pipeline) segmentValid(segment string, refs []tableRef, aliasToTable map[string]string) bool {
	scrubbed := quotedLiteral.ReplaceAllString(segment, "''")

	for _, m := range qualifiedColPattern.FindAllStringSubmatch(scrubbed, -1) {
		qualifier, col := m[1], m[2]
		table, known := aliasToTable[strings.ToLower(qualifier)]
		if !known {
			continue
		}
		if !p.cat.HasColumn(table, col) {
			return false
		}
	}

	for _, m := range bareComparePattern.FindAllStringSubmatch(scrubbed, -1) {
		col := m[1]
		if strings.Contains(scrubbed, col+".") {
			continue
		}
		lower := strings.ToLower(col)
		if reservedAfterTable[lower] || lower == "not" || lower == "null" || lower == "true" || lower == "false" {
			continue
		}
		found := false
		for _, ref := range refs {
			if p.cat.HasColumn(ref.Table, col) {
				found = true
				break
			}
		}
		if !found && p.cat.HasTable(refs[0].Table) {
			return false
		}
	}
	return true
}

// --- rule 11: alias consistency ---

// fixAliasConsistency declares a table alias that qualified column
// references use but FROM/JOIN never introduced. Only the unambiguous
// single-table case is handled; anything else is left for execution to
// report.
func (p *Pipeline) fixAliasConsistency(sql string) string {
	refs := parseTableRefs(sql)
	if len(refs) == 0 {
		return sql
	}

	declared := make(map[string]bool)
	for _, ref := range refs {
		declared[strings.ToLower(ref.Table)] = true
		if ref.Alias != "" {
			declared[strings.ToLower(ref.Alias)] = true
		}
	}

	undeclared := make(map[string]bool)
	scrubbed := quotedLiteral.ReplaceAllString(sql, "''")
	for _, m := range qualifiedColPattern.FindAllStringSubmatch(scrubbed, -1) {
		q := strings.ToLower(m[1])
		if !declared[q] {
			undeclared[q] = true
		}
	}
	if len(undeclared) != 1 {
		return sql
	}

	var bare []tableRef
	for _, ref := range refs {
		if ref.Alias == "" {
			bare = append(bare, ref)
		}
	}
	if len(bare) != 1 {
		return sql
	}

	var alias string
	for q := range undeclared {
		alias = q
	}
	pattern := regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+(` + regexp.QuoteMeta(bare[0].Table) + `)\b`)
	replaced := false
	return pattern.ReplaceAllStringFunc(sql, func(match string) string {
		if replaced {
			return match
		}
		replaced = true
		return match + " " + alias
	})
}

// --- rule 12: DISTINCT on joins ---

var firstSelectPattern = regexp.MustCompile(`(?i)\bSELECT\b`)

// addDistinctToJoins adds DISTINCT to JOIN queries so spatial joins against
// overlapping polygons do not duplicate rows.
func (p *Pipeline) addDistinctToJoins(sql string) string {
	upper := strings.ToUpper(sql)
	if !strings.Contains(upper, " JOIN ") || strings.Contains(upper, "DISTINCT") {
		return sql
	}
	replaced := false
	return firstSelectPattern.ReplaceAllStringFunc(sql, func(match string) string {
		if replaced {
			return match
		}
		replaced = true
		return match + " DISTINCT"
	})
}
