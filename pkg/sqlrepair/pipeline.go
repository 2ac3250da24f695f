// Package sqlrepair deterministically corrects common classes of LLM
// generation mistakes in PostGIS SQL before execution: hallucinated table
// and column names, missing geometry output columns, missing SRID wrapping,
// wrong boolean logic on the commodity columns, and more. The pipeline is a
// fixed ordered list of named pure rewrites; it never errors, and applying
// it twice equals applying it once.
package sqlrepair

import (
	"strings"

	"go.uber.org/zap"

	"github.com/geoatlas/geoquery-engine/pkg/catalog"
	"github.com/geoatlas/geoquery-engine/pkg/spatialdb"
)

// Rule is one named idempotent rewrite. Apply must be a pure function that
// leaves its input unchanged when the rule's precondition does not hold.
type Rule struct {
	Name  string
	Apply func(sql string) string
}

// Options tunes pipeline behavior.
type Options struct {
	// WildcardExclusions lists columns whose comparison values must stay
	// exact (no %...% wrapping). Columns ending in "id" are always excluded.
	WildcardExclusions []string
}

// Pipeline applies the ordered repair rules against a catalog snapshot.
type Pipeline struct {
	cat    *catalog.Catalog
	logger *zap.Logger
	rules  []Rule

	pointTable   string
	polygonTable string
	lineTable    string
	noWildcard   map[string]bool
}

// New builds a repair pipeline for a catalog snapshot.
func New(cat *catalog.Catalog, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		cat:        cat,
		logger:     logger.Named("sqlrepair"),
		noWildcard: make(map[string]bool),
	}
	for _, col := range opts.WildcardExclusions {
		p.noWildcard[strings.ToLower(col)] = true
	}
	p.classifyTables()

	p.rules = []Rule{
		{"table-names", p.fixTableNames},
		{"column-names", p.fixColumnNames},
		{"select-star", p.fixSelectStar},
		{"spatial-srid", p.fixSpatialSRID},
		{"geometry-output", p.ensureGeometryOutput},
		{"commodity-or", p.fixCommodityLogic},
		{"or-precedence", p.fixOrPrecedence},
		{"case-insensitive", p.fixCaseInsensitive},
		{"wildcards", p.addWildcards},
		{"invalid-columns", p.stripInvalidColumns},
		{"alias-consistency", p.fixAliasConsistency},
		{"distinct-join", p.addDistinctToJoins},
	}
	return p
}

// Repair runs the full rule pipeline and returns the repaired SQL along with
// the names of the rules that changed it.
func (p *Pipeline) Repair(sql string) (string, []string) {
	var applied []string
	for _, rule := range p.rules {
		fixed := rule.Apply(sql)
		if fixed != sql {
			applied = append(applied, rule.Name)
			p.logger.Debug("Applied repair rule",
				zap.String("rule", rule.Name),
				zap.String("before", sql),
				zap.String("after", fixed))
			sql = fixed
		}
	}
	if len(applied) > 0 {
		p.logger.Info("Repaired SQL", zap.Strings("rules", applied))
	}
	return sql, applied
}

// RuleNames returns the ordered rule names, for diagnostics.
func (p *Pipeline) RuleNames() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name
	}
	return names
}

// classifyTables picks the canonical table per geometry kind. When several
// tables share a kind the one with the most rows wins, matching what users
// usually mean by "deposits" or "areas".
func (p *Pipeline) classifyTables() {
	var pointRows, polyRows, lineRows int64
	for _, name := range p.cat.Tables() {
		t := p.cat.Table(name)
		switch t.GeometryKind {
		case spatialdb.GeometryPoint:
			if p.pointTable == "" || t.RowCount > pointRows {
				p.pointTable, pointRows = t.Name, t.RowCount
			}
		case spatialdb.GeometryPolygon:
			if p.polygonTable == "" || t.RowCount > polyRows {
				p.polygonTable, polyRows = t.Name, t.RowCount
			}
		case spatialdb.GeometryLine:
			if p.lineTable == "" || t.RowCount > lineRows {
				p.lineTable, lineRows = t.Name, t.RowCount
			}
		}
	}
}
