package catalog

import (
	"fmt"
	"strings"

	"github.com/geoatlas/geoquery-engine/pkg/spatialdb"
)

// maxPromptSamples caps the sample values shown per column in the prompt.
const maxPromptSamples = 6

// PromptDescription renders the schema as compact text for the synthesis
// system prompt: every table with its geometry kind, its full column list,
// the required geometry output columns, and sampled values.
func (c *Catalog) PromptDescription() string {
	var b strings.Builder
	for _, name := range c.Tables() {
		t := c.tables[name]
		fmt.Fprintf(&b, "TABLE: %s (%s)\n", t.Name, strings.ToUpper(string(t.GeometryKind)))
		fmt.Fprintf(&b, "  Columns: %s\n", strings.Join(c.ColumnNames(t.Name), ", "))
		if out := GeometryOutput(t.GeometryKind, t.GeometryColumn, t.SRID); out != "" {
			fmt.Fprintf(&b, "  Output: %s\n", out)
		}
		fmt.Fprintf(&b, "  query_type: %q\n", QueryType(t.GeometryKind))

		for _, col := range t.Columns {
			samples := t.ValueSamples[col.Name]
			if len(samples) == 0 {
				continue
			}
			if len(samples) > maxPromptSamples {
				samples = samples[:maxPromptSamples]
			}
			fmt.Fprintf(&b, "  Sample %s: %s\n", col.Name, strings.Join(samples, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// GeometryOutput returns the SELECT expression(s) a query against a table
// of the given geometry kind must include so the map layer can render it.
func GeometryOutput(kind spatialdb.GeometryKind, geometryColumn string, srid int) string {
	if geometryColumn == "" {
		geometryColumn = "geom"
	}
	if srid == 0 {
		srid = 3857
	}
	transform := fmt.Sprintf("ST_Transform(ST_SetSRID(%s, %d), 4326)", geometryColumn, srid)

	switch kind {
	case spatialdb.GeometryPoint:
		return fmt.Sprintf("ST_Y(%s) AS latitude, ST_X(%s) AS longitude", transform, transform)
	case spatialdb.GeometryPolygon, spatialdb.GeometryLine:
		return fmt.Sprintf("ST_AsGeoJSON(%s) AS geojson_geom", transform)
	default:
		return ""
	}
}

// QueryType maps a geometry kind to the query_type value the API reports.
func QueryType(kind spatialdb.GeometryKind) string {
	switch kind {
	case spatialdb.GeometryPoint:
		return "point"
	case spatialdb.GeometryPolygon:
		return "polygon"
	case spatialdb.GeometryLine:
		return "line"
	default:
		return "table"
	}
}
