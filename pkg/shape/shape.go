// Package shape turns query result rows into GeoJSON for the map layer.
// Polygon and line rows carry a geojson_geom column with a serialized
// geometry; point rows carry latitude/longitude columns. Rows without
// usable geometry are skipped rather than failing the whole collection.
package shape

import (
	"encoding/json"
	"strconv"
)

// Feature is a single GeoJSON feature. Geometry is kept as raw JSON since
// the database already serializes it.
type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// FeatureCollection is the standard GeoJSON container.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Visualization is the map payload attached to a query response.
type Visualization struct {
	GeoJSON      FeatureCollection `json:"geojson"`
	LayerType    string            `json:"layer_type"`
	FeatureCount int               `json:"feature_count"`
}

// geometry column names never copied into feature properties.
var geometryKeys = map[string]bool{
	"geom":         true,
	"geojson_geom": true,
	"latitude":     true,
	"longitude":    true,
	"lat":          true,
	"lon":          true,
	"lng":          true,
}

// Build converts result rows into a Visualization. queryType decides the
// layer type and whether rows without geojson_geom are tried as points.
func Build(rows []map[string]any, queryType string) *Visualization {
	features := make([]Feature, 0, len(rows))

	for _, row := range rows {
		if f, ok := geoJSONFeature(row); ok {
			features = append(features, f)
			continue
		}
		if queryType == "point" {
			if f, ok := pointFeature(row); ok {
				features = append(features, f)
			}
		}
	}

	return &Visualization{
		GeoJSON: FeatureCollection{
			Type:     "FeatureCollection",
			Features: features,
		},
		LayerType:    queryType,
		FeatureCount: len(features),
	}
}

// geoJSONFeature builds a feature from a geojson_geom column, which the
// database returns either as a JSON string or as an already-decoded value.
func geoJSONFeature(row map[string]any) (Feature, bool) {
	raw, ok := row["geojson_geom"]
	if !ok || raw == nil {
		return Feature{}, false
	}

	var geom json.RawMessage
	switch v := raw.(type) {
	case string:
		if v == "" || !json.Valid([]byte(v)) {
			return Feature{}, false
		}
		geom = json.RawMessage(v)
	case []byte:
		if len(v) == 0 || !json.Valid(v) {
			return Feature{}, false
		}
		geom = json.RawMessage(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return Feature{}, false
		}
		geom = encoded
	}

	return Feature{
		Type:       "Feature",
		Geometry:   geom,
		Properties: properties(row),
	}, true
}

// pointFeature builds a Point feature from latitude/longitude columns.
func pointFeature(row map[string]any) (Feature, bool) {
	lat, latOK := coordinate(row, "latitude", "lat")
	lon, lonOK := coordinate(row, "longitude", "lon", "lng")
	if !latOK || !lonOK {
		return Feature{}, false
	}

	geom, err := json.Marshal(map[string]any{
		"type":        "Point",
		"coordinates": []float64{lon, lat},
	})
	if err != nil {
		return Feature{}, false
	}

	return Feature{
		Type:       "Feature",
		Geometry:   geom,
		Properties: properties(row),
	}, true
}

// properties copies the row minus its geometry columns.
func properties(row map[string]any) map[string]any {
	props := make(map[string]any, len(row))
	for k, v := range row {
		if geometryKeys[k] {
			continue
		}
		props[k] = v
	}
	return props
}

// coordinate reads the first present key as a float. Database drivers hand
// back numerics in several shapes, so string and integer forms are accepted.
func coordinate(row map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := row[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				return f, true
			}
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
