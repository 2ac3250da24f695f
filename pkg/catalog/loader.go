package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/geoatlas/geoquery-engine/pkg/apperrors"
	"github.com/geoatlas/geoquery-engine/pkg/retry"
	"github.com/geoatlas/geoquery-engine/pkg/spatialdb"
)

const (
	// defaultSampleLimit bounds how many distinct values are read per column.
	defaultSampleLimit = 20

	// maxSampledRowCount skips sampling for columns of very large tables
	// where DISTINCT would be expensive and the values are unlikely to be
	// a closed vocabulary anyway.
	maxSampledRowCount = 5_000_000
)

// Loader builds Catalog snapshots from a SchemaSource and publishes them
// through an atomic pointer. Reload builds a complete new snapshot before
// swapping, so readers never observe a partially loaded catalog.
type Loader struct {
	source      spatialdb.SchemaSource
	logger      *zap.Logger
	sampleLimit int

	current atomic.Pointer[Catalog]
}

// NewLoader creates a Loader. Call Load before Snapshot.
func NewLoader(source spatialdb.SchemaSource, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		source:      source,
		logger:      logger.Named("catalog"),
		sampleLimit: defaultSampleLimit,
	}
}

// SetSampleLimit overrides how many distinct values are sampled per text
// column. Values below 1 keep the default.
func (l *Loader) SetSampleLimit(n int) {
	if n > 0 {
		l.sampleLimit = n
	}
}

// Snapshot returns the current catalog, or nil before the first Load.
func (l *Loader) Snapshot() *Catalog {
	return l.current.Load()
}

// Load discovers the schema and publishes a new snapshot. Discovery is
// retried with backoff; persistent failure surfaces as ErrSchemaUnavailable.
func (l *Loader) Load(ctx context.Context) error {
	cat, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*Catalog, error) {
		return l.build(ctx)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrSchemaUnavailable, err)
	}

	l.current.Store(cat)
	l.logger.Info("Published catalog snapshot",
		zap.Int("tables", len(cat.tables)),
		zap.Int("synonyms", len(cat.synonyms)))
	return nil
}

// Reload rebuilds the snapshot. In-flight requests keep the snapshot they
// already hold.
func (l *Loader) Reload(ctx context.Context) error {
	return l.Load(ctx)
}

func (l *Loader) build(ctx context.Context) (*Catalog, error) {
	tableMetas, err := l.source.DiscoverTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tables: %w", err)
	}
	if len(tableMetas) == 0 {
		return nil, fmt.Errorf("no tables discovered")
	}

	tables := make(map[string]*Table, len(tableMetas))
	for _, meta := range tableMetas {
		columnMetas, err := l.source.DiscoverColumns(ctx, meta.TableName)
		if err != nil {
			return nil, fmt.Errorf("discover columns for %s: %w", meta.TableName, err)
		}

		t := &Table{
			Name:           meta.TableName,
			GeometryKind:   meta.GeometryKind,
			GeometryColumn: meta.GeometryColumn,
			SRID:           meta.SRID,
			RowCount:       meta.RowCount,
			Columns:        make([]Column, 0, len(columnMetas)),
			ValueSamples:   make(map[string][]string),
		}
		for _, cm := range columnMetas {
			t.Columns = append(t.Columns, Column{
				Name:     cm.ColumnName,
				DataType: cm.DataType,
				Nullable: cm.IsNullable,
			})
		}

		l.sampleValues(ctx, t)
		tables[strings.ToLower(meta.TableName)] = t
	}

	return &Catalog{
		tables:   tables,
		synonyms: buildSynonyms(tables),
	}, nil
}

// sampleValues reads bounded distinct values from filterable text columns.
// Sampling failures are logged and skipped; a missing sample only degrades
// prompt quality, it never fails the load.
func (l *Loader) sampleValues(ctx context.Context, t *Table) {
	for _, col := range t.Columns {
		if !isSampleable(col) || t.RowCount > maxSampledRowCount {
			continue
		}
		values, err := l.source.GetDistinctValues(ctx, t.Name, col.Name, l.sampleLimit)
		if err != nil {
			l.logger.Warn("Skipping value sample",
				zap.String("table", t.Name),
				zap.String("column", col.Name),
				zap.Error(err))
			continue
		}
		if len(values) > 0 {
			t.ValueSamples[col.Name] = values
		}
	}
}

// isSampleable reports whether a column is worth sampling: text-typed and
// not an identifier or geometry column.
func isSampleable(col Column) bool {
	switch strings.ToLower(col.DataType) {
	case "text", "character varying", "varchar", "character", "char":
	default:
		return false
	}
	name := strings.ToLower(col.Name)
	if name == "geom" || name == "gid" || strings.HasSuffix(name, "id") {
		return false
	}
	return true
}
