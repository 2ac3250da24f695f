package spatialdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/geoatlas/geoquery-engine/pkg/retry"
)

// Adapter wraps a pgx pool and implements both SchemaSource and QueryExecutor.
type Adapter struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New connects to the spatial database and returns an adapter.
// Connection establishment is retried with backoff since PostGIS containers
// commonly come up after the engine in local deployments.
func New(ctx context.Context, cfg *Config, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connStr := buildConnectionString(cfg)

	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		p, err := pgxpool.New(ctx, connStr)
		if err != nil {
			return nil, err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to spatial database: %w", err)
	}

	logger.Info("Connected to spatial database",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &Adapter{
		pool:   pool,
		logger: logger.Named("spatialdb"),
	}, nil
}

// Close releases the connection pool.
func (a *Adapter) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// Ensure Adapter implements both interfaces at compile time.
var (
	_ SchemaSource  = (*Adapter)(nil)
	_ QueryExecutor = (*Adapter)(nil)
)
