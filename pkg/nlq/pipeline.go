package nlq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geoatlas/geoquery-engine/pkg/apperrors"
	"github.com/geoatlas/geoquery-engine/pkg/catalog"
	"github.com/geoatlas/geoquery-engine/pkg/llm"
	"github.com/geoatlas/geoquery-engine/pkg/spatialdb"
	"github.com/geoatlas/geoquery-engine/pkg/sqlguard"
	"github.com/geoatlas/geoquery-engine/pkg/sqlrepair"
)

// Config tunes the retry controller.
type Config struct {
	// MaxAttempts bounds synthesis attempts per request.
	MaxAttempts int
	// RowLimit caps result rows when the user did not ask for a count.
	RowLimit int
	// SynthesisTimeout bounds each LLM call.
	SynthesisTimeout time.Duration
	// ExecutionTimeout bounds each EXPLAIN and execution call.
	ExecutionTimeout time.Duration
	// WildcardExclusions lists columns whose values stay exact in repair.
	WildcardExclusions []string
}

// DefaultConfig returns the standard pipeline tuning.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      4,
		RowLimit:         10000,
		SynthesisTimeout: 60 * time.Second,
		ExecutionTimeout: 30 * time.Second,
	}
}

// Pipeline runs the full question-to-rows flow with bounded retry.
type Pipeline interface {
	Execute(ctx context.Context, rawQuery string) (*Result, error)
}

type pipeline struct {
	loader   *catalog.Loader
	synth    Synthesizer
	executor spatialdb.QueryExecutor
	cfg      Config
	logger   *zap.Logger
}

// NewPipeline wires the retry controller. The catalog loader provides the
// snapshot each request reads; the executor runs EXPLAIN validation and the
// final query.
func NewPipeline(loader *catalog.Loader, synth Synthesizer, executor spatialdb.QueryExecutor, cfg Config, logger *zap.Logger) Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = DefaultConfig().RowLimit
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = DefaultConfig().SynthesisTimeout
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = DefaultConfig().ExecutionTimeout
	}
	return &pipeline{
		loader:   loader,
		synth:    synth,
		executor: executor,
		cfg:      cfg,
		logger:   logger.Named("pipeline"),
	}
}

var _ Pipeline = (*pipeline)(nil)

func (p *pipeline) Execute(ctx context.Context, rawQuery string) (*Result, error) {
	rawQuery = strings.TrimSpace(rawQuery)
	if rawQuery == "" {
		return nil, apperrors.ErrEmptyQuery
	}

	cat := p.loader.Snapshot()
	if cat == nil {
		return nil, apperrors.ErrSchemaUnavailable
	}

	nq := Normalize(rawQuery, cat)
	decision := SelectStrategy(nq, cat)
	repairer := sqlrepair.New(cat, sqlrepair.Options{WildcardExclusions: p.cfg.WildcardExclusions}, p.logger)

	limit := ExtractLimit(rawQuery)
	if limit == 0 {
		limit = p.cfg.RowLimit
	}

	p.logger.Info("Executing query",
		zap.String("query", rawQuery),
		zap.String("normalized", nq.Text),
		zap.String("strategy", string(decision.Strategy)),
		zap.Int("limit", limit))

	var history AttemptHistory
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("request canceled: %w", err)
		}

		candidate, err := p.synthesize(ctx, SynthesisRequest{
			Catalog:  cat,
			Query:    nq,
			Decision: decision,
			History:  history,
			Attempt:  attempt,
		})
		if err != nil {
			lastErr = err
			var formatErr *FormatError
			if errors.As(err, &formatErr) || llm.ClassifyError(err).Retryable {
				p.logger.Warn("Synthesis attempt failed",
					zap.Int("attempt", attempt), zap.Error(err))
				history.Record(attempt, "", err)
				continue
			}
			return nil, fmt.Errorf("synthesis: %w", err)
		}

		repaired, rules := repairer.Repair(candidate.SQL)
		queryType := DeriveQueryType(cat, repaired, candidate.QueryType)

		validation := sqlguard.ValidateAndNormalize(repaired)
		if validation.Error != nil {
			lastErr = &ExecutionError{SQL: repaired, Message: validation.Error.Error()}
			p.logger.Warn("Guard rejected SQL",
				zap.Int("attempt", attempt), zap.Error(validation.Error))
			history.Record(attempt, repaired, validation.Error)
			continue
		}
		sql := validation.NormalizedSQL

		if err := p.validate(ctx, sql); err != nil {
			lastErr = &ExecutionError{SQL: sql, Message: err.Error()}
			p.logger.Warn("EXPLAIN validation failed",
				zap.Int("attempt", attempt), zap.Error(err))
			history.Record(attempt, sql, err)
			continue
		}

		queryResult, err := p.execute(ctx, sql, limit)
		if err != nil {
			lastErr = &ExecutionError{SQL: sql, Message: err.Error()}
			p.logger.Warn("Execution failed",
				zap.Int("attempt", attempt), zap.Error(err))
			history.Record(attempt, sql, err)
			continue
		}

		p.logger.Info("Query succeeded",
			zap.Int("attempt", attempt),
			zap.Int("rows", queryResult.RowCount),
			zap.Strings("repairs", rules))

		return &Result{
			NaturalQuery:    rawQuery,
			NormalizedQuery: nq.Text,
			SQLQuery:        sql,
			QueryType:       queryType,
			Description:     candidate.Description,
			TablesUsed:      candidate.TablesUsed,
			Strategy:        decision.Strategy,
			Columns:         queryResult.Columns,
			Rows:            queryResult.Rows,
			RowCount:        queryResult.RowCount,
			Attempts:        attempt,
			RepairRules:     rules,
			FailedAttempts:  history,
		}, nil
	}

	return nil, &RetriesExhaustedError{
		Attempts: p.cfg.MaxAttempts,
		History:  history,
		LastErr:  lastErr,
	}
}

func (p *pipeline) synthesize(ctx context.Context, req SynthesisRequest) (*SqlCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.SynthesisTimeout)
	defer cancel()
	return p.synth.Synthesize(ctx, req)
}

func (p *pipeline) validate(ctx context.Context, sql string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ExecutionTimeout)
	defer cancel()
	return p.executor.ValidateQuery(ctx, sql)
}

func (p *pipeline) execute(ctx context.Context, sql string, limit int) (*spatialdb.QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ExecutionTimeout)
	defer cancel()
	return p.executor.ExecuteQuery(ctx, sql, limit)
}
