package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/geoatlas/geoquery-engine/pkg/catalog"
	"github.com/geoatlas/geoquery-engine/pkg/config"
	"github.com/geoatlas/geoquery-engine/pkg/handlers"
	"github.com/geoatlas/geoquery-engine/pkg/llm"
	"github.com/geoatlas/geoquery-engine/pkg/middleware"
	"github.com/geoatlas/geoquery-engine/pkg/nlq"
	"github.com/geoatlas/geoquery-engine/pkg/spatialdb"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load("config.yaml", Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Database),
		zap.String("db_host", cfg.Database.Host),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := spatialdb.New(ctx, cfg.SpatialDB(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to spatial database", zap.Error(err))
	}
	defer db.Close()

	loader := catalog.NewLoader(db, logger)
	loader.SetSampleLimit(cfg.Pipeline.SampleLimit)
	if err := loader.Load(ctx); err != nil {
		logger.Fatal("Failed to load spatial schema", zap.Error(err))
	}
	logger.Info("Schema catalog loaded",
		zap.Int("tables", len(loader.Snapshot().Tables())))

	llmClient, err := llm.NewFromConfig(cfg.LLMFactory(), logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	synthesizer := nlq.NewSynthesizer(llmClient, logger)
	pipeline := nlq.NewPipeline(loader, synthesizer, db, cfg.PipelineSettings(), logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(pipeline, loader, logger).RegisterRoutes(mux)

	handler := middleware.RequestID(middleware.RequestLogger(logger)(mux))

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting geoquery-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
