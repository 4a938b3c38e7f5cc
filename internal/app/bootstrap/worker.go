// Package bootstrap provides application startup utilities for worker services.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riverqueue/river"

	"github.com/specvital/worker/internal/adapter/ai/gemini"
	"github.com/specvital/worker/internal/adapter/ai/mock"
	"github.com/specvital/worker/internal/adapter/queue/extract"
	"github.com/specvital/worker/internal/adapter/repository/postgres"
	"github.com/specvital/worker/internal/domain/extraction"
	"github.com/specvital/worker/internal/extraction/identify"
	"github.com/specvital/worker/internal/extraction/pipeline"
	"github.com/specvital/worker/internal/extraction/preprocess"
	"github.com/specvital/worker/internal/extraction/schema"
	"github.com/specvital/worker/internal/infra/config"
	"github.com/specvital/worker/internal/infra/db"
	infraqueue "github.com/specvital/worker/internal/infra/queue"
)

type WorkerConfig struct {
	ServiceName     string
	Concurrency     int
	ShutdownTimeout time.Duration
}

func (c *WorkerConfig) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = infraqueue.DefaultShutdownTimeout
	}
}

// StartWorker loads configuration, wires the extraction pipeline and runs
// a River queue server until it receives SIGTERM or SIGINT.
func StartWorker(cfg WorkerConfig) error {
	cfg.applyDefaults()

	cfgEnv, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("starting service", "name", cfg.ServiceName)
	slog.Info("config loaded", "database_url", maskURL(cfgEnv.DatabaseURL), "mock_mode", cfgEnv.MockMode)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfgEnv.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	slog.Info("postgres connected")

	registry := extraction.NewRegistry()
	schema.Register(registry)

	completion, embedder, closeProvider, err := buildProviders(ctx, cfgEnv)
	if err != nil {
		pool.Close()
		return fmt.Errorf("ai provider: %w", err)
	}

	var preprocessor *preprocess.Preprocessor
	if cfgEnv.Extraction.PreprocessEnabled {
		preprocessor = preprocess.New(completion, registry)
	}
	identifier := identify.New(registry)
	pl := pipeline.New(registry, completion, embedder, preprocessor, identifier)

	resultStore := postgres.NewResultStore(pool)
	extractWorker := extract.NewWorker(pl, resultStore)

	workers := river.NewWorkers()
	river.AddWorker(workers, extractWorker)

	srv, err := infraqueue.NewServer(ctx, infraqueue.ServerConfig{
		Pool: pool,
		Queues: []infraqueue.QueueAllocation{
			{Name: extract.QueueExtraction, MaxWorkers: cfg.Concurrency},
		},
		ShutdownTimeout: cfg.ShutdownTimeout,
		Workers:         workers,
	})
	if err != nil {
		pool.Close()
		return fmt.Errorf("queue server: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("start server: %w", err)
	}
	slog.Info("worker ready", "concurrency", cfg.Concurrency)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	sig := <-shutdown
	slog.Info("shutdown signal received", "signal", sig.String())

	if err := srv.Stop(ctx); err != nil {
		slog.Error("queue server stop", "error", err)
	} else {
		slog.Info("queue server stopped")
	}

	if closeProvider != nil {
		if err := closeProvider(); err != nil {
			slog.Error("ai provider close", "error", err)
		}
	}

	pool.Close()
	slog.Info("database pool closed")

	slog.Info("service shutdown complete", "name", cfg.ServiceName)
	return nil
}

// buildProviders returns the completion and embedding providers for the
// configured mode, along with a close func for the underlying client.
func buildProviders(ctx context.Context, cfgEnv *config.Config) (extraction.Completion, extraction.Embedder, func() error, error) {
	if cfgEnv.MockMode {
		slog.Info("ai provider", "mode", "mock")
		provider := mock.NewProvider()
		return provider, provider, provider.Close, nil
	}

	slog.Info("ai provider", "mode", "gemini")
	provider, err := gemini.NewProvider(ctx, gemini.Config{
		APIKey:          cfgEnv.LLM.APIKey,
		CompletionModel: cfgEnv.LLM.Model,
		EmbeddingModel:  cfgEnv.Embedding.Model,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return provider, provider, provider.Close, nil
}
