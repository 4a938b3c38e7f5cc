// Command extractctl runs one extraction locally, against a file, without
// enqueuing a River job. Useful for ad-hoc testing
// of a domain registration or a prompt change outside the queue.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/specvital/worker/internal/adapter/ai/gemini"
	"github.com/specvital/worker/internal/adapter/ai/mock"
	"github.com/specvital/worker/internal/adapter/document"
	"github.com/specvital/worker/internal/domain/extraction"
	"github.com/specvital/worker/internal/extraction/identify"
	"github.com/specvital/worker/internal/extraction/pipeline"
	"github.com/specvital/worker/internal/extraction/preprocess"
	"github.com/specvital/worker/internal/extraction/schema"
	"github.com/specvital/worker/internal/infra/config"
)

func main() {
	query := flag.String("query", "", "extraction query, e.g. 'patient name and diagnosis'")
	path := flag.String("file", "", "path to the document to extract from")
	mockMode := flag.Bool("mock", false, "use the deterministic mock AI provider instead of Gemini")
	flag.Parse()

	if *query == "" || *path == "" {
		printUsage()
		os.Exit(1)
	}

	if err := run(*query, *path, *mockMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: extractctl -query <text> -file <path> [-mock]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  extractctl -query 'patient name and diagnosis' -file intake.txt")
	fmt.Fprintln(os.Stderr, "  extractctl -mock -query 'admission date' -file intake.txt")
}

func run(query, path string, mockMode bool) error {
	ctx := context.Background()

	cfgEnv, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry := extraction.NewRegistry()
	schema.Register(registry)

	completion, embedder, closeProvider, err := providersFor(ctx, cfgEnv, mockMode)
	if err != nil {
		return fmt.Errorf("ai provider: %w", err)
	}
	defer closeProvider()

	var preprocessor *preprocess.Preprocessor
	if cfgEnv.Extraction.PreprocessEnabled {
		preprocessor = preprocess.New(completion, registry)
	}
	identifier := identify.New(registry)
	pl := pipeline.New(registry, completion, embedder, preprocessor, identifier)

	source := document.NewFileSource(path)

	out, err := pl.Extract(ctx, pipeline.Request{
		Query:  query,
		Source: source,
		Opts: pipeline.Options{
			ChunkSize:          cfgEnv.Extraction.ChunkSize,
			ChunkOverlap:       cfgEnv.Extraction.ChunkOverlap,
			MaxConcurrency:     cfgEnv.Extraction.MaxConcurrency,
			RequestTimeout:     cfgEnv.Extraction.RequestTimeout,
			ExtractionDeadline: 5 * time.Minute,
			DedupThreshold:     cfgEnv.Extraction.DedupThreshold,
			MinFieldConfidence: cfgEnv.Extraction.MinFieldConfidence,
			PreprocessEnabled:  cfgEnv.Extraction.PreprocessEnabled,
			OutputFormats:      []extraction.OutputFormat{extraction.OutputStructured, extraction.OutputFlatText},
		},
	}, extraction.NoopProgressSink{})
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out.Structured); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	slog.Info("extraction complete", "elapsed", out.Elapsed.String())
	return nil
}

func providersFor(ctx context.Context, cfgEnv *config.Config, mockMode bool) (extraction.Completion, extraction.Embedder, func() error, error) {
	if mockMode || cfgEnv.MockMode {
		provider := mock.NewProvider()
		return provider, provider, provider.Close, nil
	}

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
