// Command enqueue inserts a durable extraction job onto the River queue
// for the worker to pick up, rather than running the pipeline in-process
// the way extractctl does.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/specvital/worker/internal/adapter/queue/extract"
	"github.com/specvital/worker/internal/infra/config"
	"github.com/specvital/worker/internal/infra/db"
	"github.com/specvital/worker/internal/infra/queue"
)

func main() {
	query := flag.String("query", "", "extraction query, e.g. 'patient name and diagnosis'")
	path := flag.String("file", "", "path to the document to extract from")
	jobID := flag.String("job-id", "", "job ID; a random UUID is generated if omitted")
	flag.Parse()

	if *query == "" || *path == "" {
		printUsage()
		os.Exit(1)
	}

	if err := run(*query, *path, *jobID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to enqueue job: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: enqueue -query <text> -file <path> [-job-id <id>]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  enqueue -query 'patient name and diagnosis' -file intake.txt")
}

func run(query, path, jobID string) error {
	ctx := context.Background()

	cfgEnv, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if jobID == "" {
		jobID = uuid.NewString()
	}

	pool, err := db.NewPool(ctx, cfgEnv.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer pool.Close()

	client, err := queue.NewClient(ctx, pool)
	if err != nil {
		return fmt.Errorf("create queue client: %w", err)
	}
	defer client.Close()

	args := extract.ExtractArgs{
		JobID:              jobID,
		Query:              query,
		DocumentPath:       path,
		ChunkSize:          cfgEnv.Extraction.ChunkSize,
		ChunkOverlap:       cfgEnv.Extraction.ChunkOverlap,
		MaxConcurrency:     cfgEnv.Extraction.MaxConcurrency,
		RequestTimeoutSecs: int(cfgEnv.Extraction.RequestTimeout.Seconds()),
		DedupThreshold:     cfgEnv.Extraction.DedupThreshold,
		MinFieldConfidence: cfgEnv.Extraction.MinFieldConfidence,
		PreprocessDisabled: !cfgEnv.Extraction.PreprocessEnabled,
		OutputFormats:      []string{"structured", "flat_text"},
	}

	if err := client.EnqueueExtraction(ctx, args); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}

	slog.Info("job enqueued", "job_id", jobID, "file", path)
	return nil
}
