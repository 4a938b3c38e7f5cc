// Package extract wires the Pipeline Orchestrator to a durable River
// queue worker, adapted from the teacher's analysis worker
// (internal/adapter/queue/analyze).
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/specvital/worker/internal/adapter/document"
	"github.com/specvital/worker/internal/domain/extraction"
	"github.com/specvital/worker/internal/extraction/pipeline"
)

const (
	// QueueExtraction is the sole queue this worker drains; unlike the
	// teacher's tiered analysis queues, field extraction jobs have no
	// per-user fairness concern.
	QueueExtraction = "extraction"

	maxRetryAttempts = 3
)

// ResultStore persists a finished Output so it can be retrieved once the
// job completes. Implemented by internal/adapter/repository/postgres.
type ResultStore interface {
	Save(ctx context.Context, jobID string, output extraction.Output) error
}

// ExtractArgs is the durable payload for one extraction job. Exactly one
// of DocumentText or DocumentPath must be set.
type ExtractArgs struct {
	JobID        string `json:"job_id" river:"unique"`
	Query        string `json:"query"`
	DocumentText string `json:"document_text,omitempty"`
	DocumentPath string `json:"document_path,omitempty"`

	ChunkSize          int      `json:"chunk_size,omitempty"`
	ChunkOverlap       int      `json:"chunk_overlap,omitempty"`
	MaxConcurrency     int      `json:"max_concurrency,omitempty"`
	RequestTimeoutSecs int      `json:"request_timeout_secs,omitempty"`
	DeadlineSecs       int      `json:"deadline_secs,omitempty"`
	DedupThreshold     float64  `json:"dedup_threshold,omitempty"`
	MinFieldConfidence float64  `json:"min_field_confidence,omitempty"`
	PreprocessDisabled bool     `json:"preprocess_disabled,omitempty"`
	OutputFormats      []string `json:"output_formats,omitempty"`
}

func (ExtractArgs) Kind() string { return "extraction:extract" }

func (ExtractArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueExtraction,
		MaxAttempts: maxRetryAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	}
}

// Worker drives the Pipeline Orchestrator from a River job and persists
// whatever Output it produces.
type Worker struct {
	river.WorkerDefaults[ExtractArgs]
	pipeline *pipeline.Pipeline
	store    ResultStore
}

// NewWorker creates a Worker over pipeline, persisting results via store.
func NewWorker(pl *pipeline.Pipeline, store ResultStore) *Worker {
	return &Worker{pipeline: pl, store: store}
}

// Timeout bounds the whole job, including document loading and every
// pipeline phase. Individual field-extraction calls have their own,
// shorter per-job timeout inside the Parallel Extraction Engine.
func (w *Worker) Timeout(job *river.Job[ExtractArgs]) time.Duration {
	return 10 * time.Minute
}

// NextRetry backs off quadratically with attempt count, mirroring the
// analysis worker's schedule.
func (w *Worker) NextRetry(job *river.Job[ExtractArgs]) time.Time {
	attempt := job.Attempt
	backoff := time.Duration(attempt*attempt) * time.Second
	return time.Now().Add(backoff)
}

func (w *Worker) Work(ctx context.Context, job *river.Job[ExtractArgs]) error {
	args := job.Args

	slog.InfoContext(ctx, "processing extraction job",
		"job_id", args.JobID,
		"river_job_id", job.ID,
	)

	source, err := documentSource(args)
	if err != nil {
		slog.ErrorContext(ctx, "extraction job has no usable document source",
			"job_id", args.JobID,
			"error", err,
		)
		return river.JobCancel(err)
	}

	req := pipeline.Request{
		Query:  args.Query,
		Source: source,
		Opts:   requestOptions(args),
	}

	output, err := w.pipeline.Extract(ctx, req, extraction.NoopProgressSink{})
	if err != nil {
		slog.ErrorContext(ctx, "extraction job failed",
			"job_id", args.JobID,
			"error", err,
		)
		return err
	}

	if err := w.store.Save(ctx, args.JobID, output); err != nil {
		slog.ErrorContext(ctx, "failed to persist extraction result",
			"job_id", args.JobID,
			"error", err,
		)
		return err
	}

	slog.InfoContext(ctx, "extraction job completed",
		"job_id", args.JobID,
		"elapsed", output.Elapsed,
	)
	return nil
}

func documentSource(args ExtractArgs) (extraction.DocumentSource, error) {
	switch {
	case args.DocumentText != "":
		return document.NewPlainTextSource(args.DocumentText), nil
	case args.DocumentPath != "":
		return document.NewFileSource(args.DocumentPath), nil
	default:
		return nil, fmt.Errorf("%w: job has neither document_text nor document_path", extraction.ErrInvalidInput)
	}
}

func requestOptions(args ExtractArgs) pipeline.Options {
	opts := pipeline.Options{
		ChunkSize:          args.ChunkSize,
		ChunkOverlap:       args.ChunkOverlap,
		MaxConcurrency:     args.MaxConcurrency,
		DedupThreshold:     args.DedupThreshold,
		MinFieldConfidence: args.MinFieldConfidence,
		PreprocessEnabled:  !args.PreprocessDisabled,
	}
	if args.RequestTimeoutSecs > 0 {
		opts.RequestTimeout = time.Duration(args.RequestTimeoutSecs) * time.Second
	}
	if args.DeadlineSecs > 0 {
		opts.ExtractionDeadline = time.Duration(args.DeadlineSecs) * time.Second
	}
	for _, f := range args.OutputFormats {
		opts.OutputFormats = append(opts.OutputFormats, extraction.OutputFormat(f))
	}
	return opts
}
