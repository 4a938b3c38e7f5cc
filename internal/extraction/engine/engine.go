// Package engine fans out (chunk, sub-domain) jobs to a Completion
// provider under bounded concurrency and parses the replies into
// PartialResult values for the Result Merger.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/specvital/worker/internal/domain/extraction"
	"github.com/specvital/worker/internal/extraction/prompt"
)

const (
	defaultMaxConcurrency = 20
	defaultRequestTimeout = 60 * time.Second
)

// Options controls a single Extract invocation's concurrency and per-job
// deadline.
type Options struct {
	MaxConcurrency int
	RequestTimeout time.Duration
}

// Engine runs the bounded-concurrency fan-out described in the Parallel
// Extraction Engine: a semaphore-gated errgroup worker pool draining a
// declared-order job list, grounded on the teacher's Phase 2 fan-out
// (phase2Sem + errgroup.WithContext).
type Engine struct {
	completion extraction.Completion
	builder    *prompt.Builder
}

// New returns an Engine calling completion for every job's prompt.
func New(completion extraction.Completion, builder *prompt.Builder) *Engine {
	if builder == nil {
		builder = prompt.New()
	}
	return &Engine{completion: completion, builder: builder}
}

// Job pairs an extraction.Job with the resolved domain/sub-domain schema
// needed to build its prompt.
type Job struct {
	extraction.Job
	Domain          extraction.DomainDefinition
	RequestedFields []string
}

// Extract dispatches jobs in declared order under a concurrency bound of
// opts.MaxConcurrency (default 20), reporting per-job completion to
// onProgress (nil is a valid no-op). A job failure (provider error,
// timeout, or parse failure) yields an empty PartialResult for that job
// and never aborts the others; Extract itself only fails on cancellation
// or an empty job list.
func (e *Engine) Extract(ctx context.Context, jobs []Job, opts Options, onProgress func()) ([]extraction.PartialResult, error) {
	if len(jobs) == 0 {
		return nil, extraction.ErrSchemaEmpty
	}
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	results := make([]extraction.PartialResult, len(jobs))
	sem := semaphore.NewWeighted(int64(maxConcurrency))
	g, gCtx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			jobCtx, cancel := context.WithTimeout(gCtx, requestTimeout)
			result := e.runJob(jobCtx, job)
			cancel()

			mu.Lock()
			results[i] = result
			mu.Unlock()

			if onProgress != nil {
				onProgress()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, extraction.ErrCancelled
		}
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, extraction.ErrCancelled
	}

	return results, nil
}

func (e *Engine) runJob(ctx context.Context, job Job) extraction.PartialResult {
	empty := extraction.PartialResult{
		ChunkIndex:       job.Chunk.Index,
		SubDomainName:    job.SubDomain.Name,
		FieldValues:      map[string]extraction.Value{},
		SourceConfidence: 1.0,
	}

	text, err := e.builder.Build(job.Chunk.Text, job.Domain, []extraction.SubDomainDefinition{job.SubDomain}, job.RequestedFields)
	if err != nil {
		text = e.builder.BuildFallback(job.Chunk.Text, []extraction.SubDomainDefinition{job.SubDomain})
	}

	reply, err := e.completion.Generate(ctx, text, extraction.CompletionOptions{Temperature: 0})
	if err != nil {
		slog.WarnContext(ctx, "extraction job failed",
			"chunk_index", job.Chunk.Index, "sub_domain", job.SubDomain.Name, "error", err)
		return empty
	}

	values, err := parseFieldValues(reply)
	if err != nil {
		slog.WarnContext(ctx, "extraction job parse failed",
			"chunk_index", job.Chunk.Index, "sub_domain", job.SubDomain.Name, "error", err)
		return empty
	}

	empty.FieldValues = values
	return empty
}

// parseFieldValues decodes the LLM's JSON object reply into a field-value
// map, tolerating a markdown code fence around the object.
func parseFieldValues(reply string) (map[string]extraction.Value, error) {
	raw := stripCodeFence(reply)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parse field values: %w", err)
	}

	out := make(map[string]extraction.Value, len(decoded))
	for k, v := range decoded {
		out[k] = extraction.FromAny(v)
	}
	return out, nil
}

func stripCodeFence(s string) string {
	start := 0
	end := len(s)
	for start < len(s) && (s[start] == '\n' || s[start] == ' ' || s[start] == '\t' || s[start] == '\r') {
		start++
	}
	if start+3 <= len(s) && s[start:start+3] == "```" {
		rest := s[start+3:]
		if nl := indexByte(rest, '\n'); nl >= 0 {
			start = start + 3 + nl + 1
		}
	}
	for end > start && (s[end-1] == '\n' || s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\r') {
		end--
	}
	if end-3 >= start && s[end-3:end] == "```" {
		end -= 3
	}
	return s[start:end]
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
