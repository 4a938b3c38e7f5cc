// Package pipeline exposes the single Extract entry point composing the
// Chunker, Query Preprocessor, Domain Identifier, Parallel Extraction
// Engine, Result Merger, Temporal Normalizer, Null Filter and Output
// Formatter into one sequenced, cancellable operation.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/specvital/worker/internal/domain/extraction"
	"github.com/specvital/worker/internal/extraction/chunk"
	"github.com/specvital/worker/internal/extraction/engine"
	"github.com/specvital/worker/internal/extraction/format"
	"github.com/specvital/worker/internal/extraction/merge"
	"github.com/specvital/worker/internal/extraction/nullfilter"
	"github.com/specvital/worker/internal/extraction/preprocess"
	"github.com/specvital/worker/internal/extraction/progress"
	"github.com/specvital/worker/internal/extraction/prompt"
	"github.com/specvital/worker/internal/extraction/temporal"
)

const preprocessConfidenceFloor = 0.7

// Options carries every tunable the orchestrator and its collaborators
// need for one Extract call.
type Options struct {
	ChunkSize          int
	ChunkOverlap       int
	MaxConcurrency     int
	RequestTimeout     time.Duration
	ExtractionDeadline time.Duration
	DedupThreshold     float64
	MinFieldConfidence float64
	PreprocessEnabled  bool
	OutputFormats      []extraction.OutputFormat
	SegmentSeparator   string
}

// Pipeline wires the Registry and the LLM collaborators needed to run
// Extract. All fields are read-only after construction.
type Pipeline struct {
	registry    *extraction.Registry
	completion  extraction.Completion
	embedder    extraction.Embedder
	preprocess  *preprocess.Preprocessor
	identifier  interface {
		Plan(query, llmHintedDomain string, minConfidence float64) extraction.ExtractionPlan
	}
	builder *prompt.Builder
}

// New returns a Pipeline. identifier is accepted as an interface so
// callers can supply a test double; production callers pass
// identify.New(registry).
func New(
	registry *extraction.Registry,
	completion extraction.Completion,
	embedder extraction.Embedder,
	preprocessor *preprocess.Preprocessor,
	identifier interface {
		Plan(query, llmHintedDomain string, minConfidence float64) extraction.ExtractionPlan
	},
) *Pipeline {
	return &Pipeline{
		registry:   registry,
		completion: completion,
		embedder:   embedder,
		preprocess: preprocessor,
		identifier: identifier,
		builder:    prompt.New(),
	}
}

// Request is one Extract invocation's input: a query to plan from (or a
// pre-resolved plan), the document source to load, and per-call options.
type Request struct {
	Query  string
	Plan   *extraction.ExtractionPlan
	Source extraction.DocumentSource
	Opts   Options
}

// Extract runs the full phase sequence, reporting progress to sink (which
// may be extraction.NoopProgressSink{}) and observing ctx cancellation at
// every suspension point.
func (p *Pipeline) Extract(ctx context.Context, req Request, sink extraction.ProgressSink) (extraction.Output, error) {
	start := timeNow()
	if sink == nil {
		sink = extraction.NoopProgressSink{}
	}
	tracker := progress.New(sink)

	if req.Opts.ExtractionDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Opts.ExtractionDeadline)
		defer cancel()
	}

	tracker.Update(extraction.PhaseInit, "validating request", 100)
	if req.Source == nil {
		return extraction.Output{}, fmt.Errorf("%w: document source is required", extraction.ErrInvalidInput)
	}

	plan, err := p.resolvePlan(ctx, req, tracker)
	if err != nil {
		tracker.Update(extraction.PhaseError, err.Error(), 100)
		return extraction.Output{}, err
	}

	domain, subDomains, err := p.resolveSchema(plan)
	if err != nil {
		tracker.Update(extraction.PhaseError, err.Error(), 100)
		return extraction.Output{}, err
	}

	tracker.Update(extraction.PhaseLoadDoc, "loading document", 0)
	segments, err := req.Source.Load(ctx)
	if err != nil {
		tracker.Update(extraction.PhaseError, err.Error(), 100)
		return extraction.Output{}, fmt.Errorf("load document: %w", err)
	}
	if ctx.Err() != nil {
		return extraction.Output{}, extraction.ErrCancelled
	}
	tracker.Update(extraction.PhaseLoadDoc, "document loaded", 100)

	separator := req.Opts.SegmentSeparator
	if separator == "" {
		separator = "\n\n"
	}
	text := joinSegments(segments, separator)

	tracker.Update(extraction.PhaseChunk, "chunking", 0)
	chunker := chunk.New(chunk.Config{ChunkSize: req.Opts.ChunkSize, ChunkOverlap: req.Opts.ChunkOverlap})
	chunks := chunker.Split(text, "")
	if len(chunks) == 0 {
		err := fmt.Errorf("%w: chunker produced no chunks", extraction.ErrChunkingFailed)
		tracker.Update(extraction.PhaseError, err.Error(), 100)
		return extraction.Output{}, err
	}
	tracker.Update(extraction.PhaseChunk, "chunking complete", 100)

	jobs := buildJobs(chunks, domain, subDomains, plan.Fields)
	tracker.SetFieldExtractTotal(len(jobs))

	eng := engine.New(p.completion, p.builder)
	partials, err := eng.Extract(ctx, jobs, engine.Options{
		MaxConcurrency: req.Opts.MaxConcurrency,
		RequestTimeout: req.Opts.RequestTimeout,
	}, func() { tracker.AdvanceFieldExtract("field extraction job complete") })
	if err != nil {
		tracker.Update(extraction.PhaseError, err.Error(), 100)
		return extraction.Output{}, err
	}

	tracker.Update(extraction.PhaseResultMerging, "merging per-chunk results", 0)
	subDomainOrder := subDomainNames(subDomains)
	chunkResults := mergeChunks(chunks, partials, subDomainOrder)
	tracker.Update(extraction.PhaseResultMerging, "per-chunk merge complete", 50)

	tracker.Update(extraction.PhaseTemporalNormalize, "normalizing dates", 0)
	dateFields := dateFieldSet(domain, subDomains)
	normalizer := temporal.New(p.completion)
	for i := range chunkResults {
		chunkResults[i].FieldValues = normalizer.NormalizeFields(ctx, chunkResults[i].FieldValues, dateFields)
	}
	if ctx.Err() != nil {
		return extraction.Output{}, extraction.ErrCancelled
	}
	tracker.Update(extraction.PhaseTemporalNormalize, "date normalization complete", 100)

	fieldMeta := fieldMetaFor(domain, subDomains)
	final, err := merge.CrossChunkMerge(ctx, chunkResults, fieldMeta, p.embedder, dedupThreshold(req.Opts))
	if err != nil {
		tracker.Update(extraction.PhaseError, err.Error(), 100)
		return extraction.Output{}, err
	}
	tracker.Update(extraction.PhaseResultMerging, "cross-chunk merge complete", 100)

	tracker.Update(extraction.PhaseDedup, "filtering null and placeholder values", 0)
	final.FieldValues = nullfilter.Filter(final.FieldValues, nullfilter.Options{})
	tracker.Update(extraction.PhaseDedup, "filtering complete", 100)

	tracker.Update(extraction.PhaseFormat, "rendering output", 0)
	out := extraction.Output{Elapsed: timeNow().Sub(start)}
	for _, f := range outputFormats(req.Opts) {
		switch f {
		case extraction.OutputStructured:
			out.Structured = format.Structured(final, nil)
		case extraction.OutputFlatText:
			out.FlatText = format.FlatText(final, nil)
		case extraction.OutputTaggedMarkup:
			markup, err := format.TaggedMarkup(final, nil)
			if err != nil {
				tracker.Update(extraction.PhaseError, err.Error(), 100)
				return extraction.Output{}, err
			}
			out.TaggedMarkup = markup
		}
	}
	tracker.Update(extraction.PhaseFormat, "rendering complete", 100)
	tracker.Update(extraction.PhaseCompletion, "extraction complete", 100)

	return out, nil
}

func (p *Pipeline) resolvePlan(ctx context.Context, req Request, tracker *progress.Tracker) (extraction.ExtractionPlan, error) {
	if req.Plan != nil {
		return *req.Plan, nil
	}

	query := req.Query
	hintedDomain := ""
	if req.Opts.PreprocessEnabled && p.preprocess != nil {
		pre, err := p.preprocess.Process(ctx, query)
		if err != nil {
			return extraction.ExtractionPlan{}, err
		}
		if pre.Confidence >= preprocessConfidenceFloor {
			if pre.Reformulated != "" {
				query = pre.Reformulated
			}
			hintedDomain = pre.IdentifiedDomain
		}
	}

	tracker.Update(extraction.PhaseIdentifyDomain, "identifying domain", 0)
	plan := p.identifier.Plan(query, hintedDomain, req.Opts.MinFieldConfidence)
	tracker.Update(extraction.PhaseIdentifyDomain, "domain identified", 100)
	return plan, nil
}

func (p *Pipeline) resolveSchema(plan extraction.ExtractionPlan) (extraction.DomainDefinition, []extraction.SubDomainDefinition, error) {
	domain, ok := p.registry.Get(plan.Domain)
	if !ok || len(plan.SubDomains) == 0 {
		return extraction.DomainDefinition{}, nil, extraction.ErrSchemaEmpty
	}

	var subDomains []extraction.SubDomainDefinition
	for _, name := range plan.SubDomains {
		sub, ok := domain.SubDomainByName(name)
		if !ok {
			continue
		}
		subDomains = append(subDomains, sub)
	}
	if len(subDomains) == 0 {
		return extraction.DomainDefinition{}, nil, extraction.ErrSchemaEmpty
	}
	return domain, subDomains, nil
}

func buildJobs(chunks []extraction.Chunk, domain extraction.DomainDefinition, subDomains []extraction.SubDomainDefinition, fields []string) []engine.Job {
	jobs := make([]engine.Job, 0, len(chunks)*len(subDomains))
	for _, c := range chunks {
		for _, sub := range subDomains {
			jobs = append(jobs, engine.Job{
				Job:             extraction.Job{Chunk: c, SubDomain: sub},
				Domain:          domain,
				RequestedFields: fields,
			})
		}
	}
	return jobs
}

func mergeChunks(chunks []extraction.Chunk, partials []extraction.PartialResult, subDomainOrder []string) []extraction.MergedChunkResult {
	byChunk := make(map[int][]extraction.PartialResult, len(chunks))
	for _, p := range partials {
		byChunk[p.ChunkIndex] = append(byChunk[p.ChunkIndex], p)
	}

	out := make([]extraction.MergedChunkResult, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, merge.MergeChunk(c.Index, byChunk[c.Index], subDomainOrder))
	}
	return out
}

func subDomainNames(subDomains []extraction.SubDomainDefinition) []string {
	out := make([]string, len(subDomains))
	for i, s := range subDomains {
		out[i] = s.Name
	}
	return out
}

func fieldMetaFor(domain extraction.DomainDefinition, subDomains []extraction.SubDomainDefinition) map[string]merge.FieldMeta {
	meta := make(map[string]merge.FieldMeta)
	for _, sub := range subDomains {
		for _, f := range sub.Fields {
			meta[f.Name] = merge.FieldMeta{Unique: f.Unique}
		}
	}
	return meta
}

func dateFieldSet(domain extraction.DomainDefinition, subDomains []extraction.SubDomainDefinition) map[string]bool {
	dates := make(map[string]bool)
	for _, sub := range subDomains {
		for _, f := range sub.Fields {
			if f.Type == extraction.FieldTypeDate {
				dates[f.Name] = true
			}
		}
	}
	return dates
}

func dedupThreshold(opts Options) float64 {
	if opts.DedupThreshold <= 0 {
		return 0.9
	}
	return opts.DedupThreshold
}

func outputFormats(opts Options) []extraction.OutputFormat {
	if len(opts.OutputFormats) > 0 {
		return opts.OutputFormats
	}
	return []extraction.OutputFormat{extraction.OutputStructured}
}

func joinSegments(segments []extraction.Segment, separator string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, separator)
}

// timeNow is a seam so tests can avoid depending on wall-clock time for
// elapsed-duration assertions; production always calls time.Now.
var timeNow = time.Now
