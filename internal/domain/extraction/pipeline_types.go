package extraction

import "time"

// Chunk is an overlapping text window produced by the Chunker.
type Chunk struct {
	Index           int
	Text            string
	SourceSegmentID string
	CharOffset      int
}

// Job is a (chunk, sub-domain) pair dispatched to the LLM by the Parallel
// Extraction Engine.
type Job struct {
	Chunk     Chunk
	SubDomain SubDomainDefinition
}

// PartialResult is an LLM-parsed result for a single Job.
type PartialResult struct {
	ChunkIndex       int
	SubDomainName    string
	FieldValues      map[string]Value
	SourceConfidence float64
}

// MergedChunkResult is the outcome of per-chunk merging across every
// sub-domain partial produced for one chunk.
type MergedChunkResult struct {
	ChunkIndex  int
	FieldValues map[string]Value
	Provenance  map[string][]string
	Confidences map[string][]float64
}

// FinalResult is the outcome of cross-chunk merging, deduplication and null
// filtering.
type FinalResult struct {
	FieldValues map[string]Value
	Provenance  map[string][]string
	Confidences map[string][]float64
}

// PreprocessedQuery is the output of the Query Preprocessor.
type PreprocessedQuery struct {
	Original          string
	Reformulated      string
	IdentifiedDomain  string
	IdentifiedFields  []string
	Requirements      map[string]string
	Confidence        float64
}

// FieldPlan records one field selected by the Domain Identifier along with
// the confidence that drove its selection, for downstream inspection and
// testing.
type FieldPlan struct {
	Name       string
	Confidence float64
}

// ExtractionPlan is the resolved (domain, sub-domains, fields) selection
// for one extraction.
type ExtractionPlan struct {
	Domain         string
	SubDomains     []string
	Fields         []string
	FieldPlans     []FieldPlan
	OutputFormats  []OutputFormat
}

// OutputFormat selects one of the Output Formatter's renderings.
type OutputFormat string

const (
	OutputStructured  OutputFormat = "structured"
	OutputFlatText    OutputFormat = "flat_text"
	OutputTaggedMarkup OutputFormat = "tagged_markup"
)

// Phase names the pipeline's progress phase machine states.
type Phase string

const (
	PhaseInit             Phase = "init"
	PhaseLoadDoc          Phase = "load_doc"
	PhaseChunk            Phase = "chunk"
	PhaseIdentifyDomain   Phase = "identify_domain"
	PhaseFieldExtract     Phase = "field_extract"
	PhaseTemporalNormalize Phase = "temporal_normalize"
	PhaseResultMerging    Phase = "result_merging"
	PhaseDedup            Phase = "dedup"
	PhaseFormat           Phase = "format"
	PhaseCompletion       Phase = "completion"
	PhaseError            Phase = "error"
)

// ProgressEvent is a single progress update emitted to a ProgressSink.
type ProgressEvent struct {
	Phase     Phase
	Message   string
	Percent   int
	Timestamp time.Time
	Attrs     map[string]any
}

// TokenUsage aggregates LLM token consumption for diagnostics and logging.
// It is never used for billing enforcement (out of scope).
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add returns the element-wise sum of two TokenUsage values.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// Segment is one unit of text yielded by a DocumentSource, carrying
// loader-defined metadata (e.g. page number, sheet name).
type Segment struct {
	Text     string
	Metadata map[string]string
}

// Output is the final, multi-format rendering of a FinalResult.
type Output struct {
	Structured   map[string]any
	FlatText     string
	TaggedMarkup string
	Elapsed      time.Duration
}
